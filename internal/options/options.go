// Package options provides the generic functional options used to configure
// compressors, decompressors and the backend selector.
package options

import "go.uber.org/multierr"

// Option configures a target of type T, typically a pointer to a config struct.
type Option[T any] interface {
	apply(T) error
}

// Func adapts a function to the Option interface.
type Func[T any] struct {
	applyFunc func(T) error
}

func (f *Func[T]) apply(target T) error {
	return f.applyFunc(target)
}

// New creates an option from a function that may reject its argument.
func New[T any](fn func(T) error) *Func[T] {
	return &Func[T]{applyFunc: fn}
}

// NoError creates an option from a function that cannot fail.
func NoError[T any](fn func(T)) *Func[T] {
	return &Func[T]{
		applyFunc: func(target T) error {
			fn(target)
			return nil
		},
	}
}

// Apply applies opts in order and stops at the first error. Nil options are skipped.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}

// ApplyAll applies every option and returns all rejections combined, so a
// caller sees every invalid parameter at once.
func ApplyAll[T any](target T, opts ...Option[T]) error {
	var err error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		err = multierr.Append(err, opt.apply(target))
	}

	return err
}

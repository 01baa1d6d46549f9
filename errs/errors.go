// Package errs defines the error kinds shared by every zstdx package and backend.
//
// Every error returned by the frame codec, the engines and the backend selector
// wraps exactly one of the sentinel values below, so callers classify failures
// with errors.Is (or KindOf) regardless of which backend produced them. Error
// messages may differ between backends; the kind never does.
package errs

import "errors"

var (
	// ErrMalformedFrame reports a structural violation of the Zstandard frame format.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrChecksumMismatch reports a content checksum that does not match the decoded content.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrDictionaryRequired reports a frame that declares a dictionary when none was supplied.
	ErrDictionaryRequired = errors.New("dictionary required")
	// ErrDictionaryMismatch reports a supplied dictionary whose ID differs from the frame's.
	ErrDictionaryMismatch = errors.New("dictionary mismatch")
	// ErrInvalidParameters reports out-of-range compression or decompression parameters.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrInvalidState reports an operation on a closed or errored engine.
	ErrInvalidState = errors.New("invalid state")
	// ErrBackendUnavailable reports a backend that is not present in this build or process.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrResourceLimit reports a configured resource limit being exceeded.
	// It is transient: the session that returned it stays usable.
	ErrResourceLimit = errors.New("resource limit exceeded")
)

// Kind classifies an error into one of the sentinel kinds.
type Kind uint8

const (
	KindNone Kind = iota
	KindMalformedFrame
	KindChecksumMismatch
	KindDictionaryRequired
	KindDictionaryMismatch
	KindInvalidParameters
	KindInvalidState
	KindBackendUnavailable
	KindResourceLimit
	KindUnknown
)

var kindTable = []struct {
	kind Kind
	err  error
}{
	{KindMalformedFrame, ErrMalformedFrame},
	{KindChecksumMismatch, ErrChecksumMismatch},
	{KindDictionaryRequired, ErrDictionaryRequired},
	{KindDictionaryMismatch, ErrDictionaryMismatch},
	{KindInvalidParameters, ErrInvalidParameters},
	{KindInvalidState, ErrInvalidState},
	{KindBackendUnavailable, ErrBackendUnavailable},
	{KindResourceLimit, ErrResourceLimit},
}

// KindOf returns the kind of err. A nil error yields KindNone and an error that
// wraps none of the sentinels yields KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}

	return KindUnknown
}

// IsTerminal reports whether an error of this kind poisons the session that returned it.
func (k Kind) IsTerminal() bool {
	switch k {
	case KindMalformedFrame, KindChecksumMismatch, KindDictionaryRequired, KindDictionaryMismatch, KindUnknown:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindMalformedFrame:
		return "MalformedFrame"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindDictionaryRequired:
		return "DictionaryRequired"
	case KindDictionaryMismatch:
		return "DictionaryMismatch"
	case KindInvalidParameters:
		return "InvalidParameters"
	case KindInvalidState:
		return "InvalidState"
	case KindBackendUnavailable:
		return "BackendUnavailable"
	case KindResourceLimit:
		return "ResourceLimit"
	default:
		return "Unknown"
	}
}

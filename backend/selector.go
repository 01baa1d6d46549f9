package backend

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arloliu/zstdx/errs"
)

// Config is the explicit selector input. There is no process-wide backend
// state: every Select call resolves its own policy.
type Config struct {
	Policy Policy
	// Logger receives selection decisions. Nil disables logging.
	Logger *zap.Logger
	// BridgeLibrary is the libzstd path for the bridge backend. Empty searches
	// the platform's default library names.
	BridgeLibrary string
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}

	return c.Logger
}

// Select returns the backend named by cfg.Policy.
//
// PolicyAuto prefers the native backend and falls back to the bridge. The
// alternative backend is never chosen implicitly.
//
// Returns:
//   - Backend: the selected backend
//   - error: ErrBackendUnavailable if the backend is absent from this build
//     or process, ErrInvalidParameters for an unknown policy
func Select(cfg Config) (Backend, error) {
	logger := cfg.logger()

	var (
		b   Backend
		err error
	)
	switch cfg.Policy {
	case PolicyNative:
		b, err = newNative()
	case PolicyBridge:
		b, err = newBridge(cfg.BridgeLibrary, logger)
	case PolicyAlternative:
		b = NewAlternative()
		logger.Warn("alternative backend selected; compressed bytes may differ from libzstd backends")
	case PolicyAuto:
		return selectAuto(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend policy %d", errs.ErrInvalidParameters, cfg.Policy)
	}

	if err != nil {
		logger.Debug("backend unavailable", zap.Stringer("policy", cfg.Policy), zap.Error(err))
		return nil, err
	}
	logger.Info("backend selected", zap.Stringer("policy", b.Policy()), zap.String("version", b.Version()))

	return b, nil
}

func selectAuto(cfg Config, logger *zap.Logger) (Backend, error) {
	nativeBackend, nativeErr := newNative()
	if nativeErr == nil {
		logger.Info("backend selected", zap.String("policy", "auto"),
			zap.Stringer("backend", PolicyNative), zap.String("version", nativeBackend.Version()))

		return nativeBackend, nil
	}
	logger.Debug("native backend unavailable, trying bridge", zap.Error(nativeErr))

	bridgeBackend, bridgeErr := newBridge(cfg.BridgeLibrary, logger)
	if bridgeErr == nil {
		logger.Info("backend selected", zap.String("policy", "auto"),
			zap.Stringer("backend", PolicyBridge), zap.String("version", bridgeBackend.Version()))

		return bridgeBackend, nil
	}

	return nil, multierr.Combine(
		fmt.Errorf("%w: auto policy found neither native nor bridge backend", errs.ErrBackendUnavailable),
		nativeErr,
		bridgeErr,
	)
}

// Available returns every backend that can be instantiated in this process,
// in the order native, bridge, alternative.
func Available(cfg Config) []Backend {
	var out []Backend
	for _, p := range []Policy{PolicyNative, PolicyBridge, PolicyAlternative} {
		c := cfg
		c.Policy = p
		c.Logger = zap.NewNop()
		if b, err := Select(c); err == nil {
			out = append(out, b)
		}
	}

	return out
}

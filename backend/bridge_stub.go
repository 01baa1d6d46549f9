//go:build !((darwin || freebsd || linux || netbsd) && !android)

package backend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/zstdx/errs"
)

func newBridge(_ string, _ *zap.Logger) (Backend, error) {
	return nil, fmt.Errorf("%w: bridge backend is not supported on this platform", errs.ErrBackendUnavailable)
}

//go:build !cgo || !zstd_cgo

package backend

import (
	"fmt"

	"github.com/arloliu/zstdx/errs"
)

func newNative() (Backend, error) {
	return nil, fmt.Errorf("%w: native backend requires cgo and the zstd_cgo build tag", errs.ErrBackendUnavailable)
}

//go:build cgo && zstd_cgo

package backend

/*
#cgo LDFLAGS: -lzstd
#define ZSTD_STATIC_LINKING_ONLY
#include <stdlib.h>
#include <zstd.h>

static size_t zstdx_cctx_init(ZSTD_CCtx* cctx, int level, int windowLog, int ldm,
                              const void* dict, size_t dictSize, int fullDict) {
	size_t r = ZSTD_CCtx_setParameter(cctx, ZSTD_c_compressionLevel, level);
	if (ZSTD_isError(r)) return r;
	if (windowLog > 0) {
		r = ZSTD_CCtx_setParameter(cctx, ZSTD_c_windowLog, windowLog);
		if (ZSTD_isError(r)) return r;
	}
	if (ldm) {
		r = ZSTD_CCtx_setParameter(cctx, ZSTD_c_enableLongDistanceMatching, 1);
		if (ZSTD_isError(r)) return r;
	}
	r = ZSTD_CCtx_setParameter(cctx, ZSTD_c_contentSizeFlag, 1);
	if (ZSTD_isError(r)) return r;
	r = ZSTD_CCtx_setParameter(cctx, ZSTD_c_checksumFlag, 0);
	if (ZSTD_isError(r)) return r;
	if (dictSize > 0) {
		r = ZSTD_CCtx_loadDictionary_advanced(cctx, dict, dictSize, ZSTD_dlm_byCopy,
			fullDict ? ZSTD_dct_fullDict : ZSTD_dct_rawContent);
	}
	return r;
}

static size_t zstdx_dctx_init(ZSTD_DCtx* dctx, int maxWindowLog,
                              const void* dict, size_t dictSize, int fullDict) {
	size_t r = ZSTD_DCtx_setParameter(dctx, ZSTD_d_windowLogMax, maxWindowLog);
	if (ZSTD_isError(r)) return r;
	if (dictSize > 0) {
		r = ZSTD_DCtx_loadDictionary_advanced(dctx, dict, dictSize, ZSTD_dlm_byCopy,
			fullDict ? ZSTD_dct_fullDict : ZSTD_dct_rawContent);
	}
	return r;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/arloliu/zstdx/errs"
)

type native struct{}

func newNative() (Backend, error) {
	return native{}, nil
}

func (native) Policy() Policy { return PolicyNative }

func (native) Version() string {
	return "libzstd " + C.GoString(C.ZSTD_versionString())
}

func nativeError(code C.size_t) error {
	if C.ZSTD_isError(code) == 0 {
		return nil
	}

	return errors.New(C.GoString(C.ZSTD_getErrorName(code)))
}

func bytesPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}

	return unsafe.Pointer(&b[0])
}

func (native) NewFrameEncoder(cfg EncoderConfig) (FrameEncoder, error) {
	cctx := C.ZSTD_createCCtx()
	if cctx == nil {
		return nil, fmt.Errorf("%w: ZSTD_createCCtx failed", errs.ErrResourceLimit)
	}

	content := cfg.Dict.Bytes()
	full := C.int(0)
	if cfg.Dict.IsTrained() {
		full = 1
	}
	ldm := C.int(0)
	if cfg.LongDistance {
		ldm = 1
	}

	code := C.zstdx_cctx_init(cctx, C.int(cfg.Level), C.int(cfg.WindowLog), ldm,
		bytesPtr(content), C.size_t(len(content)), full)
	if err := nativeError(code); err != nil {
		C.ZSTD_freeCCtx(cctx)
		return nil, fmt.Errorf("%w: native encoder: %v", errs.ErrInvalidParameters, err)
	}

	return &nativeEncoder{cctx: cctx}, nil
}

func (native) NewFrameDecoder(cfg DecoderConfig) (FrameDecoder, error) {
	dctx := C.ZSTD_createDCtx()
	if dctx == nil {
		return nil, fmt.Errorf("%w: ZSTD_createDCtx failed", errs.ErrResourceLimit)
	}

	content := cfg.Dict.Bytes()
	full := C.int(0)
	if cfg.Dict.IsTrained() {
		full = 1
	}

	code := C.zstdx_dctx_init(dctx, C.int(maxWindowLogOrDefault(cfg.MaxWindowLog)),
		bytesPtr(content), C.size_t(len(content)), full)
	if err := nativeError(code); err != nil {
		C.ZSTD_freeDCtx(dctx)
		return nil, fmt.Errorf("%w: native decoder: %v", errs.ErrInvalidParameters, err)
	}

	return &nativeDecoder{dctx: dctx}, nil
}

type nativeEncoder struct {
	cctx *C.ZSTD_CCtx
}

func (e *nativeEncoder) EncodeFrame(dst, src []byte) ([]byte, error) {
	if e.cctx == nil {
		return dst, fmt.Errorf("%w: encoder closed", errs.ErrInvalidState)
	}

	bound := int(C.ZSTD_compressBound(C.size_t(len(src))))
	dst, out := extend(dst, bound)

	n := C.ZSTD_compress2(e.cctx, bytesPtr(out), C.size_t(len(out)), bytesPtr(src), C.size_t(len(src)))
	if err := nativeError(n); err != nil {
		return dst, err
	}

	return dst[:len(dst)+int(n)], nil
}

func (e *nativeEncoder) Close() error {
	if e.cctx != nil {
		C.ZSTD_freeCCtx(e.cctx)
		e.cctx = nil
	}

	return nil
}

type nativeDecoder struct {
	dctx *C.ZSTD_DCtx
}

func (d *nativeDecoder) DecodeFrame(dst, src []byte, capacity int) ([]byte, error) {
	if d.dctx == nil {
		return dst, fmt.Errorf("%w: decoder closed", errs.ErrInvalidState)
	}

	dst, out := extend(dst, capacity)

	n := C.ZSTD_decompressDCtx(d.dctx, bytesPtr(out), C.size_t(len(out)), bytesPtr(src), C.size_t(len(src)))
	if err := nativeError(n); err != nil {
		return dst, err
	}

	return dst[:len(dst)+int(n)], nil
}

func (d *nativeDecoder) Close() error {
	if d.dctx != nil {
		C.ZSTD_freeDCtx(d.dctx)
		d.dctx = nil
	}

	return nil
}

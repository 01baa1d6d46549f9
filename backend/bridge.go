//go:build (darwin || freebsd || linux || netbsd) && !android

package backend

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arloliu/zstdx/errs"
)

// libzstd parameter and enum values from zstd.h.
const (
	zstdCCompressionLevel   = 100
	zstdCWindowLog          = 101
	zstdCEnableLDM          = 160
	zstdCContentSizeFlag    = 200
	zstdCChecksumFlag       = 201
	zstdDWindowLogMax       = 100
	zstdDictLoadByCopy      = 0
	zstdDictContentRaw      = 1
	zstdDictContentFullDict = 2
)

// libzstd holds the entry points of one dlopen'ed libzstd.
type libzstd struct {
	path string

	versionString  func() string
	isError        func(code uintptr) uint32
	getErrorName   func(code uintptr) string
	compressBound  func(srcSize uintptr) uintptr
	createCCtx     func() uintptr
	freeCCtx       func(cctx uintptr) uintptr
	cctxSetParam   func(cctx uintptr, param int32, value int32) uintptr
	cctxLoadDict   func(cctx uintptr, dict []byte, dictSize uintptr, method int32, contentType int32) uintptr
	compress2      func(cctx uintptr, dst []byte, dstCap uintptr, src []byte, srcSize uintptr) uintptr
	createDCtx     func() uintptr
	freeDCtx       func(dctx uintptr) uintptr
	dctxSetParam   func(dctx uintptr, param int32, value int32) uintptr
	dctxLoadDict   func(dctx uintptr, dict []byte, dictSize uintptr, method int32, contentType int32) uintptr
	decompressDCtx func(dctx uintptr, dst []byte, dstCap uintptr, src []byte, srcSize uintptr) uintptr
}

var (
	libsMu sync.Mutex
	libs   = map[string]*libzstd{}
)

// loadLibzstd opens libzstd once per path. An empty path searches the
// platform's default library names.
func loadLibzstd(path string, logger *zap.Logger) (*libzstd, error) {
	libsMu.Lock()
	defer libsMu.Unlock()

	if lib, ok := libs[path]; ok {
		return lib, nil
	}

	candidates := defaultLibraryNames()
	if path != "" {
		candidates = []string{path}
	}

	var openErr error
	for _, name := range candidates {
		handle, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			openErr = multierr.Append(openErr, err)
			logger.Debug("libzstd candidate rejected", zap.String("library", name), zap.Error(err))
			continue
		}

		lib, err := bindLibzstd(handle, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errs.ErrBackendUnavailable, name, err)
		}
		libs[path] = lib
		logger.Debug("libzstd loaded", zap.String("library", name), zap.String("version", lib.versionString()))

		return lib, nil
	}

	return nil, fmt.Errorf("%w: cannot load libzstd: %v", errs.ErrBackendUnavailable, openErr)
}

func defaultLibraryNames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"libzstd.1.dylib",
			"libzstd.dylib",
			"/opt/homebrew/lib/libzstd.1.dylib",
			"/usr/local/lib/libzstd.1.dylib",
		}
	default:
		return []string{"libzstd.so.1", "libzstd.so"}
	}
}

// bindLibzstd resolves every symbol up front so a partial library is
// rejected at selection time rather than on first use.
func bindLibzstd(handle uintptr, path string) (lib *libzstd, err error) {
	lib = &libzstd{path: path}

	bind := func(fptr any, name string) {
		if err != nil {
			return
		}
		sym, symErr := purego.Dlsym(handle, name)
		if symErr != nil {
			err = symErr
			return
		}
		purego.RegisterFunc(fptr, sym)
	}

	bind(&lib.versionString, "ZSTD_versionString")
	bind(&lib.isError, "ZSTD_isError")
	bind(&lib.getErrorName, "ZSTD_getErrorName")
	bind(&lib.compressBound, "ZSTD_compressBound")
	bind(&lib.createCCtx, "ZSTD_createCCtx")
	bind(&lib.freeCCtx, "ZSTD_freeCCtx")
	bind(&lib.cctxSetParam, "ZSTD_CCtx_setParameter")
	bind(&lib.cctxLoadDict, "ZSTD_CCtx_loadDictionary_advanced")
	bind(&lib.compress2, "ZSTD_compress2")
	bind(&lib.createDCtx, "ZSTD_createDCtx")
	bind(&lib.freeDCtx, "ZSTD_freeDCtx")
	bind(&lib.dctxSetParam, "ZSTD_DCtx_setParameter")
	bind(&lib.dctxLoadDict, "ZSTD_DCtx_loadDictionary_advanced")
	bind(&lib.decompressDCtx, "ZSTD_decompressDCtx")

	if err != nil {
		return nil, err
	}

	return lib, nil
}

func (l *libzstd) check(code uintptr) error {
	if l.isError(code) == 0 {
		return nil
	}

	return errors.New(l.getErrorName(code))
}

type bridge struct {
	lib *libzstd
}

func newBridge(path string, logger *zap.Logger) (Backend, error) {
	lib, err := loadLibzstd(path, logger)
	if err != nil {
		return nil, err
	}

	return &bridge{lib: lib}, nil
}

func (b *bridge) Policy() Policy { return PolicyBridge }

func (b *bridge) Version() string {
	return "libzstd " + b.lib.versionString() + " (" + b.lib.path + ")"
}

func dictContentType(trained bool) int32 {
	if trained {
		return zstdDictContentFullDict
	}

	return zstdDictContentRaw
}

func (b *bridge) NewFrameEncoder(cfg EncoderConfig) (FrameEncoder, error) {
	lib := b.lib
	cctx := lib.createCCtx()
	if cctx == 0 {
		return nil, fmt.Errorf("%w: ZSTD_createCCtx failed", errs.ErrResourceLimit)
	}

	// same call sequence as the cgo binding, so both emit identical frames
	params := [][2]int32{{zstdCCompressionLevel, int32(cfg.Level)}} //nolint: gosec
	if cfg.WindowLog > 0 {
		params = append(params, [2]int32{zstdCWindowLog, int32(cfg.WindowLog)}) //nolint: gosec
	}
	if cfg.LongDistance {
		params = append(params, [2]int32{zstdCEnableLDM, 1})
	}
	params = append(params, [2]int32{zstdCContentSizeFlag, 1}, [2]int32{zstdCChecksumFlag, 0})

	var err error
	for _, p := range params {
		if err = lib.check(lib.cctxSetParam(cctx, p[0], p[1])); err != nil {
			break
		}
	}
	if content := cfg.Dict.Bytes(); err == nil && len(content) > 0 {
		err = lib.check(lib.cctxLoadDict(cctx, content, uintptr(len(content)),
			zstdDictLoadByCopy, dictContentType(cfg.Dict.IsTrained())))
	}
	if err != nil {
		lib.freeCCtx(cctx)
		return nil, fmt.Errorf("%w: bridge encoder: %v", errs.ErrInvalidParameters, err)
	}

	return &bridgeEncoder{lib: lib, cctx: cctx}, nil
}

func (b *bridge) NewFrameDecoder(cfg DecoderConfig) (FrameDecoder, error) {
	lib := b.lib
	dctx := lib.createDCtx()
	if dctx == 0 {
		return nil, fmt.Errorf("%w: ZSTD_createDCtx failed", errs.ErrResourceLimit)
	}

	err := lib.check(lib.dctxSetParam(dctx, zstdDWindowLogMax, int32(maxWindowLogOrDefault(cfg.MaxWindowLog)))) //nolint: gosec
	if content := cfg.Dict.Bytes(); err == nil && len(content) > 0 {
		err = lib.check(lib.dctxLoadDict(dctx, content, uintptr(len(content)),
			zstdDictLoadByCopy, dictContentType(cfg.Dict.IsTrained())))
	}
	if err != nil {
		lib.freeDCtx(dctx)
		return nil, fmt.Errorf("%w: bridge decoder: %v", errs.ErrInvalidParameters, err)
	}

	return &bridgeDecoder{lib: lib, dctx: dctx}, nil
}

type bridgeEncoder struct {
	lib  *libzstd
	cctx uintptr
}

func (e *bridgeEncoder) EncodeFrame(dst, src []byte) ([]byte, error) {
	if e.cctx == 0 {
		return dst, fmt.Errorf("%w: encoder closed", errs.ErrInvalidState)
	}

	dst, out := extend(dst, int(e.lib.compressBound(uintptr(len(src))))) //nolint: gosec

	n := e.lib.compress2(e.cctx, out, uintptr(len(out)), src, uintptr(len(src)))
	if err := e.lib.check(n); err != nil {
		return dst, err
	}

	return dst[:len(dst)+int(n)], nil //nolint: gosec
}

func (e *bridgeEncoder) Close() error {
	if e.cctx != 0 {
		e.lib.freeCCtx(e.cctx)
		e.cctx = 0
	}

	return nil
}

type bridgeDecoder struct {
	lib  *libzstd
	dctx uintptr
}

func (d *bridgeDecoder) DecodeFrame(dst, src []byte, capacity int) ([]byte, error) {
	if d.dctx == 0 {
		return dst, fmt.Errorf("%w: decoder closed", errs.ErrInvalidState)
	}

	dst, out := extend(dst, capacity)

	n := d.lib.decompressDCtx(d.dctx, out, uintptr(len(out)), src, uintptr(len(src)))
	if err := d.lib.check(n); err != nil {
		return dst, err
	}

	return dst[:len(dst)+int(n)], nil //nolint: gosec
}

func (d *bridgeDecoder) Close() error {
	if d.dctx != 0 {
		d.lib.freeDCtx(d.dctx)
		d.dctx = 0
	}

	return nil
}

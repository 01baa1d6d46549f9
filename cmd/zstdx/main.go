// zstdx compresses, decompresses and inspects Zstandard streams with a
// selectable backend, and compares the backends with each other and with
// the S2 and LZ4 baselines.
//
// Usage:
//
//	zstdx compress   [flags] [file]   compress file or stdin
//	zstdx decompress [flags] [file]   decompress file or stdin
//	zstdx info       [flags] [file]   list the frames of a stream
//	zstdx parity     [flags] [files]  compare every available backend
//	zstdx compare    [flags] [files]  ratio and speed against baselines
//
// Configuration is read from --config or ZSTDX_CONFIG, then ZSTDX_*
// variables, then flags.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/config"
	"github.com/arloliu/zstdx/dict"
)

func main() {
	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		lookup: os.LookupEnv,
	}

	if err := a.run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "zstdx: %v\n", err)
		os.Exit(1)
	}
}

// app carries the process environment so commands can run in tests.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	lookup config.LookupFunc
	logger *zap.Logger
}

type command struct {
	name    string
	summary string
	run     func(a *app, args []string) error
}

var commands = []command{
	{name: "compress", summary: "compress a file or stdin", run: (*app).compress},
	{name: "decompress", summary: "decompress a file or stdin", run: (*app).decompress},
	{name: "info", summary: "list the frames of a stream", run: (*app).info},
	{name: "parity", summary: "compare every available backend", run: (*app).parity},
	{name: "compare", summary: "compare ratio and speed with baseline codecs", run: (*app).compare},
}

var errUsage = errors.New("usage error")

func (a *app) run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		a.printUsage()
		if len(args) == 0 {
			return errUsage
		}

		return nil
	}

	for _, c := range commands {
		if c.name == args[0] {
			return c.run(a, args[1:])
		}
	}
	a.printUsage()

	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func (a *app) printUsage() {
	fmt.Fprintln(a.stderr, "Usage: zstdx <command> [flags] [file...]")
	fmt.Fprintln(a.stderr)
	fmt.Fprintln(a.stderr, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(a.stderr, "  %-12s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(a.stderr)
	fmt.Fprintln(a.stderr, "Run 'zstdx <command> --help' for the flags of a command.")
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	policy     string
	dictionary string
	verbose    bool
}

func (f *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML config file (default: $ZSTDX_CONFIG)")
	fs.StringVarP(&f.policy, "backend", "b", "", "backend policy: auto, native, bridge, alternative")
	fs.StringVarP(&f.dictionary, "dict", "D", "", "dictionary file")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log backend selection and progress")
}

func (a *app) newFlagSet(name string, common *commonFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("zstdx "+name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	common.register(fs)

	return fs
}

// parse parses args and prepares the logger. It returns pflag.ErrHelp
// unchanged so commands can turn --help into a clean exit.
func (a *app) parse(fs *pflag.FlagSet, common *commonFlags, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.logger = newLogger(a.stderr, common.verbose)

	return nil
}

// newLogger writes human readable debug logs when verbose and JSON warnings
// otherwise.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	level := zapcore.WarnLevel
	if verbose {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zapcore.DebugLevel
	}

	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level))
}

// loadConfig applies the command line on top of file and environment settings.
func (a *app) loadConfig(common *commonFlags) (*config.Config, error) {
	cfg, err := config.Load(common.configPath, a.lookup)
	if err != nil {
		return nil, err
	}

	if common.policy != "" {
		p, err := backend.ParsePolicy(common.policy)
		if err != nil {
			return nil, err
		}
		cfg.Backend.Policy = p
	}
	if common.dictionary != "" {
		cfg.Dictionary = common.dictionary
	}

	return cfg, nil
}

// open loads the configuration, selects the backend and reads the dictionary.
func (a *app) open(common *commonFlags) (*config.Config, backend.Backend, *dict.Dictionary, error) {
	cfg, err := a.loadConfig(common)
	if err != nil {
		return nil, nil, nil, err
	}

	b, err := backend.Select(cfg.BackendConfig(a.logger))
	if err != nil {
		return nil, nil, nil, err
	}

	d, err := cfg.LoadDictionary()
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, b, d, nil
}

// openInput returns stdin for "" and "-", otherwise the named file.
func (a *app) openInput(name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(a.stdin), nil
	}

	return os.Open(name)
}

// openOutput returns stdout for "" and "-", otherwise a new file.
func (a *app) openOutput(name string) (io.WriteCloser, error) {
	if name == "" || name == "-" {
		return nopWriteCloser{a.stdout}, nil
	}

	return os.Create(name)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func singleInput(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("%w: expected at most one input, got %s", errUsage, strings.Join(args, " "))
	}
}

func helpRequested(err error) bool {
	return errors.Is(err, pflag.ErrHelp)
}

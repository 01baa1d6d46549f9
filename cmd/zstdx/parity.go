package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/zstdx/backend"
	"github.com/arloliu/zstdx/parity"
)

// parity runs the backend parity checker and prints the report as YAML. A
// report with divergences is an error so scripts can gate on the exit code.
func (a *app) parity(args []string) error {
	var (
		common      commonFlags
		policies    []string
		strict      bool
		concurrency int
		chunkSize   int
	)

	fs := a.newFlagSet("parity", &common)
	fs.StringSliceVar(&policies, "backends", nil, "backends to compare (default: every available backend)")
	fs.BoolVar(&strict, "strict", false, "count alternative compressed-byte differences as divergences")
	fs.IntVar(&concurrency, "concurrency", 4, "cases checked in parallel")
	fs.IntVar(&chunkSize, "chunk-size", 997, "push size of the streaming check")

	if err := a.parse(fs, &common, args); err != nil {
		if helpRequested(err) {
			return nil
		}

		return err
	}

	cfg, err := a.loadConfig(&common)
	if err != nil {
		return err
	}

	backends, err := a.parityBackends(cfg.BackendConfig(a.logger), policies)
	if err != nil {
		return err
	}

	cases := parity.DefaultCases()
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		cases = append(cases, parity.Case{Name: filepath.Base(path), Data: data})
	}

	d, err := cfg.LoadDictionary()
	if err != nil {
		return err
	}
	if d != nil {
		for i := range cases {
			if cases[i].Dict == nil && len(cases[i].Data) > 0 {
				dictCase := cases[i]
				dictCase.Name += "+dict"
				dictCase.Dict = d
				cases = append(cases, dictCase)
			}
		}
	}

	report, err := parity.Check(context.Background(), backends, cases,
		parity.WithLogger(a.logger),
		parity.WithStrictBytes(strict),
		parity.WithConcurrency(concurrency),
		parity.WithChunkSize(chunkSize),
	)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if !report.OK() {
		return fmt.Errorf("parity: %d divergences", len(report.Divergences))
	}

	return nil
}

func (a *app) parityBackends(base backend.Config, policies []string) ([]backend.Backend, error) {
	if len(policies) == 0 {
		return backend.Available(base), nil
	}

	backends := make([]backend.Backend, 0, len(policies))
	for _, name := range policies {
		p, err := backend.ParsePolicy(name)
		if err != nil {
			return nil, err
		}
		c := base
		c.Policy = p
		b, err := backend.Select(c)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}

	return backends, nil
}

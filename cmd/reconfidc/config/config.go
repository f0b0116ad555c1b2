// Package config assembles the domain objects the CLI commands run with
// from resolved flag values.
package config

import (
	"github.com/pedritopng/recon-fidc/internal/parsers"
	"github.com/pedritopng/recon-fidc/internal/reconciler"
	"github.com/pedritopng/recon-fidc/internal/reporter"
)

// BuildRequest turns the reconcile command's flag values into a validated
// reconciliation request.
func BuildRequest(internalFile, fundFile, fund, internalFormat, fallbackPolicy, output string) (*reconciler.Request, error) {
	fundType, err := parsers.ParseFundType(fund)
	if err != nil {
		return nil, err
	}

	format := parsers.InternalStructured
	if internalFormat != "" {
		format, err = parsers.ParseInternalFormat(internalFormat)
		if err != nil {
			return nil, err
		}
	}

	policy, err := parsers.ParseFallbackPolicy(fallbackPolicy)
	if err != nil {
		return nil, err
	}

	request := &reconciler.Request{
		InternalFile:   internalFile,
		FundFile:       fundFile,
		Fund:           fundType,
		InternalFormat: format,
		Fallback:       policy,
		OutputPath:     output,
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	return request, nil
}

// CreateService wires the reconciliation engine and the report generator.
func CreateService() *reconciler.Service {
	engine := reconciler.NewEngine(reconciler.DefaultTolerance)
	generator := reporter.NewGenerator(reporter.DefaultFormatConfig())
	return reconciler.NewService(engine, generator)
}

package parsers

import (
	"fmt"
	"strings"

	"github.com/pedritopng/recon-fidc/internal/models"
	"github.com/pedritopng/recon-fidc/pkg/errors"
)

// FundType identifies which fund-administrator layout to parse.
type FundType string

const (
	FundDiamante        FundType = "diamante"
	FundDiamanteExtrato FundType = "diamante-extrato"
	FundApoge           FundType = "apoge"
	FundGPA             FundType = "gpa"
)

// String returns the string representation of the fund type.
func (f FundType) String() string {
	return string(f)
}

// DisplayName is the fund label used in report file names.
func (f FundType) DisplayName() string {
	switch f {
	case FundDiamante:
		return "Diamante"
	case FundDiamanteExtrato:
		return "Diamante_Extrato"
	case FundApoge:
		return "APOGE"
	case FundGPA:
		return "GPA"
	default:
		return string(f)
	}
}

// ParseFundType resolves a user-supplied fund name to a FundType.
func ParseFundType(s string) (FundType, error) {
	switch FundType(strings.ToLower(strings.TrimSpace(s))) {
	case FundDiamante:
		return FundDiamante, nil
	case FundDiamanteExtrato:
		return FundDiamanteExtrato, nil
	case FundApoge:
		return FundApoge, nil
	case FundGPA:
		return FundGPA, nil
	default:
		return "", errors.ConfigurationError(errors.CodeUnknownFund, "fund", s, nil)
	}
}

// AvailableFundTypes lists every registered fund layout.
func AvailableFundTypes() []FundType {
	return []FundType{FundDiamante, FundDiamanteExtrato, FundApoge, FundGPA}
}

// InternalFormat identifies which internal ledger layout to parse.
type InternalFormat string

const (
	InternalStructured InternalFormat = "structured"
	InternalExtrato    InternalFormat = "extrato"
)

// ParseInternalFormat resolves a user-supplied internal format name.
func ParseInternalFormat(s string) (InternalFormat, error) {
	switch InternalFormat(strings.ToLower(strings.TrimSpace(s))) {
	case InternalStructured:
		return InternalStructured, nil
	case InternalExtrato:
		return InternalExtrato, nil
	default:
		return "", errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"internal-format",
			s,
			fmt.Errorf("must be %q or %q", InternalStructured, InternalExtrato),
		)
	}
}

// InternalParser parses the internal ledger into single-amount entries.
type InternalParser interface {
	Parse(path string) ([]*models.InternalEntry, *ParseStats, error)
}

// FundParser parses a fund-administrator ledger into two-amount entries.
type FundParser interface {
	Parse(path string) ([]*models.FundEntry, *ParseStats, error)
}

// Options carries parser knobs that vary per run.
type Options struct {
	// Fallback controls what semi-structured parsers do with narration
	// lines no pattern recognizes. Zero value means the variant's default.
	Fallback FallbackPolicy
}

// NewFundParser builds the parser registered for the given fund type.
// The registry is static: adding a fund means adding an enum value and a
// case here, not dropping code into a plugin directory.
func NewFundParser(fund FundType, opts Options) (FundParser, error) {
	switch fund {
	case FundDiamante:
		return newStructuredFundParser(diamanteLayout), nil
	case FundApoge:
		return newStructuredFundParser(apogeLayout), nil
	case FundGPA:
		return newStructuredFundParser(gpaLayout), nil
	case FundDiamanteExtrato:
		policy := opts.Fallback
		if policy == FallbackDefault {
			// The Diamante extrato export historically kept unrecognized
			// narration lines as generic documents.
			policy = FallbackGeneric
		}
		return newFundExtratoParser(diamanteExtratoLayout, policy), nil
	default:
		return nil, errors.ConfigurationError(errors.CodeUnknownFund, "fund", fund, nil)
	}
}

// NewInternalParser builds the parser for the internal ledger format.
func NewInternalParser(format InternalFormat, opts Options) (InternalParser, error) {
	switch format {
	case InternalStructured:
		return newStructuredInternalParser(internalLayout), nil
	case InternalExtrato:
		policy := opts.Fallback
		if policy == FallbackDefault {
			policy = FallbackSkip
		}
		return newInternalExtratoParser(internalExtratoLayout, policy), nil
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "internal-format", format, nil)
	}
}

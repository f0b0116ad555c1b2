package config

import (
	"testing"

	"github.com/pedritopng/recon-fidc/internal/parsers"
)

func TestBuildRequest(t *testing.T) {
	request, err := BuildRequest("nosso.csv", "fundo.csv", "diamante", "", "", "")
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	if request.Fund != parsers.FundDiamante {
		t.Errorf("Expected fund diamante, got %s", request.Fund)
	}
	if request.InternalFormat != parsers.InternalStructured {
		t.Errorf("Expected structured default, got %s", request.InternalFormat)
	}
	if request.Fallback != parsers.FallbackDefault {
		t.Errorf("Expected default fallback policy, got %v", request.Fallback)
	}
}

func TestBuildRequest_AllOptions(t *testing.T) {
	request, err := BuildRequest("extrato.csv", "fundo.csv", "diamante-extrato", "extrato", "generic", "/tmp/out.xlsx")
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	if request.InternalFormat != parsers.InternalExtrato {
		t.Errorf("Expected extrato format, got %s", request.InternalFormat)
	}
	if request.Fallback != parsers.FallbackGeneric {
		t.Errorf("Expected generic fallback, got %v", request.Fallback)
	}
	if request.OutputPath != "/tmp/out.xlsx" {
		t.Errorf("Expected explicit output path, got %s", request.OutputPath)
	}
}

func TestBuildRequest_InvalidInputs(t *testing.T) {
	tests := []struct {
		name           string
		fund           string
		internalFormat string
		fallback       string
	}{
		{name: "unknown fund", fund: "itau"},
		{name: "unknown internal format", fund: "diamante", internalFormat: "pdf"},
		{name: "unknown fallback policy", fund: "diamante", fallback: "keep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRequest("a.csv", "b.csv", tt.fund, tt.internalFormat, tt.fallback, "")
			if err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestCreateService(t *testing.T) {
	if CreateService() == nil {
		t.Fatal("Expected a wired service")
	}
}

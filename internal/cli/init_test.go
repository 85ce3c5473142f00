package cli

import (
	"context"
	"testing"

	"moneycoach/internal/config"
	"moneycoach/internal/log"
)

func TestInitLLMDisabled(t *testing.T) {
	cfg := &config.Config{}
	client, err := InitLLM(cfg, log.Nop())
	if err != nil || client != nil {
		t.Fatalf("expected no client without an API key, got %v, %v", client, err)
	}
}

func TestInitLLMEnabled(t *testing.T) {
	cfg := &config.Config{LLMAPIKey: "key", LLMBaseURL: "http://localhost:1", LLMModel: "m"}
	client, err := InitLLM(cfg, log.Nop())
	if err != nil || client == nil {
		t.Fatalf("expected a client, got %v, %v", client, err)
	}
}

func TestInitExporterDisabled(t *testing.T) {
	exporter, err := InitExporter(context.Background(), &config.Config{}, log.Nop())
	if err != nil || exporter != nil {
		t.Fatalf("expected no exporter, got %v, %v", exporter, err)
	}
}

func TestInitExporterBadCredentials(t *testing.T) {
	cfg := &config.Config{GoogleSpreadsheetID: "sheet", GoogleServiceAccountJSON: "not json"}
	if _, err := InitExporter(context.Background(), cfg, log.Nop()); err == nil {
		t.Fatal("expected error for malformed credentials")
	}
}

func TestShutdownContextCancel(t *testing.T) {
	ctx, cancel := ShutdownContext(log.Nop())
	cancel()
	<-ctx.Done()
}

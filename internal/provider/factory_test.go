package provider

import (
	"testing"

	"termagent/internal/config"
)

func TestFactory_Get(t *testing.T) {
	cfg := config.Defaults().Provider
	f := NewFactory(cfg, "key", quietLogger())

	p, err := f.DefaultProvider()
	if err != nil {
		t.Fatalf("default provider: %v", err)
	}
	if p.Name() != "gemini" {
		t.Fatalf("expected gemini, got %q", p.Name())
	}

	p, err = f.Get("openai")
	if err != nil || p.Name() != "openai" {
		t.Fatalf("expected openai, got %v, %v", p, err)
	}

	p, err = f.Get("ollama")
	if err != nil || p.Name() != "ollama" {
		t.Fatalf("expected ollama, got %v, %v", p, err)
	}

	if _, err := f.Get("nope"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

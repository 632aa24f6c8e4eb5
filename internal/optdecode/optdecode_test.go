package optdecode

import (
	"strings"
	"testing"
	"time"
)

type sample struct {
	Table   string            `mapstructure:"table" validate:"required"`
	Columns map[string]string `mapstructure:"columns"`
	Secure  *bool             `mapstructure:"secure"`
	Expiry  time.Duration     `mapstructure:"expiry"`
	Tables  []string          `mapstructure:"tables"`
}

func TestDecodeCaseInsensitiveAndWeak(t *testing.T) {
	var out sample
	err := Decode(map[string]any{
		"TABLE":   "users",
		"Columns": map[string]any{"password": "__CREDENTIAL_2__"},
		"SECURE":  "true",
		"expiry":  "1.5h",
	}, &out)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if out.Table != "users" || out.Columns["password"] != "__CREDENTIAL_2__" {
		t.Fatalf("unexpected decode: %+v", out)
	}
	if out.Secure == nil || !*out.Secure {
		t.Fatal("expected secure=true")
	}
	if out.Expiry != 90*time.Minute {
		t.Fatalf("expiry = %v", out.Expiry)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	var out sample
	err := Decode(map[string]any{"table": "users", "bogus": 1}, &out)
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected unused key error, got %v", err)
	}
}

func TestDecodeValidates(t *testing.T) {
	var out sample
	if err := Decode(map[string]any{"tables": []string{"a"}}, &out); err == nil {
		t.Fatal("expected required table to fail validation")
	}
}

func TestTakeAndStrings(t *testing.T) {
	opts := map[string]any{"FUNC": 1, "other": 2}
	v, ok := Take(opts, "func")
	if !ok || v != 1 || len(opts) != 1 {
		t.Fatalf("Take = %v, %v, remaining %v", v, ok, opts)
	}
	got, err := Strings([]any{"a", "b"})
	if err != nil || len(got) != 2 {
		t.Fatalf("Strings = %v, %v", got, err)
	}
	if _, err := Strings([]any{"a", 3}); err == nil {
		t.Fatal("expected non-string argument error")
	}
}

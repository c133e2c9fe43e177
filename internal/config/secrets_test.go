package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveSecret_EnvOnly(t *testing.T) {
	const envName = "TESSERA_TEST_SECRET_ENV_ONLY"
	t.Setenv(envName, "env-value")

	value, err := ResolveSecret(envName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "env-value" {
		t.Errorf("got %q, want %q", value, "env-value")
	}
}

func TestResolveSecret_FilePrecedence(t *testing.T) {
	const envName = "TESSERA_TEST_SECRET_BOTH"
	secretFile := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(secretFile, []byte("file-value\n"), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	t.Setenv(envName, "env-value")
	t.Setenv(envName+"_FILE", secretFile)

	value, err := ResolveSecret(envName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "file-value" {
		t.Errorf("got %q, want %q", value, "file-value")
	}
}

func TestResolveSecret_MissingFile(t *testing.T) {
	const envName = "TESSERA_TEST_SECRET_MISSING"
	t.Setenv(envName+"_FILE", filepath.Join(t.TempDir(), "nope"))

	if _, err := ResolveSecret(envName); err == nil {
		t.Fatal("expected error for missing secret file")
	}
}

func TestResolveSecret_Unset(t *testing.T) {
	value, err := ResolveSecret("TESSERA_TEST_SECRET_UNSET")
	if err != nil || value != "" {
		t.Errorf("got %q, %v; want empty", value, err)
	}
}

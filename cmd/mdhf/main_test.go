package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

func TestSetEnvValueUpdatesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# local settings\nMDHF_WORKSPACE=/srv/mdhf\nMDHF_API_KEY=old\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := setEnvValue(path, "MDHF_API_KEY", "mdhf_new secret"); err != nil {
		t.Fatalf("set: %v", err)
	}
	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if env["MDHF_API_KEY"] != "mdhf_new secret" || env["MDHF_WORKSPACE"] != "/srv/mdhf" || len(env) != 2 {
		t.Fatalf("unexpected env %v", env)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode %v, want 0600", info.Mode().Perm())
	}
}

func TestSetEnvValueCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := setEnvValue(path, "MDHF_API_KEY", "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	env, err := godotenv.Read(path)
	if err != nil || env["MDHF_API_KEY"] != "abc" {
		t.Fatalf("unexpected env %v %v", env, err)
	}
}

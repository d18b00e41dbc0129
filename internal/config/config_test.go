package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Owner != "" {
		t.Errorf("Owner = %q, want empty", cfg.Owner)
	}
	if cfg.DBMaxOpenConns != 0 {
		t.Errorf("DBMaxOpenConns = %d, want 0", cfg.DBMaxOpenConns)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()

	content := `{"owner": "admin-principal", "db_max_open_conns": 1, "disabled_tools": ["capsule_stats"]}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Owner != "admin-principal" {
		t.Errorf("Owner = %q, want %q", cfg.Owner, "admin-principal")
	}
	if cfg.DBMaxOpenConns != 1 {
		t.Errorf("DBMaxOpenConns = %d, want 1", cfg.DBMaxOpenConns)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "capsule_stats" {
		t.Errorf("DisabledTools = %v, want [capsule_stats]", cfg.DisabledTools)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load() should fail on invalid JSON")
	}
}

func TestSaveThenLoad(t *testing.T) {
	tmpDir := t.TempDir()

	want := &Config{Owner: "owner-1", DBMaxOpenConns: 2}
	if err := Save(tmpDir, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Owner != want.Owner || got.DBMaxOpenConns != want.DBMaxOpenConns {
		t.Errorf("round-trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestMerge(t *testing.T) {
	base := &Config{Owner: "base-owner", DBMaxOpenConns: 1, DisabledTools: []string{"a"}}
	overlay := &Config{DBMaxOpenConns: 4, DisabledTools: []string{"a", "b"}}

	merged := Merge(base, overlay)

	if merged.Owner != "base-owner" {
		t.Errorf("Owner = %q, want base value", merged.Owner)
	}
	if merged.DBMaxOpenConns != 4 {
		t.Errorf("DBMaxOpenConns = %d, want overlay value 4", merged.DBMaxOpenConns)
	}
	if len(merged.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want deduplicated [a b]", merged.DisabledTools)
	}
}

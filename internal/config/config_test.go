package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRESQL_URI", "postgres://localhost/db")
	t.Setenv("AMQP_URI", "amqp://localhost")
	t.Setenv("BRIDGE_CHANNELS", "c1:q1")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("DELIVERY_MODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DeliveryMode != NonPersistent {
		t.Errorf("DeliveryMode = %v, want NonPersistent", cfg.DeliveryMode)
	}
	if cfg.AdminAddr != ":9090" {
		t.Errorf("AdminAddr = %q, want :9090", cfg.AdminAddr)
	}
	if cfg.RecentDepth != 20 {
		t.Errorf("RecentDepth = %d, want 20", cfg.RecentDepth)
	}
}

func TestLoadDeliveryModePersistent(t *testing.T) {
	setRequired(t)
	t.Setenv("DELIVERY_MODE", "PERSISTENT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DeliveryMode != Persistent {
		t.Errorf("DeliveryMode = %v, want Persistent", cfg.DeliveryMode)
	}
}

func TestLoadDeliveryModeInvalid(t *testing.T) {
	setRequired(t)
	t.Setenv("DELIVERY_MODE", "MAYBE")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for invalid DELIVERY_MODE")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	os.Unsetenv("POSTGRESQL_URI")
	os.Unsetenv("POSTGRESQL_URI_FILE")
	os.Unsetenv("AMQP_URI")
	os.Unsetenv("AMQP_URI_FILE")
	os.Unsetenv("BRIDGE_CHANNELS")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error when POSTGRESQL_URI is unset")
	}
}

func TestLoadURIFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pg_uri")
	if err := os.WriteFile(path, []byte("postgres://from-file/db\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("POSTGRESQL_URI_FILE", path)
	t.Setenv("POSTGRESQL_URI", "postgres://ignored/db")
	t.Setenv("AMQP_URI", "amqp://localhost")
	t.Setenv("BRIDGE_CHANNELS", "c1:q1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PostgresURI != "postgres://from-file/db" {
		t.Errorf("PostgresURI = %q, want file content trimmed", cfg.PostgresURI)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv(EnvTeam, "254")
	t.Setenv(EnvNTServer, "")
	t.Setenv(EnvMJPEGPort, "not-a-port")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvGoEnv, "production")

	if got := Team(0); got != 254 {
		t.Errorf("Team: got %d, want 254", got)
	}
	if got := NTServer("10.2.54.2"); got != "10.2.54.2" {
		t.Errorf("NTServer: got %q", got)
	}
	if got := MJPEGPort(8080); got != 8080 {
		t.Errorf("MJPEGPort: got %d, want default", got)
	}
	if got := LogLevel("info"); got != "debug" {
		t.Errorf("LogLevel: got %q", got)
	}
	if !Production() {
		t.Error("Production should be true")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FRC_TEAM=1678\nNT_SERVER=localhost\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvTeam, "")
	os.Unsetenv(EnvTeam)
	t.Setenv(EnvNTServer, "preset")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := Team(0); got != 1678 {
		t.Errorf("Team: got %d, want 1678", got)
	}
	if got := NTServer(""); got != "preset" {
		t.Errorf("existing variables must win, got %q", got)
	}
}

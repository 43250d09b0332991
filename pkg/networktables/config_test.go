package networktables

import (
	"strings"
	"testing"
)

func TestTeamAddress(t *testing.T) {
	tests := []struct {
		team int
		want string
	}{
		{254, "10.2.54.2"},
		{1234, "10.12.34.2"},
		{5, "10.0.5.2"},
		{12345, "10.123.45.2"},
	}

	for _, tc := range tests {
		if got := TeamAddress(tc.team); got != tc.want {
			t.Errorf("TeamAddress(%d): got %s, want %s", tc.team, got, tc.want)
		}
	}
}

func TestConfig_Address(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"team", Config{Team: 254, Port: 5810}, "10.2.54.2:5810"},
		{"host", Config{Server: "localhost", Port: 5810}, "localhost:5810"},
		{"host with port", Config{Server: "127.0.0.1:5811", Port: 5810}, "127.0.0.1:5811"},
		{"server wins over team", Config{Server: "sim", Team: 254, Port: 1}, "sim:1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Address(); got != tc.want {
				t.Errorf("Address: got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestConfig_URL(t *testing.T) {
	cfg := Config{Server: "localhost", Port: 5810, ClientName: "vision/1"}
	want := "ws://localhost:5810/nt/vision_1"
	if got := cfg.URL(); got != want {
		t.Errorf("URL: got %s, want %s", got, want)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()
	base.Team = 254

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid team", func(c *Config) {}, false},
		{"valid server", func(c *Config) { c.Team = 0; c.Server = "localhost" }, false},
		{"no target", func(c *Config) { c.Team = 0 }, true},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"no name", func(c *Config) { c.ClientName = "" }, true},
		{"negative attempts", func(c *Config) { c.MaxAttempts = -1 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDefaultConfig_UniqueName(t *testing.T) {
	a, b := DefaultConfig(), DefaultConfig()
	if !strings.HasPrefix(a.ClientName, "frcvision-") {
		t.Errorf("unexpected client name %q", a.ClientName)
	}
	if a.ClientName == b.ClientName {
		t.Errorf("client names should differ, both %q", a.ClientName)
	}
}

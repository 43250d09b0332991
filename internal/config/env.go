// Package config provides configuration helpers for go-frcvision commands:
// environment overrides, .env loading and the JSON descriptors shipped
// with the model directory.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvTeam      = "FRC_TEAM"
	EnvNTServer  = "NT_SERVER"
	EnvMJPEGPort = "MJPEG_PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvGoEnv     = "GO_ENV"
)

// LoadDotEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Team returns the team number from FRC_TEAM.
// Falls back to the provided default if unset or not a number.
func Team(defaultTeam int) int {
	return envInt(EnvTeam, defaultTeam)
}

// NTServer returns the NetworkTables server from NT_SERVER or default.
func NTServer(defaultServer string) string {
	return envString(EnvNTServer, defaultServer)
}

// MJPEGPort returns the web port from MJPEG_PORT or default.
func MJPEGPort(defaultPort int) int {
	return envInt(EnvMJPEGPort, defaultPort)
}

// LogLevel returns the log level from LOG_LEVEL or default.
func LogLevel(defaultLevel string) string {
	return envString(EnvLogLevel, defaultLevel)
}

// Production reports whether GO_ENV is "production".
func Production() bool {
	return os.Getenv(EnvGoEnv) == "production"
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

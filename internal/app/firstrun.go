// Package app holds per-user application state.
package app

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/harspectre/pkg/config"
)

const (
	markerFileName = "first_run_completed"
	appName        = "harspectre"
)

// GetAppConfigDir returns the path to the application's configuration directory.
func GetAppConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// IsFirstRun reports whether the marker file is missing and creates it.
// Errors are logged and treated as "not first run".
func IsFirstRun() bool {
	appConfigDir, err := GetAppConfigDir()
	if err != nil {
		slog.Debug("failed to get app config directory", slog.String("error", err.Error()))
		return false
	}
	return checkMarker(appConfigDir)
}

func checkMarker(dir string) bool {
	markerFilePath := filepath.Join(dir, markerFileName)

	_, err := os.Stat(markerFilePath)
	switch {
	case err == nil:
		slog.Debug("marker file exists, not first run", slog.String("path", markerFilePath))
		return false
	case !errors.Is(err, os.ErrNotExist):
		slog.Debug("failed to check first run marker file", slog.String("path", markerFilePath), slog.String("error", err.Error()))
		return false
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Debug("failed to create app config directory", slog.String("path", dir), slog.String("error", err.Error()))
		return false
	}
	f, err := os.Create(markerFilePath)
	if err != nil {
		slog.Debug("failed to create first run marker file", slog.String("path", markerFilePath), slog.String("error", err.Error()))
		return false
	}
	_ = f.Close()

	slog.Debug("first run detected and marker created", slog.String("path", markerFilePath))
	return true
}

// FirstRunHint is printed once per user. It mentions the API key only
// when none is configured in the environment.
func FirstRunHint() string {
	var b strings.Builder
	b.WriteString("👋 Welcome to harspectre. Run 'harspectre analyze trace.har' to get started.")
	if config.DefaultConfig().ResolveAPIKey() == "" {
		b.WriteString("\n   Set " + strings.Join(config.APIKeyEnvVars, " or ") + " to enable 'harspectre review'.")
	}
	return b.String()
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppDirName       = ".casualty-dispatch"
	ConfigFileName   = "config.yaml"
	JournalFileName  = "journal.db"
	GeocodedFileName = "geocoded_addresses.csv"
)

// GetAppDir returns ~/.casualty-dispatch, creating it if needed
func GetAppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, AppDirName)
	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}

	return appDir, nil
}

// GetConfigFilePath returns ~/.casualty-dispatch/config.yaml
func GetConfigFilePath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, ConfigFileName), nil
}

// GetDefaultJournalPath returns ~/.casualty-dispatch/journal.db
func GetDefaultJournalPath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, JournalFileName), nil
}

// GetGeocodedTablePath returns the default output of the address preparation tool
func GetGeocodedTablePath() (string, error) {
	appDir, err := GetAppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, GeocodedFileName), nil
}

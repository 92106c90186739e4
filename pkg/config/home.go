package config

import (
	"os"
	"path/filepath"
	"sync"
)

const (
	envHome = "DROIDSCAN_HOME"
	homeDot = ".droidscan"
)

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the directory droidscan keeps snapshots and logs under:
// $DROIDSCAN_HOME, else ~/.droidscan, else the working directory.
// The result is cached for the life of the process.
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetSnapshotsDir is the default snapshot root.
func GetSnapshotsDir() string {
	return filepath.Join(GetHome(), "snapshots")
}

func GetLogsDir() string {
	return filepath.Join(GetHome(), "logs")
}

func resolveHome() string {
	if env := os.Getenv(envHome); env != "" {
		return env
	}
	if user, err := os.UserHomeDir(); err == nil && user != "" {
		return filepath.Join(user, homeDot)
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// ResetHome drops the cached home so tests can change DROIDSCAN_HOME.
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}

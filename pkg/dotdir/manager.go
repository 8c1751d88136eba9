// Package dotdir manages the .ragline/ and ~/.ragline directories.
//
// The directory holds config.toml, an optional .env file, and the active
// conversation that "ragline ask" resumes between invocations.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName = ".ragline"

	// HomeEnv names a directory used in place of ./.ragline and ~/.ragline.
	HomeEnv = "RAGLINE_HOME"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target resolves and creates the ragline directory, returning its absolute
// path. The first match wins: overrideDir, $RAGLINE_HOME, ./.ragline if it
// exists, then ~/.ragline.
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case os.Getenv(HomeEnv) != "":
		dir = os.Getenv(HomeEnv)

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating ragline directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}

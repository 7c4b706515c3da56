package cmd

import (
	"io/fs"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/taskflows/taskflows/internal/log"
)

// FileSystem is the slice of filesystem access commands need: probing
// manifest paths and reading manifest files.
type FileSystem interface {
	Stat(string) (fs.FileInfo, error)
	ReadFile(string) ([]byte, error)
	MkdirAll(string, fs.FileMode) error
}

// FileSystemOps is the production FileSystem. Tests override individual
// operations through the Func fields; anything left nil falls through to
// the os package.
type FileSystemOps struct {
	StatFunc     func(string) (fs.FileInfo, error)
	ReadFileFunc func(string) ([]byte, error)
	MkdirAllFunc func(string, fs.FileMode) error
}

var _ FileSystem = (*FileSystemOps)(nil)

// Stat probes a path.
func (f *FileSystemOps) Stat(path string) (fs.FileInfo, error) {
	if f.StatFunc != nil {
		return f.StatFunc(path)
	}
	return os.Stat(path)
}

// ReadFile reads a whole file.
func (f *FileSystemOps) ReadFile(path string) ([]byte, error) {
	if f.ReadFileFunc != nil {
		return f.ReadFileFunc(path)
	}
	return os.ReadFile(path) //nolint:gosec // Paths come from operator flags and config.
}

// MkdirAll creates a directory tree.
func (f *FileSystemOps) MkdirAll(path string, perm fs.FileMode) error {
	if f.MkdirAllFunc != nil {
		return f.MkdirAllFunc(path, perm)
	}
	return os.MkdirAll(path, perm)
}

// NotifyFunc matches daemon.SdNotify so readiness notification can be
// faked in tests.
type NotifyFunc func(unsetEnvironment bool, state string) (bool, error)

// CommonDeps carries the injectable collaborators shared by commands:
// a clock, filesystem access, and the logger.
type CommonDeps struct {
	Clock      clock.Clock
	FileSystem FileSystem
	Logger     log.Logger
}

// NewRootDeps builds production CommonDeps for a command from the App.
func NewRootDeps(app *App) CommonDeps {
	return CommonDeps{
		Clock:      clock.New(),
		FileSystem: &FileSystemOps{},
		Logger:     app.Logger,
	}
}

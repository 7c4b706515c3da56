// Package fs owns the on-disk unit files taskflows writes. Files are always
// replaced wholesale; there are no partial updates.
package fs

import (
	"crypto/sha1" //nolint:gosec // Not used for security purposes, just content tracking
	"fmt"
	"os"
	"path/filepath"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/log"
)

// Service provides unit file operations rooted at the configured unit
// directory.
type Service struct {
	configProvider config.Provider
	logger         log.Logger
}

// NewService creates a new filesystem service.
func NewService(configProvider config.Provider, logger log.Logger) *Service {
	return &Service{
		configProvider: configProvider,
		logger:         logger,
	}
}

// UnitDir returns the directory unit files are written to.
func (s *Service) UnitDir() string {
	return s.configProvider.GetConfig().UnitDir
}

// UnitFilePath returns the full path for a unit file name.
func (s *Service) UnitFilePath(name string) string {
	return filepath.Join(s.UnitDir(), name)
}

// WriteUnitFile writes a unit file under the unit directory, creating the
// directory if needed and replacing any existing file. The returned path is
// the file's final location.
func (s *Service) WriteUnitFile(name string, content []byte) (string, error) {
	if err := os.MkdirAll(s.UnitDir(), 0750); err != nil {
		return "", fmt.Errorf("failed to create unit directory: %w", err)
	}

	path := s.UnitFilePath(name)
	if _, err := os.Stat(path); err == nil {
		s.logger.Warn("Replacing existing unit", "path", path)
	} else {
		s.logger.Info("Creating new unit", "path", path)
	}

	if err := os.WriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("failed to write unit file %s: %w", path, err)
	}
	return path, nil
}

// ReadUnitFile returns the content of a unit file by path.
func (s *Service) ReadUnitFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path) //nolint:gosec // Paths come from the manager's unit file listing
	if err != nil {
		return nil, fmt.Errorf("failed to read unit file %s: %w", path, err)
	}
	return content, nil
}

// RemoveUnitFile deletes a unit file by path. A missing file is an error,
// propagated to the caller.
func (s *Service) RemoveUnitFile(path string) error {
	s.logger.Debug("Removing unit file", "path", path)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove unit file %s: %w", path, err)
	}
	return nil
}

// ContentHash calculates a SHA1 hash of unit content for change tracking in
// the run history store.
func ContentHash(content []byte) string {
	hash := sha1.New() //nolint:gosec // Not used for security purposes, just for content tracking
	hash.Write(content)
	return fmt.Sprintf("%x", hash.Sum(nil))
}

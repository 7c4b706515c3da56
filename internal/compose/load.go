// Package compose imports Docker Compose projects as managed container
// services. Loading goes through compose-go so interpolation, env files, and
// schema validation behave exactly as they do for the compose CLI; the
// resulting project is then converted to services that start and stop the
// project's containers through the configured engine.
package compose

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
)

// LoadOptions contains optional configuration for Load.
type LoadOptions struct {
	// Workdir sets the base directory for resolving relative paths. If not
	// specified, the directory containing the compose file is used.
	Workdir string

	// Environment sets variables used for interpolation in the compose
	// file, taking precedence over env files.
	Environment map[string]string

	// EnvFiles lists .env files loaded before parsing the compose file.
	EnvFiles []string
}

// Load loads a compose project from the filesystem. The path may name a
// compose file directly or a directory holding compose.yaml, compose.yml,
// docker-compose.yaml, or docker-compose.yml.
func Load(ctx context.Context, path string, opts *LoadOptions) (*types.Project, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if opts == nil {
		opts = &LoadOptions{}
	}

	pathInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(path, err)
		}
		return nil, badPath(path, err)
	}

	var filePath, workdir string
	if pathInfo.IsDir() {
		filePath = findComposeFile(path)
		if filePath == "" {
			return nil, notFound(path, errors.New("no compose file found"))
		}
		workdir = path
	} else {
		filePath = path
		workdir = filepath.Dir(path)
	}
	if opts.Workdir != "" {
		workdir = opts.Workdir
	}

	envMap := make(map[string]string)
	for _, envFile := range opts.EnvFiles {
		if err := loadEnvFile(envFile, envMap); err != nil {
			return nil, badPath(envFile, err)
		}
	}
	// A .env next to the compose file participates in interpolation, the
	// same way the compose CLI treats it.
	defaultEnvFile := filepath.Join(workdir, ".env")
	if _, err := os.Stat(defaultEnvFile); err == nil {
		_ = loadEnvFile(defaultEnvFile, envMap)
	}
	maps.Copy(envMap, opts.Environment)

	configDetails, err := loader.LoadConfigFiles(ctx, []string{filePath}, workdir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(filePath, err)
		}
		if isYAMLError(err) {
			return nil, badYAML(err)
		}
		return nil, badPath(filePath, err)
	}

	if configDetails.Environment == nil {
		configDetails.Environment = make(types.Mapping)
	}
	for key, val := range envMap {
		if _, exists := configDetails.Environment[key]; !exists {
			configDetails.Environment[key] = val
		}
	}

	// The project name seeds every derived service and container name, so
	// set it from the directory before loading.
	projectName := filepath.Base(workdir)
	loaderOpts := []func(*loader.Options){
		func(o *loader.Options) {
			o.SetProjectName(projectName, false)
		},
	}

	project, err := loader.LoadWithContext(ctx, *configDetails, loaderOpts...)
	if err != nil {
		if isYAMLError(err) {
			return nil, badYAML(err)
		}
		return nil, loaderFailed(err)
	}
	return project, nil
}

// composeFileNames are the file names probed when Load is given a
// directory, in precedence order.
var composeFileNames = []string{
	"compose.yaml",
	"compose.yml",
	"docker-compose.yaml",
	"docker-compose.yml",
}

// findComposeFile returns the path of the first compose file present in
// dir, or "" when none of the known names exist.
func findComposeFile(dir string) string {
	for _, name := range composeFileNames {
		fullPath := filepath.Join(dir, name)
		if _, err := os.Stat(fullPath); err == nil {
			return fullPath
		}
	}
	return ""
}

// loadEnvFile loads KEY=value pairs from a .env file into the provided map.
// Blank lines and lines starting with # are skipped.
func loadEnvFile(filePath string, envMap map[string]string) error {
	content, err := os.ReadFile(filePath) //nolint:gosec // Env file paths come from load options
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		key, val, found := strings.Cut(line, "=")
		if found && key != "" {
			envMap[key] = val
		}
	}
	return nil
}

// isYAMLError reports whether a loader failure stems from document content
// rather than the filesystem.
func isYAMLError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, os.ErrNotExist) && !errors.Is(err, os.ErrPermission)
}

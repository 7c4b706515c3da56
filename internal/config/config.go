// Package config provides configuration management for taskflows
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Provider hands out and accepts the application settings. Commands receive
// one through the App container rather than touching package state.
type Provider interface {
	// GetConfig returns the current application configuration.
	GetConfig() *Settings
	// SetConfig replaces the application configuration.
	SetConfig(c *Settings)
	// InitConfig loads configuration from defaults, file, and environment.
	InitConfig() *Settings
	// SetConfigFilePath pins the configuration file to read.
	SetConfigFilePath(p string)
}

// defaultConfigProvider is the viper-backed Provider.
type defaultConfigProvider struct {
	cfg *Settings
}

// NewDefaultConfigProvider returns an empty provider; call InitConfig or
// SetConfig before reading from it.
func NewDefaultConfigProvider() Provider {
	return &defaultConfigProvider{}
}

var defaultProvider = NewDefaultConfigProvider()

// Default configuration values. Taskflows runs against the user service
// manager unless told otherwise, so the unqualified defaults are the
// per-user paths and the DefaultSystem* constants cover system mode.
const (
	DefaultUnitDir       = "$HOME/.config/systemd/user"
	DefaultManifestDir   = "$HOME/.config/taskflows/manifests"
	DefaultRepositoryDir = "$HOME/.local/share/taskflows"
	DefaultDBPath        = "$HOME/.local/share/taskflows/taskflows.db"

	DefaultSystemUnitDir       = "/etc/systemd/system"
	DefaultSystemManifestDir   = "/etc/taskflows/manifests"
	DefaultSystemRepositoryDir = "/var/lib/taskflows"
	DefaultSystemDBPath        = "/var/lib/taskflows/taskflows.db"

	DefaultSyncInterval    = 5 * time.Minute
	DefaultUserMode        = true
	DefaultVerbose         = false
	DefaultContainerEngine = "docker"
)

// Repository represents a git repository holding task manifests that
// taskflows keeps in sync. Reference may be a branch, tag, or commit hash;
// ManifestDir restricts manifest discovery to a subdirectory of the clone.
type Repository struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Reference   string `yaml:"ref,omitempty"`
	ManifestDir string `yaml:"manifestDir,omitempty"`
}

// Settings represents the configuration for the taskflows system. It contains
// the unit and manifest directories, synced repositories, database path,
// service manager mode, and container engine selection.
type Settings struct {
	UnitDir         string        `yaml:"unitDir"`
	ManifestDir     string        `yaml:"manifestDir"`
	RepositoryDir   string        `yaml:"repositoryDir"`
	Repositories    []Repository  `yaml:"repositories"`
	DBPath          string        `yaml:"dbPath"`
	SyncInterval    time.Duration `yaml:"syncInterval"`
	UserMode        bool          `yaml:"userMode"`
	Verbose         bool          `yaml:"verbose"`
	ContainerEngine string        `yaml:"containerEngine"`
	PodmanURI       string        `yaml:"podmanUri"`
}

func (p *defaultConfigProvider) SetConfig(c *Settings) {
	p.cfg = c
}

func (p *defaultConfigProvider) GetConfig() *Settings {
	return p.cfg
}

func (p *defaultConfigProvider) SetConfigFilePath(path string) {
	viper.SetConfigFile(path)
}

func (p *defaultConfigProvider) InitConfig() *Settings {
	p.cfg = initConfigInternal()
	return p.cfg
}

// DefaultProvider returns the process-wide config provider.
func DefaultProvider() Provider {
	return defaultProvider
}

// Package-level helpers that proxy the process-wide provider.

// SetConfig stores c on the process-wide provider.
func SetConfig(c *Settings) {
	defaultProvider.SetConfig(c)
}

// GetConfig returns the current application configuration.
func GetConfig() *Settings {
	return defaultProvider.GetConfig()
}

// SetConfigFilePath pins the configuration file viper reads instead of
// searching the usual locations.
func SetConfigFilePath(p string) {
	defaultProvider.SetConfigFilePath(p)
}

// InitConfig loads configuration from defaults, file, and environment.
func InitConfig() *Settings {
	return defaultProvider.InitConfig()
}

// initConfigInternal seeds the settings with defaults, overlays whatever
// config file viper finds, and expands path variables.
func initConfigInternal() *Settings {
	cfg := &Settings{
		UnitDir:         DefaultUnitDir,
		ManifestDir:     DefaultManifestDir,
		RepositoryDir:   DefaultRepositoryDir,
		DBPath:          DefaultDBPath,
		SyncInterval:    DefaultSyncInterval,
		UserMode:        DefaultUserMode,
		Verbose:         DefaultVerbose,
		ContainerEngine: DefaultContainerEngine,
	}

	viper.SetDefault("unitDir", DefaultUnitDir)
	viper.SetDefault("manifestDir", DefaultManifestDir)
	viper.SetDefault("repositoryDir", DefaultRepositoryDir)
	viper.SetDefault("dbPath", DefaultDBPath)
	viper.SetDefault("syncInterval", DefaultSyncInterval)
	viper.SetDefault("userMode", DefaultUserMode)
	viper.SetDefault("verbose", DefaultVerbose)
	viper.SetDefault("containerEngine", DefaultContainerEngine)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(os.ExpandEnv("$HOME/.config/taskflows"))
	viper.AddConfigPath("/etc/taskflows")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		panic(err)
	}

	ExpandPaths(cfg)
	return cfg
}

// ExpandPaths resolves $HOME style variables in the configured paths. Called
// after defaults are loaded and again by anything that swaps path sets, such
// as the system-mode switch.
func ExpandPaths(cfg *Settings) {
	cfg.UnitDir = os.ExpandEnv(cfg.UnitDir)
	cfg.ManifestDir = os.ExpandEnv(cfg.ManifestDir)
	cfg.RepositoryDir = os.ExpandEnv(cfg.RepositoryDir)
	cfg.DBPath = os.ExpandEnv(cfg.DBPath)
}

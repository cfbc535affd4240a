package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default values
const (
	DefaultDatabasePath = "rowdb.db"
	DefaultFilesRoot    = "files"
	DefaultCodec        = "json"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("database.readonly", false)

	// File-backed column defaults
	v.SetDefault("files.root", DefaultFilesRoot)
	v.SetDefault("files.codec", DefaultCodec)

	// Logging defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.verbosity", 0)
}

// BindEnvVars binds settings that are commonly overridden per shell
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH")
	v.BindEnv("database.readonly", EnvPrefix+"_DATABASE_READONLY")
	v.BindEnv("files.root", EnvPrefix+"_FILES_ROOT")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath // Fallback default
	}
	return c.Database.Path
}

// GetFilesRoot returns the root for relative file folders
func (c *Config) GetFilesRoot() string {
	if c.Files.Root == "" {
		return DefaultFilesRoot
	}
	return c.Files.Root
}

// GetCodec returns the default file codec
func (c *Config) GetCodec() string {
	if c.Files.Codec == "" {
		return DefaultCodec
	}
	return c.Files.Codec
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Readonly: %t, Files: %s (%s)}",
		c.GetDatabasePath(), c.Database.Readonly, c.GetFilesRoot(), c.GetCodec())
}

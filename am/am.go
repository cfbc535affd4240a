// Package am loads rowdb configuration ("I am").
//
// Settings cascade from built-in defaults through /etc/rowdb/config.toml,
// ~/.rowdb/config.toml and the nearest project rowdb.toml, with ROWDB_*
// environment variables on top.
package am

// Config represents the rowdb configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" json:"database" yaml:"database" toml:"database"`
	Files    FilesConfig    `mapstructure:"files" json:"files" yaml:"files" toml:"files"`
	Log      LogConfig      `mapstructure:"log" json:"log" yaml:"log" toml:"log"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path          string `mapstructure:"path" json:"path" yaml:"path" toml:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms" json:"busy_timeout_ms" yaml:"busy_timeout_ms" toml:"busy_timeout_ms"` // 0 = driver default (5000)
	Readonly      bool   `mapstructure:"readonly" json:"readonly" yaml:"readonly" toml:"readonly"`
}

// FilesConfig configures file-backed columns
type FilesConfig struct {
	Root  string `mapstructure:"root" json:"root" yaml:"root" toml:"root"`     // relative files= folders resolve here
	Codec string `mapstructure:"codec" json:"codec" yaml:"codec" toml:"codec"` // default codec for reflected file columns: json, cbor, raw
}

// LogConfig configures logging
type LogConfig struct {
	JSON      bool `mapstructure:"json" json:"json" yaml:"json" toml:"json"`
	Verbosity int  `mapstructure:"verbosity" json:"verbosity" yaml:"verbosity" toml:"verbosity"` // same scale as -v count
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// Config file names
const (
	SystemConfigPath  = "/etc/rowdb/config.toml"
	UserConfigDir     = ".rowdb"
	UserConfigName    = "config.toml"
	ProjectConfigName = "rowdb.toml"
	EnvPrefix         = "ROWDB"
)

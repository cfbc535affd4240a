package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Create isolated viper instance without loading user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.Database.Path != DefaultDatabasePath {
		t.Errorf("expected default database path %q, got %q", DefaultDatabasePath, cfg.Database.Path)
	}
	if cfg.Database.BusyTimeoutMS != 5000 {
		t.Errorf("expected default busy timeout 5000, got %d", cfg.Database.BusyTimeoutMS)
	}
	if cfg.Files.Codec != "json" {
		t.Errorf("expected default codec json, got %q", cfg.Files.Codec)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "zero values are valid", config: Config{}},
		{name: "negative busy timeout", config: Config{Database: DatabaseConfig{BusyTimeoutMS: -1}}, wantErr: true},
		{name: "cbor codec", config: Config{Files: FilesConfig{Codec: "cbor"}}},
		{name: "unknown codec", config: Config{Files: FilesConfig{Codec: "xml"}}, wantErr: true},
		{name: "negative verbosity", config: Config{Log: LogConfig{Verbosity: -1}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetters(t *testing.T) {
	var c Config
	assert.Equal(t, DefaultDatabasePath, c.GetDatabasePath())
	assert.Equal(t, DefaultFilesRoot, c.GetFilesRoot())
	assert.Equal(t, DefaultCodec, c.GetCodec())
	assert.Contains(t, c.String(), DefaultDatabasePath)
}

// isolate points HOME and the working directory at fresh temp dirs so no
// real config file leaks into the test.
func isolate(t *testing.T) (home, project string) {
	t.Helper()
	Reset()
	t.Cleanup(Reset)
	home = t.TempDir()
	project = t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(project)
	return home, project
}

func TestCascade(t *testing.T) {
	home, project := isolate(t)

	userDir := filepath.Join(home, UserConfigDir)
	require.NoError(t, os.MkdirAll(userDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, UserConfigName), []byte(`
[database]
path = "user.db"
busy_timeout_ms = 100

[files]
codec = "cbor"
`), 0644))

	require.NoError(t, os.WriteFile(filepath.Join(project, ProjectConfigName), []byte(`
[database]
path = "project.db"
`), 0644))

	// Project config is found from a subdirectory
	sub := filepath.Join(project, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0755))
	t.Chdir(sub)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "project.db", cfg.Database.Path, "project overrides user")
	assert.Equal(t, 100, cfg.Database.BusyTimeoutMS, "user overrides default")
	assert.Equal(t, "cbor", cfg.Files.Codec)
	assert.Equal(t, DefaultFilesRoot, cfg.Files.Root)

	same, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg, same, "Load caches until Reset")

	sources := map[string]SettingInfo{}
	for _, s := range Introspect() {
		sources[s.Key] = s
	}
	assert.Equal(t, SourceProject, sources["database.path"].Source)
	assert.Equal(t, filepath.Join(project, ProjectConfigName), sources["database.path"].SourcePath)
	assert.Equal(t, SourceUser, sources["database.busy_timeout_ms"].Source)
	assert.Equal(t, SourceDefault, sources["files.root"].Source)
}

func TestEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("ROWDB_DATABASE_PATH", "env.db")
	t.Setenv("ROWDB_LOG_VERBOSITY", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database.Path)
	assert.Equal(t, 2, cfg.Log.Verbosity)
	assert.Equal(t, "env.db", GetString("database.path"))

	for _, s := range Introspect() {
		if s.Key == "database.path" {
			assert.Equal(t, SourceEnvironment, s.Source)
			assert.Equal(t, "ROWDB_DATABASE_PATH", s.SourcePath)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\njson = true\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

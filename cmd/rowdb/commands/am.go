package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/rowdb/am"
	"github.com/teranos/rowdb/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage rowdb configuration",
	Long: sym.AM + ` am - Manage rowdb configuration ("I am")

Display and manage rowdb configuration settings.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (ROWDB_* prefix)
3. Project config (nearest rowdb.toml, searching up directories)
4. User config (~/.rowdb/config.toml)
5. System config (/etc/rowdb/config.toml)
6. Default values

Examples:
  rowdb am show                    # Show current configuration
  rowdb am show --format json      # Show configuration in JSON format
  rowdb am get database.path       # Get specific config value
  rowdb am set files.codec cbor    # Write a value to ./rowdb.toml
  rowdb am validate                # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current rowdb configuration from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, files.codec)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a configuration value",
	Long: `Write a configuration value into the project config (./rowdb.toml),
or the user config with --user. The previous file is kept as .back1 to .back3.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the current rowdb configuration is valid",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and which files were checked.

Lists all configuration sources in order of precedence, showing
which files exist and which setting each one supplies.`,
	RunE: runAmWhere,
}

var (
	configFormat string
	setUser      bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amSetCmd.Flags().BoolVar(&setUser, "user", false, "Write to ~/.rowdb/config.toml instead of ./rowdb.toml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(out, "# rowdb configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Fprintf(out, "# rowdb configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !am.GetViper().IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	path := am.ProjectConfigName
	if setUser {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to locate home directory: %w", err)
		}
		path = filepath.Join(home, am.UserConfigDir, am.UserConfigName)
	}

	if err := am.SetValue(path, key, parseScalar(raw)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s (%s)\n", key, raw, path)
	return nil
}

// parseScalar keeps TOML types for booleans and integers.
func parseScalar(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  [DEFAULT]  Built-in defaults")
	for _, entry := range am.CascadePaths() {
		status := "missing"
		if _, err := os.Stat(entry.Path); err == nil {
			status = "found"
		}
		fmt.Fprintf(out, "  %-10s %s (%s)\n", "["+strings.ToUpper(string(entry.Source))+"]", entry.Path, status)
	}
	fmt.Fprintf(out, "  [ENV]      %s_* environment variables\n", am.EnvPrefix)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Active configuration:")
	for _, s := range am.Introspect() {
		origin := string(s.Source)
		if s.SourcePath != "" {
			origin += " " + s.SourcePath
		}
		fmt.Fprintf(out, "  %-24s = %-20v (%s)\n", s.Key, s.Value, origin)
	}
	return nil
}

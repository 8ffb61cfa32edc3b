package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CASEWATCH_TELEGRAM_TOKEN
const EnvPrefix = "CASEWATCH"

// Loader handles configuration loading from various sources
type Loader struct {
	configDir func() (string, error)
	workDir   func() (string, error)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		configDir: os.UserConfigDir,
		workDir:   os.Getwd,
	}
}

// LoadForRun loads configuration for a status check run. Positional
// arguments are treated as additional receipt numbers.
func (l *Loader) LoadForRun(cmd *cobra.Command, args []string) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig()
	l.setupEnv()

	if err := l.bindCommandFlags(cmd); err != nil {
		return nil, err
	}

	if len(args) > 0 {
		viper.Set("receipts", append(viper.GetStringSlice("receipts"), args...))
	}

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("endpoint", DefaultEndpoint)
	viper.SetDefault("user_agent", DefaultUserAgent)
	viper.SetDefault("status_path", DefaultStatusPath)
	viper.SetDefault("description_path", DefaultDescriptionPath)
	viper.SetDefault("timeout", DefaultTimeout)
	viper.SetDefault("retries", DefaultRetries)
	viper.SetDefault("max_message_length", DefaultMaxMessageLength)
	viper.SetDefault("fail_fast", DefaultFailFast)
	viper.SetDefault("no_color", DefaultNoColor)
	viper.SetDefault("log_level", DefaultLogLevel)
}

// loadGlobalConfig loads global configuration from the user config directory
func (l *Loader) loadGlobalConfig() {
	dir, err := l.configDir()
	if err != nil || dir == "" {
		return
	}

	globalDir := filepath.Join(dir, "casewatch")

	for _, ext := range Extensions {
		globalPath := filepath.Join(globalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.ReadInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig merges the nearest .casewatch config above the working directory
func (l *Loader) loadLocalConfig() {
	dir, err := l.workDir()
	if err != nil {
		return // silently ignore, config.Load() will handle validation
	}

	localPath := FindLocalConfig(dir)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.MergeInConfig()
	}
}

// setupEnv enables CASEWATCH_* environment overrides
func (l *Loader) setupEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) error {
	_ = viper.BindPFlag("receipts", cmd.Flags().Lookup("receipts"))
	_ = viper.BindPFlag("file", cmd.Flags().Lookup("file"))
	_ = viper.BindPFlag("endpoint", cmd.Flags().Lookup("endpoint"))
	_ = viper.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("retries", cmd.Flags().Lookup("retries"))
	_ = viper.BindPFlag("fail_fast", cmd.Flags().Lookup("fail-fast"))
	_ = viper.BindPFlag("no_color", cmd.Flags().Lookup("no-color"))
	_ = viper.BindPFlag("log_level", cmd.Flags().Lookup("log-level"))

	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		viper.Set("log_level", "debug")
	}

	// --telegram carries two values, so it maps onto two keys by hand
	if f := cmd.Flags().Lookup("telegram"); f != nil && f.Changed {
		values, err := cmd.Flags().GetStringSlice("telegram")
		if err != nil {
			return err
		}

		if len(values) != 2 {
			return fmt.Errorf("--telegram expects BOT_TOKEN and CHAT_ID (-t BOT_TOKEN,CHAT_ID or -t BOT_TOKEN -t CHAT_ID), got %d value(s)", len(values))
		}

		viper.Set("telegram.token", values[0])
		viper.Set("telegram.chat_id", values[1])
	}

	return nil
}

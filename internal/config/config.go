// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for config and cache paths.
	AppName = "driftfs"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

// configDirOverride lets tests and the --config flag redirect config loading.
var configDirOverride = ""

type (
	// GitHubConfig selects the release source.
	GitHubConfig struct {
		// Owner is the GitHub organization publishing driftfs releases.
		Owner string `mapstructure:"owner"`
		// Repo is the release repository name.
		Repo string `mapstructure:"repo"`
		// APIBase overrides the GitHub API base URL, for GitHub Enterprise
		// deployments. Empty means api.github.com.
		APIBase string `mapstructure:"api_base"`
	}

	// UpgradeConfig tunes the staged-upgrade workflow.
	UpgradeConfig struct {
		// StagingDir overrides where release assets are staged before
		// install. Empty means the user cache directory.
		StagingDir string `mapstructure:"staging_dir"`
	}

	// UIConfig holds console presentation settings.
	UIConfig struct {
		Verbose bool `mapstructure:"verbose"`
	}

	// Config is the global driftfs configuration, loaded from
	// <config-dir>/driftfs/config.toml with DRIFTFS_* env overrides.
	Config struct {
		GitHub  GitHubConfig  `mapstructure:"github"`
		Upgrade UpgradeConfig `mapstructure:"upgrade"`
		UI      UIConfig      `mapstructure:"ui"`
	}
)

// ConfigDir returns the driftfs configuration directory.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// SetConfigDirOverride redirects config loading. Pass "" to restore the
// default.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// StagingDir returns the directory where release assets are staged, honoring
// the configured override.
func (c *Config) StagingDir() (string, error) {
	if c.Upgrade.StagingDir != "" {
		return c.Upgrade.StagingDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache directory: %w", err)
	}
	return filepath.Join(base, AppName, "upgrade"), nil
}

// Load reads the global config file, applying defaults for anything unset.
// A missing config file is not an error; the defaults stand.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileExt)
	v.AddConfigPath(dir)
	v.SetEnvPrefix("DRIFTFS")
	// Nested keys hold dots, which shells cannot set; map github.owner to
	// DRIFTFS_GITHUB_OWNER.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.owner", "driftfs")
	v.SetDefault("github.repo", "driftfs")
	v.SetDefault("github.api_base", "")
	v.SetDefault("upgrade.staging_dir", "")
	v.SetDefault("ui.verbose", false)
}

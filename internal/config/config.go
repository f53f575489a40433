package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoggerConfig controls the zap logger and the optional rotated log file.
type LoggerConfig struct {
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the controlled Chrome instance.
type BrowserConfig struct {
	// DebugPort is the remote debugging port Chrome is launched with and the
	// CDP client attaches to.
	DebugPort int `mapstructure:"debug_port" yaml:"debug_port"`
	// ChromePath overrides binary discovery when set.
	ChromePath        string        `mapstructure:"chrome_path" yaml:"chrome_path"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// AgentConfig bounds the dispatch loop and the model round-trip.
type AgentConfig struct {
	MaxSteps       int           `mapstructure:"max_steps" yaml:"max_steps"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// PageTextPreview and FilePreview cap how much cached page text and file
	// content is spliced into a prompt.
	PageTextPreview int `mapstructure:"page_text_preview" yaml:"page_text_preview"`
	FilePreview     int `mapstructure:"file_preview" yaml:"file_preview"`
}

// PathsConfig locates the persisted local state: connection profiles and the
// editable system prompt.
type PathsConfig struct {
	ProfileDir       string `mapstructure:"profile_dir" yaml:"profile_dir"`
	SystemPromptFile string `mapstructure:"system_prompt_file" yaml:"system_prompt_file"`
}

// Config is the root application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Paths   PathsConfig   `mapstructure:"paths" yaml:"paths"`
}

func setDefaults(v *viper.Viper, baseDir string) {
	v.SetDefault("logger.service_name", "deskpilot")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("browser.debug_port", 9222)
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.action_timeout", 3*time.Second)

	v.SetDefault("agent.max_steps", 30)
	v.SetDefault("agent.request_timeout", 90*time.Second)
	v.SetDefault("agent.max_tokens", 4000)
	v.SetDefault("agent.page_text_preview", 2000)
	v.SetDefault("agent.file_preview", 8000)

	v.SetDefault("paths.profile_dir", filepath.Join(baseDir, "profiles"))
	v.SetDefault("paths.system_prompt_file", filepath.Join(baseDir, "system_prompt.txt"))
}

// Load reads the configuration from the given file (optional) on top of
// defaults and the environment. A missing config file is not an error; a
// malformed one is.
func Load(cfgFile string) (*Config, error) {
	// .env is a convenience for API keys during development; absence is fine.
	_ = godotenv.Load()

	baseDir, err := os.UserConfigDir()
	if err != nil {
		baseDir = "."
	} else {
		baseDir = filepath.Join(baseDir, "deskpilot")
	}

	v := viper.New()
	setDefaults(v, baseDir)
	v.SetEnvPrefix("DESKPILOT")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("deskpilot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(baseDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			// An explicitly named file must exist and parse.
			return nil, fmt.Errorf("reading config file %q: %w", cfgFile, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	FMP     FMPConfig     `yaml:"fmp" envconfig:"FMP"`
	Macro   MacroConfig   `yaml:"macro" envconfig:"MACRO"`
	Batch   BatchConfig   `yaml:"batch" envconfig:"BATCH"`
	Git     GitConfig     `yaml:"git" envconfig:"GIT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/divrisk.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir     string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR" default:"features_data"`
	LogsDir     string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
	TickersFile string `yaml:"tickers_file" envconfig:"TICKERS_FILE" default:"config/tickers.txt"`
}

// FMPConfig contains Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey     string        `yaml:"api_key" envconfig:"API_KEY"`
	BaseURL    string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://financialmodelingprep.com/api/v3"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
	MaxRetries int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3"`
	RPS        float64       `yaml:"rps" envconfig:"RPS" default:"4"`
	Burst      int           `yaml:"burst" envconfig:"BURST" default:"4"`
	Preflight  bool          `yaml:"preflight" envconfig:"PREFLIGHT" default:"false"`
}

// MacroConfig contains World Bank macro data configuration
type MacroConfig struct {
	BaseURL   string   `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.worldbank.org/v2"`
	Countries []string `yaml:"countries" envconfig:"COUNTRIES" default:"United States"`
	StartYear int      `yaml:"start_year" envconfig:"START_YEAR" default:"2000"`
}

// BatchConfig controls the ticker batch runner
type BatchConfig struct {
	StartYear         int           `yaml:"start_year" envconfig:"START_YEAR" default:"2021"`
	EndYear           int           `yaml:"end_year" envconfig:"END_YEAR" default:"0"`
	Tickers           []string      `yaml:"tickers" envconfig:"TICKERS"`
	OverwriteMode     string        `yaml:"overwrite_mode" envconfig:"OVERWRITE_MODE" default:"append"`
	SleepBetweenCalls time.Duration `yaml:"sleep_between_calls" envconfig:"SLEEP_BETWEEN_CALLS" default:"1s"`
	MaxConsecutive429 int           `yaml:"max_consecutive_429" envconfig:"MAX_CONSECUTIVE_429" default:"6"`
	GlobalBudget      time.Duration `yaml:"global_budget" envconfig:"GLOBAL_BUDGET" default:"60m"`
	DividendLookback  int           `yaml:"dividend_lookback" envconfig:"DIVIDEND_LOOKBACK" default:"5"`
	FundamentalYears  int           `yaml:"fundamental_years" envconfig:"FUNDAMENTAL_YEARS" default:"4"`
	Strict            bool          `yaml:"strict" envconfig:"STRICT" default:"false"`
}

// GitConfig controls the git snapshot step
type GitConfig struct {
	Enabled    bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Remote     string `yaml:"remote" envconfig:"REMOTE" default:"origin"`
	Branch     string `yaml:"branch" envconfig:"BRANCH" default:"main"`
	AuthorName string `yaml:"author_name" envconfig:"AUTHOR_NAME" default:"divrisk-bot"`
	AuthorMail string `yaml:"author_mail" envconfig:"AUTHOR_MAIL" default:"divrisk-bot@localhost"`
}

// OverwriteModes lists the accepted values for Batch.OverwriteMode.
var OverwriteModes = map[string]bool{
	"append":    true,
	"overwrite": true,
	"skip":      true,
}

// Load loads configuration from environment variables and an optional
// YAML config file. Environment variables take precedence.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DIVRISK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// configFilePath returns the config file location, overridable for tests.
func configFilePath() string {
	if p := os.Getenv("DIVRISK_CONFIG_FILE"); p != "" {
		return p
	}
	return "config/divrisk.yaml"
}

func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence).
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.FMP.APIKey == "" {
		envConfig.FMP.APIKey = fileConfig.FMP.APIKey
	}
	if envConfig.Paths.BaseDir == "" {
		envConfig.Paths.BaseDir = fileConfig.Paths.BaseDir
	}
	if len(envConfig.Batch.Tickers) == 0 {
		envConfig.Batch.Tickers = fileConfig.Batch.Tickers
	}
	if len(fileConfig.Macro.Countries) > 0 && isDefaultCountries(envConfig.Macro.Countries) {
		envConfig.Macro.Countries = fileConfig.Macro.Countries
	}
	return envConfig
}

func isDefaultCountries(countries []string) bool {
	return len(countries) == 1 && countries[0] == "United States"
}

func (c *Config) validate() error {
	mode := strings.ToLower(c.Batch.OverwriteMode)
	if !OverwriteModes[mode] {
		return fmt.Errorf("invalid overwrite mode %q (must be append, overwrite or skip)", c.Batch.OverwriteMode)
	}
	c.Batch.OverwriteMode = mode

	if c.Batch.StartYear < 1990 {
		return fmt.Errorf("start year %d is before 1990", c.Batch.StartYear)
	}
	if c.Batch.EndYear == 0 {
		c.Batch.EndYear = time.Now().Year()
	}
	if c.Batch.EndYear < c.Batch.StartYear {
		return fmt.Errorf("end year %d is before start year %d", c.Batch.EndYear, c.Batch.StartYear)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}

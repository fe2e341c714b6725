package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxPhotoSize  = 15 * 1024 * 1024 // 15MB, phone cameras
	DefaultMaxReportSize = 100 * 1024 * 1024
	DefaultReportPrefix  = "TKE_Inspeccion"
	DefaultGeminiModel   = "gemini-1.5-flash"
	DefaultGeminiURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultAnalyzeRPS    = 0.2

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the inspection report service
type Config struct {
	// Server configuration
	Mode string // "server" (web form) or "stdio" (MCP)
	Host string
	Port int

	// Report configuration
	ReportDirectory string
	ReportPrefix    string
	MaxPhotoSize    int64
	MaxReportSize   int64

	// Photo analysis
	GeminiAPIKey string
	GeminiModel  string
	GeminiURL    string
	AnalyzeRPS   float64

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeServer,
		Host:            DefaultHost,
		Port:            DefaultPort,
		ReportDirectory: currentDir,
		ReportPrefix:    DefaultReportPrefix,
		MaxPhotoSize:    DefaultMaxPhotoSize,
		MaxReportSize:   DefaultMaxReportSize,
		GeminiModel:     DefaultGeminiModel,
		GeminiURL:       DefaultGeminiURL,
		AnalyzeRPS:      DefaultAnalyzeRPS,
		Version:         "1.0.0",
		ServerName:      "inspection-report",
		LogLevel:        DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.ReportDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.ReportDirectory); err == nil {
			cfg.ReportDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("INSPECTION")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.ReportDirectory)
	viper.SetDefault("prefix", cfg.ReportPrefix)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxphotosize", cfg.MaxPhotoSize)
	viper.SetDefault("maxreportsize", cfg.MaxReportSize)
	viper.SetDefault("gemini_key", cfg.GeminiAPIKey)
	viper.SetDefault("gemini_model", cfg.GeminiModel)
	viper.SetDefault("gemini_url", cfg.GeminiURL)
	viper.SetDefault("analyze_rps", cfg.AnalyzeRPS)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for the web form, 'stdio' for MCP standard I/O")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.ReportDirectory, "Directory for exported reports and MCP photo paths")
	pflag.String("prefix", cfg.ReportPrefix, "File name prefix of exported reports")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxphotosize", cfg.MaxPhotoSize, "Maximum uploaded photo size in bytes")
	pflag.Int64("maxreportsize", cfg.MaxReportSize, "Maximum generated report size in bytes")
	pflag.String("gemini-key", cfg.GeminiAPIKey, "API key for the optional photo analysis")
	pflag.String("gemini-model", cfg.GeminiModel, "Model used for photo analysis")
	pflag.String("gemini-url", cfg.GeminiURL, "Base URL of the generative language API")
	pflag.Float64("analyze-rps", cfg.AnalyzeRPS, "Photo analysis requests per second allowed (web mode)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("dir", pflag.Lookup("dir"))
	_ = viper.BindPFlag("prefix", pflag.Lookup("prefix"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxphotosize", pflag.Lookup("maxphotosize"))
	_ = viper.BindPFlag("maxreportsize", pflag.Lookup("maxreportsize"))
	_ = viper.BindPFlag("gemini_key", pflag.Lookup("gemini-key"))
	_ = viper.BindPFlag("gemini_model", pflag.Lookup("gemini-model"))
	_ = viper.BindPFlag("gemini_url", pflag.Lookup("gemini-url"))
	_ = viper.BindPFlag("analyze_rps", pflag.Lookup("analyze-rps"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nInspection Report - site inspection form and PDF report generator\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                  # web form on 127.0.0.1:8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --host=0.0.0.0 --port=8081       # web form reachable from phones\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio --dir=/path/reports # MCP tools over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  INSPECTION_MODE          Run mode\n")
		fmt.Fprintf(os.Stderr, "  INSPECTION_HOST          Server host\n")
		fmt.Fprintf(os.Stderr, "  INSPECTION_PORT          Server port\n")
		fmt.Fprintf(os.Stderr, "  INSPECTION_DIR           Report directory\n")
		fmt.Fprintf(os.Stderr, "  INSPECTION_LOGLEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  INSPECTION_GEMINI_KEY    Photo analysis API key\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.ReportDirectory = viper.GetString("dir")
	cfg.ReportPrefix = viper.GetString("prefix")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxPhotoSize = viper.GetInt64("maxphotosize")
	cfg.MaxReportSize = viper.GetInt64("maxreportsize")
	cfg.GeminiAPIKey = viper.GetString("gemini_key")
	cfg.GeminiModel = viper.GetString("gemini_model")
	cfg.GeminiURL = viper.GetString("gemini_url")
	cfg.AnalyzeRPS = viper.GetFloat64("analyze_rps")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.ReportDirectory == "" {
		return errors.New("report directory cannot be empty")
	}

	// The web mode never writes there, only MCP exports do
	if c.Mode == ModeStdio {
		if _, err := os.Stat(c.ReportDirectory); os.IsNotExist(err) {
			if err := os.MkdirAll(c.ReportDirectory, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create report directory %s: %w", c.ReportDirectory, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access report directory %s: %w", c.ReportDirectory, err)
		}
	}

	if c.ReportPrefix == "" {
		return errors.New("report prefix cannot be empty")
	}

	if c.MaxPhotoSize <= 0 {
		return errors.New("maximum photo size must be positive")
	}

	if c.MaxReportSize <= 0 {
		return errors.New("maximum report size must be positive")
	}

	if c.AnalyzeRPS < 0 {
		return errors.New("analyze-rps cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// AnalysisEnabled reports whether a photo analysis key was configured
func (c *Config) AnalysisEnabled() bool {
	return c.GeminiAPIKey != ""
}

// String returns a string representation of the configuration. The API key is masked.
func (c *Config) String() string {
	key := ""
	if c.GeminiAPIKey != "" {
		key = "***"
	}
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, ReportDirectory: %s, Prefix: %s, LogLevel: %s, "+
		"MaxPhotoSize: %d, GeminiModel: %s, GeminiKey: %s}",
		c.Mode, c.Host, c.Port, c.ReportDirectory, c.ReportPrefix, c.LogLevel,
		c.MaxPhotoSize, c.GeminiModel, key)
}

// IsServerMode returns true when the web form is served over HTTP
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true when MCP tools are served over stdio
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

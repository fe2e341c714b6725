package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
	}()

	os.Args = []string{"inspection-report"}
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "server")
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.ReportPrefix != DefaultReportPrefix {
		t.Errorf("LoadFromFlags() ReportPrefix = %v, want %v", cfg.ReportPrefix, DefaultReportPrefix)
	}
	if cfg.ReportDirectory == "" {
		t.Error("LoadFromFlags() ReportDirectory should not be empty")
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name       string
		args       []string
		wantMode   string
		wantHost   string
		wantPort   int
		wantPrefix string
		wantModel  string
	}{
		{
			name:       "stdio mode with directory",
			args:       []string{"inspection-report", "--mode=stdio", "--dir=" + tempDir},
			wantMode:   "stdio",
			wantHost:   "127.0.0.1",
			wantPort:   8080,
			wantPrefix: DefaultReportPrefix,
			wantModel:  DefaultGeminiModel,
		},
		{
			name:       "server on all interfaces",
			args:       []string{"inspection-report", "--host=0.0.0.0", "--port=9090"},
			wantMode:   "server",
			wantHost:   "0.0.0.0",
			wantPort:   9090,
			wantPrefix: DefaultReportPrefix,
			wantModel:  DefaultGeminiModel,
		},
		{
			name:       "custom prefix and model",
			args:       []string{"inspection-report", "--prefix=Informe", "--gemini-model=gemini-2.0-flash"},
			wantMode:   "server",
			wantHost:   "127.0.0.1",
			wantPort:   8080,
			wantPrefix: "Informe",
			wantModel:  "gemini-2.0-flash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalArgs := os.Args
			defer func() {
				os.Args = originalArgs
				resetFlags()
			}()

			os.Args = tt.args
			resetFlags()

			cfg, err := LoadFromFlags()
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}

			if cfg.Mode != tt.wantMode {
				t.Errorf("Mode = %v, want %v", cfg.Mode, tt.wantMode)
			}
			if cfg.Host != tt.wantHost {
				t.Errorf("Host = %v, want %v", cfg.Host, tt.wantHost)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", cfg.Port, tt.wantPort)
			}
			if cfg.ReportPrefix != tt.wantPrefix {
				t.Errorf("ReportPrefix = %v, want %v", cfg.ReportPrefix, tt.wantPrefix)
			}
			if cfg.GeminiModel != tt.wantModel {
				t.Errorf("GeminiModel = %v, want %v", cfg.GeminiModel, tt.wantModel)
			}
		})
	}
}

func TestLoadFromFlags_EnvironmentKey(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		os.Unsetenv("INSPECTION_GEMINI_KEY")
	}()

	os.Args = []string{"inspection-report"}
	resetFlags()
	os.Setenv("INSPECTION_GEMINI_KEY", "from-env")

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.GeminiAPIKey != "from-env" {
		t.Errorf("GeminiAPIKey = %q, want %q", cfg.GeminiAPIKey, "from-env")
	}
}

func TestLoadFromFlags_InvalidMode(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
	}()

	os.Args = []string{"inspection-report", "--mode=grpc"}
	resetFlags()

	if _, err := LoadFromFlags(); err == nil {
		t.Error("LoadFromFlags() expected error for invalid mode")
	}
}

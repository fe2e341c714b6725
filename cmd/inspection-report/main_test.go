package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/a3tai/inspection-report/internal/config"
	"github.com/a3tai/inspection-report/internal/form"
)

const testVersion = "1.2.3"

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	tests := []struct {
		name     string
		version  string
		build    string
		commit   string
		expected []string
	}{
		{
			name:    "build flags set",
			version: testVersion,
			build:   "2024-05-02_10:30:00",
			commit:  "abc123",
			expected: []string{
				"Inspection Report",
				"Version: " + testVersion,
				"Build Time: 2024-05-02_10:30:00",
				"Git Commit: abc123",
				"Built with: go",
			},
		},
		{
			name:    "defaults",
			version: "dev",
			build:   "unknown",
			commit:  "unknown",
			expected: []string{
				"Version: dev",
				"Build Time: unknown",
				"Git Commit: unknown",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, buildTime, gitCommit = tt.version, tt.build, tt.commit

			var buf bytes.Buffer
			printVersion(&buf)

			output := buf.String()
			for _, expected := range tt.expected {
				if !strings.Contains(output, expected) {
					t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
				}
			}
		})
	}
}

func TestVersionFlagDetection(t *testing.T) {
	tests := []struct {
		arg  string
		want bool
	}{
		{"-version", true},
		{"--version", true},
		{"-v", true},
		{"--verbose", false},
		{"version", false},
		{"--mode=stdio", false},
	}

	for _, tt := range tests {
		if got := isVersionFlag(tt.arg); got != tt.want {
			t.Errorf("isVersionFlag(%q) = %t, want %t", tt.arg, got, tt.want)
		}
	}
}

func TestNewAnalyzer(t *testing.T) {
	cfg := config.DefaultConfig()

	if newAnalyzer(cfg, zap.NewNop()) != nil {
		t.Error("analyzer should be nil without an API key")
	}

	cfg.GeminiAPIKey = "key"
	if newAnalyzer(cfg, zap.NewNop()) == nil {
		t.Error("analyzer should be created when a key is configured")
	}
}

func TestNewComposer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ReportPrefix = "Obra"

	rep, err := newComposer(cfg, zap.NewNop()).Compose(context.Background(), form.Snapshot{})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if rep.Filename != "Obra_Borrador.pdf" {
		t.Errorf("Filename = %q, want the configured prefix", rep.Filename)
	}
	if !rep.Draft {
		t.Error("an empty form composes a draft")
	}
}

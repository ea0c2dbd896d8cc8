package cfg

import (
	"strings"
	"testing"
	"time"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		DataPath:     "data",
		ModelName:    "positional-digit",
		WindowSize:   7,
		TrailingDays: 30,
		HiddenSize:   64,
		LearningRate: 0.1,
		Epochs:       30,
		TopK:         5,
		ListenPort:   8080,
		SourceURL:    "http://localhost:9000",
		SourceRate:   2,
		RESTTimeout:  5 * time.Second,
		LogLevel:     "info",
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	if err := validateSettings(createValidSettings()); err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantMsg string
	}{
		{"empty data path", func(s *Settings) { s.DataPath = "" }, "data path"},
		{"empty model name", func(s *Settings) { s.ModelName = "" }, "model name"},
		{"empty source url", func(s *Settings) { s.SourceURL = "" }, "source URL"},
		{"window too small", func(s *Settings) { s.WindowSize = 0 }, "window size"},
		{"window too large", func(s *Settings) { s.WindowSize = 61 }, "window size"},
		{"negative trailing days", func(s *Settings) { s.TrailingDays = -1 }, "trailing days"},
		{"hidden too small", func(s *Settings) { s.HiddenSize = 0 }, "hidden size"},
		{"zero learning rate", func(s *Settings) { s.LearningRate = 0 }, "learning rate"},
		{"zero epochs", func(s *Settings) { s.Epochs = 0 }, "epochs"},
		{"negative seed", func(s *Settings) { s.Seed = -3 }, "seed"},
		{"top-k zero", func(s *Settings) { s.TopK = 0 }, "top-k"},
		{"top-k above classes", func(s *Settings) { s.TopK = 11 }, "top-k"},
		{"privileged port", func(s *Settings) { s.ListenPort = 443 }, "listen port"},
		{"zero source rate", func(s *Settings) { s.SourceRate = 0 }, "source rate"},
		{"short timeout", func(s *Settings) { s.RESTTimeout = 100 * time.Millisecond }, "REST timeout"},
		{"long timeout", func(s *Settings) { s.RESTTimeout = 2 * time.Minute }, "REST timeout"},
		{"cycle too short", func(s *Settings) { s.Cycle = time.Second }, "cycle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(settings)

			err := validateSettings(settings)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidateSettings_EdgeValues(t *testing.T) {
	settings := createValidSettings()
	settings.WindowSize = 1
	settings.TrailingDays = 0
	settings.TopK = 10
	settings.ListenPort = 65535
	settings.RESTTimeout = time.Minute

	if err := validateSettings(settings); err != nil {
		t.Errorf("expected edge values to pass, got %v", err)
	}
}

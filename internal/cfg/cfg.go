package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"drawcast/internal/common"
)

type Settings struct {
	DataPath     string
	ModelName    string
	WindowSize   int
	TrailingDays int
	HiddenSize   int
	LearningRate float64
	Epochs       int
	Seed         int64
	TopK         int
	ListenPort   int
	SourceURL    string
	SourceRate   float64
	RESTTimeout  time.Duration
	LogLevel     string
	Cycle        time.Duration // 0 disables the scheduled daily cycle
}

type ConfigFile struct {
	Model struct {
		Name         string  `yaml:"name"`
		WindowSize   int     `yaml:"windowSize"`
		TrailingDays int     `yaml:"trailingDays"`
		HiddenSize   int     `yaml:"hiddenSize"`
		LearningRate float64 `yaml:"learningRate"`
		Epochs       int     `yaml:"epochs"`
		Seed         int64   `yaml:"seed"`
		TopK         int     `yaml:"topK"`
	} `yaml:"model"`

	Source struct {
		URL         string  `yaml:"url"`
		Rate        float64 `yaml:"rate"`
		RESTTimeout string  `yaml:"restTimeout"`
	} `yaml:"source"`

	System struct {
		DataPath   string `yaml:"dataPath"`
		ListenPort int    `yaml:"listenPort"`
		LogLevel   string `yaml:"logLevel"`
		Cycle      string `yaml:"cycle"`
	} `yaml:"system"`
}

// Load reads .env if present, then CONFIG_FILE when set, otherwise the
// environment alone. Environment values override the file.
func Load() (Settings, error) {
	_ = godotenv.Load()

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	restTimeout, err := time.ParseDuration(config.Source.RESTTimeout)
	if err != nil {
		restTimeout = 5 * time.Second
	}

	var cycle time.Duration
	if config.System.Cycle != "" {
		if cycle, err = time.ParseDuration(config.System.Cycle); err != nil {
			return Settings{}, fmt.Errorf("invalid cycle %q: %w", config.System.Cycle, err)
		}
	}

	settings := Settings{
		DataPath:     getEnvOrDefault(common.EnvDataPath, orString(config.System.DataPath, common.DefaultDataPath)),
		ModelName:    getEnvOrDefault(common.EnvModelName, orString(config.Model.Name, common.DefaultModelName)),
		WindowSize:   getIntFromEnvOrConfig(common.EnvWindowSize, config.Model.WindowSize, common.DefaultWindowSize),
		TrailingDays: getIntFromEnvOrConfig(common.EnvTrailingDays, config.Model.TrailingDays, common.DefaultTrailingDays),
		HiddenSize:   getIntFromEnvOrConfig(common.EnvHiddenSize, config.Model.HiddenSize, common.DefaultHiddenSize),
		LearningRate: getFloatFromEnvOrConfig(common.EnvLearningRate, config.Model.LearningRate, common.DefaultLearningRate),
		Epochs:       getIntFromEnvOrConfig(common.EnvEpochs, config.Model.Epochs, common.DefaultEpochs),
		Seed:         getInt64OrDefault(common.EnvSeed, config.Model.Seed),
		TopK:         getIntFromEnvOrConfig(common.EnvTopK, config.Model.TopK, common.DefaultTopK),
		ListenPort:   getIntFromEnvOrConfig(common.EnvListenPort, config.System.ListenPort, common.DefaultListenPort),
		SourceURL:    getEnvOrDefault(common.EnvSourceURL, orString(config.Source.URL, common.DefaultSourceURL)),
		SourceRate:   getFloatFromEnvOrConfig(common.EnvSourceRate, config.Source.Rate, common.DefaultSourceRate),
		RESTTimeout:  getDurationOrDefault(common.EnvRESTTimeout, restTimeout),
		LogLevel:     getEnvOrDefault(common.EnvLogLevel, orString(config.System.LogLevel, common.DefaultLogLevel)),
		Cycle:        getDurationOrDefault(common.EnvCycle, cycle),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DataPath:     getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		ModelName:    getEnvOrDefault(common.EnvModelName, common.DefaultModelName),
		WindowSize:   getIntOrDefault(common.EnvWindowSize, common.DefaultWindowSize),
		TrailingDays: getIntOrDefault(common.EnvTrailingDays, common.DefaultTrailingDays),
		HiddenSize:   getIntOrDefault(common.EnvHiddenSize, common.DefaultHiddenSize),
		LearningRate: getFloatOrDefault(common.EnvLearningRate, common.DefaultLearningRate),
		Epochs:       getIntOrDefault(common.EnvEpochs, common.DefaultEpochs),
		Seed:         getInt64OrDefault(common.EnvSeed, 0), // 0 seeds from the clock
		TopK:         getIntOrDefault(common.EnvTopK, common.DefaultTopK),
		ListenPort:   getIntOrDefault(common.EnvListenPort, common.DefaultListenPort),
		SourceURL:    getEnvOrDefault(common.EnvSourceURL, common.DefaultSourceURL),
		SourceRate:   getFloatOrDefault(common.EnvSourceRate, common.DefaultSourceRate),
		RESTTimeout:  getDurationOrDefault(common.EnvRESTTimeout, 5*time.Second),
		LogLevel:     getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		Cycle:        getDurationOrDefault(common.EnvCycle, 0),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getFloatOrDefault(key, defaultValue)
}

// validateSettings checks every value against its supported range
func validateSettings(settings *Settings) error {
	if settings.DataPath == "" {
		return fmt.Errorf(common.ErrMsgDataPathRequired)
	}
	if settings.ModelName == "" {
		return fmt.Errorf(common.ErrMsgModelNameRequired)
	}
	if settings.SourceURL == "" {
		return fmt.Errorf(common.ErrMsgSourceURLRequired)
	}

	if settings.WindowSize < common.MinWindowSize || settings.WindowSize > common.MaxWindowSize {
		return fmt.Errorf("window size must be between %d and %d, got %d", common.MinWindowSize, common.MaxWindowSize, settings.WindowSize)
	}
	if settings.TrailingDays < 0 || settings.TrailingDays > common.MaxTrailingDays {
		return fmt.Errorf("trailing days must be between 0 and %d, got %d", common.MaxTrailingDays, settings.TrailingDays)
	}
	if settings.HiddenSize < common.MinHiddenSize || settings.HiddenSize > common.MaxHiddenSize {
		return fmt.Errorf("hidden size must be between %d and %d, got %d", common.MinHiddenSize, common.MaxHiddenSize, settings.HiddenSize)
	}
	if settings.LearningRate <= 0 || settings.LearningRate > common.MaxLearningRate {
		return fmt.Errorf("learning rate must be in (0, %g], got %f", common.MaxLearningRate, settings.LearningRate)
	}
	if settings.Epochs < 1 || settings.Epochs > common.MaxEpochs {
		return fmt.Errorf("epochs must be between 1 and %d, got %d", common.MaxEpochs, settings.Epochs)
	}
	if settings.Seed < 0 {
		return fmt.Errorf("seed must not be negative, got %d", settings.Seed)
	}
	if settings.TopK < common.MinTopK || settings.TopK > common.MaxTopK {
		return fmt.Errorf("top-k must be between %d and %d, got %d", common.MinTopK, common.MaxTopK, settings.TopK)
	}

	if settings.ListenPort < common.MinListenPort || settings.ListenPort > common.MaxListenPort {
		return fmt.Errorf("listen port must be between %d and %d, got %d", common.MinListenPort, common.MaxListenPort, settings.ListenPort)
	}
	if settings.SourceRate <= 0 || settings.SourceRate > common.MaxSourceRate {
		return fmt.Errorf("source rate must be in (0, %g] requests per second, got %f", common.MaxSourceRate, settings.SourceRate)
	}
	if settings.RESTTimeout < time.Second || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", settings.RESTTimeout)
	}
	if settings.Cycle != 0 && settings.Cycle < common.MinCycle {
		return fmt.Errorf("cycle must be 0 (disabled) or at least %v, got %v", common.MinCycle, settings.Cycle)
	}

	return nil
}

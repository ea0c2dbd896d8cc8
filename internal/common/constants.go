package common

import "time"

// Environment variable keys
const (
	EnvConfigFile   = "CONFIG_FILE"
	EnvDataPath     = "DATA_PATH"
	EnvModelName    = "MODEL_NAME"
	EnvWindowSize   = "WINDOW_SIZE"
	EnvTrailingDays = "TRAILING_DAYS"
	EnvHiddenSize   = "HIDDEN_SIZE"
	EnvLearningRate = "LEARNING_RATE"
	EnvEpochs       = "EPOCHS"
	EnvSeed         = "SEED"
	EnvTopK         = "TOP_K"
	EnvListenPort   = "LISTEN_PORT"
	EnvSourceURL    = "SOURCE_URL"
	EnvSourceRate   = "SOURCE_RATE"
	EnvRESTTimeout  = "REST_TIMEOUT"
	EnvLogLevel     = "LOG_LEVEL"
	EnvCycle        = "CYCLE"
)

// Configuration defaults
const (
	DefaultDataPath     = "data"
	DefaultModelName    = "positional-digit"
	DefaultWindowSize   = 7
	DefaultTrailingDays = 30
	DefaultHiddenSize   = 64
	DefaultLearningRate = 0.1
	DefaultEpochs       = 30
	DefaultTopK         = 5
	DefaultListenPort   = 8080
	DefaultSourceURL    = "http://localhost:9000"
	DefaultSourceRate   = 2.0 // requests per second
	DefaultLogLevel     = "info"
)

// Validation constants
const (
	MinWindowSize   = 1
	MaxWindowSize   = 60
	MaxTrailingDays = 365
	MinHiddenSize   = 1
	MaxHiddenSize   = 1024
	MaxLearningRate = 10.0
	MaxEpochs       = 10000
	MinTopK         = 1
	MaxTopK         = 10
	MinListenPort   = 1024
	MaxListenPort   = 65535
	MaxSourceRate   = 100.0
	MinCycle        = time.Minute
)

// Common error messages
const (
	ErrMsgModelNameRequired = "model name is required"
	ErrMsgSourceURLRequired = "source URL is required"
	ErrMsgDataPathRequired  = "data path is required"
)

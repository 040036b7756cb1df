package helper

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default values used when the environment does not override them.
const (
	DefaultGeminiURL        = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	DefaultLLMTimeout       = 60 * time.Second
	DefaultRetryAttempts    = 2
	DefaultRetryBackoff     = 500 * time.Millisecond
	DefaultStoreProvider    = "filesystem"
	DefaultStorePath        = "chroma_db"
	DefaultCollection       = "medical_knowledge"
	DefaultMetric           = "cosine"
	DefaultEmbeddingModel   = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultEmbeddingOnnx    = "onnx/model.onnx"
	DefaultEmbeddingDim     = 384
	DefaultPolicy           = "single_prompt"
	DefaultNResults         = 3
	DefaultMinContextLength = 50
	DefaultHTTPAddr         = ":8000"
	DefaultLogLevel         = "info"
)

// Configuration is the process level configuration of the assistant.
// The API key may be empty; the gateway reports that per call.
type Configuration struct {
	// LLM
	APIKey        string
	APIURL        string
	LLMTimeout    time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration

	// Vector store
	StoreProvider string
	StorePath     string
	Collection    string
	Metric        string
	Index         string

	// Embeddings
	EmbeddingModel    string
	EmbeddingOnnxPath string
	EmbeddingModelDir string
	EmbeddingDim      int

	// Orchestration
	Policy           string
	NResults         int
	MinContextLength int

	// Host
	HTTPAddr string
	LogLevel string
}

// NewConfiguration loads an optional .env file and reads the configuration from the environment.
func NewConfiguration(envFiles ...string) (*Configuration, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewError("load env file", err)
	}

	config := &Configuration{
		APIKey:            os.Getenv("GEMINI_API_KEY"),
		APIURL:            getEnvOrDefault("GEMINI_API_URL", DefaultGeminiURL),
		StoreProvider:     getEnvOrDefault("VECTOR_STORE_PROVIDER", DefaultStoreProvider),
		StorePath:         getEnvOrDefault("VECTOR_STORE_PATH", DefaultStorePath),
		Collection:        getEnvOrDefault("VECTOR_STORE_COLLECTION", DefaultCollection),
		Metric:            getEnvOrDefault("VECTOR_STORE_METRIC", DefaultMetric),
		Index:             getEnvOrDefault("VECTOR_STORE_INDEX", ""),
		EmbeddingModel:    getEnvOrDefault("EMBEDDING_MODEL", DefaultEmbeddingModel),
		EmbeddingOnnxPath: getEnvOrDefault("EMBEDDING_ONNX_PATH", DefaultEmbeddingOnnx),
		EmbeddingModelDir: getEnvOrDefault("EMBEDDING_MODEL_DIR", DefaultModelDir),
		Policy:            getEnvOrDefault("RAG_POLICY", DefaultPolicy),
		HTTPAddr:          getEnvOrDefault("HTTP_ADDR", DefaultHTTPAddr),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", DefaultLogLevel),
	}

	var err error
	if config.LLMTimeout, err = getEnvDuration("LLM_TIMEOUT", DefaultLLMTimeout); err != nil {
		return nil, err
	}
	if config.RetryBackoff, err = getEnvDuration("LLM_RETRY_BACKOFF", DefaultRetryBackoff); err != nil {
		return nil, err
	}
	if config.RetryAttempts, err = getEnvInt("LLM_RETRY_ATTEMPTS", DefaultRetryAttempts); err != nil {
		return nil, err
	}
	if config.EmbeddingDim, err = getEnvInt("EMBEDDING_DIM", DefaultEmbeddingDim); err != nil {
		return nil, err
	}
	if config.NResults, err = getEnvInt("RAG_N_RESULTS", DefaultNResults); err != nil {
		return nil, err
	}
	if config.MinContextLength, err = getEnvInt("RAG_MIN_CONTEXT_LENGTH", DefaultMinContextLength); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks value ranges that would otherwise fail much later at request time.
func (c *Configuration) Validate() error {
	if c.LLMTimeout <= 0 {
		return NewError("validate configuration", fmt.Errorf("LLM_TIMEOUT must be positive"))
	}
	if c.RetryAttempts < 0 {
		return NewError("validate configuration", fmt.Errorf("LLM_RETRY_ATTEMPTS must not be negative"))
	}
	if c.EmbeddingDim <= 0 {
		return NewError("validate configuration", fmt.Errorf("EMBEDDING_DIM must be positive"))
	}
	if c.NResults <= 0 {
		return NewError("validate configuration", fmt.Errorf("RAG_N_RESULTS must be positive"))
	}
	if c.MinContextLength < 0 {
		return NewError("validate configuration", fmt.Errorf("RAG_MIN_CONTEXT_LENGTH must not be negative"))
	}
	if c.Collection == "" {
		return NewError("validate configuration", fmt.Errorf("VECTOR_STORE_COLLECTION must not be empty"))
	}
	return nil
}

func getEnvInt(key string, def int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, NewError("parse "+key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, NewError("parse "+key, err)
	}
	return parsed, nil
}

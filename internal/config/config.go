package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Task       TaskConfig       `mapstructure:"task"       validate:"required"`
	Media      MediaConfig      `mapstructure:"media"      validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
}

// LLMConfig contains all LLM provider settings. API keys are optional at
// startup; selecting a provider whose key is missing fails at session
// creation instead.
type LLMConfig struct {
	GeminiAPIKey        string `mapstructure:"gemini_api_key"`
	GeminiModel         string `mapstructure:"gemini_model"          validate:"required"`
	OpenAIAPIKey        string `mapstructure:"openai_api_key"`
	OpenAIBaseURL       string `mapstructure:"openai_base_url"       validate:"required,url"`
	OpenAIModel         string `mapstructure:"openai_model"          validate:"required"`
	MaxRetries          int    `mapstructure:"max_retries"           validate:"gte=0,lte=10"`
	RetryDelaySeconds   int    `mapstructure:"retry_delay_seconds"   validate:"gte=0"`
	ChunkTimeoutSeconds int    `mapstructure:"chunk_timeout_seconds" validate:"required,gt=0"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"required,gt=0,lte=32"`
	QueueSize           int `mapstructure:"queue_size"             validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
}

// MediaConfig contains settings for uploaded document and image storage.
type MediaConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// GenerationConfig contains settings for document chunking.
type GenerationConfig struct {
	ChunkSize       int `mapstructure:"chunk_size"        validate:"required,gt=0"`
	PDFBatchSize    int `mapstructure:"pdf_batch_size"    validate:"required,gt=0"`
	PDFBatchOverlap int `mapstructure:"pdf_batch_overlap" validate:"gte=0"`
}

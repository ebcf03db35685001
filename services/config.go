package services

import (
	"log/slog"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AI        AIConfig
	Speech    SpeechConfig
	Vision    VisionConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

// AIConfig selects and configures the oracle provider. Provider is either
// "azure-openai" or "gemini".
type AIConfig struct {
	Provider        string
	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
	GeminiAPIKey    string
}

// SpeechConfig configures the Azure Speech transcription adapter. Endpoint
// overrides the region-derived URL when set (used in tests).
type SpeechConfig struct {
	Region   string
	APIKey   string
	Endpoint string
}

type VisionConfig struct {
	Endpoint string
	APIKey   string
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("ai.provider", "azure-openai")
	viper.SetDefault("ai.azure_endpoint", "")
	viper.SetDefault("ai.azure_api_key", "")
	viper.SetDefault("ai.azure_deployment", "")
	viper.SetDefault("ai.gemini_api_key", "")
	viper.SetDefault("speech.region", "")
	viper.SetDefault("speech.api_key", "")
	viper.SetDefault("speech.endpoint", "")
	viper.SetDefault("vision.endpoint", "")
	viper.SetDefault("vision.api_key", "")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "true")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("ai.provider", "AI_PROVIDER")
	viper.BindEnv("ai.azure_endpoint", "AZURE_OPENAI_ENDPOINT")
	viper.BindEnv("ai.azure_api_key", "AZURE_OPENAI_API_KEY")
	viper.BindEnv("ai.azure_deployment", "AZURE_OPENAI_DEPLOYMENT")
	viper.BindEnv("ai.gemini_api_key", "GEMINI_API_KEY")
	viper.BindEnv("speech.region", "AZURE_SPEECH_REGION")
	viper.BindEnv("speech.api_key", "AZURE_SPEECH_KEY")
	viper.BindEnv("speech.endpoint", "AZURE_SPEECH_ENDPOINT")
	viper.BindEnv("vision.endpoint", "AZURE_VISION_ENDPOINT")
	viper.BindEnv("vision.api_key", "AZURE_VISION_KEY")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			Provider:        viper.GetString("ai.provider"),
			AzureEndpoint:   viper.GetString("ai.azure_endpoint"),
			AzureAPIKey:     viper.GetString("ai.azure_api_key"),
			AzureDeployment: viper.GetString("ai.azure_deployment"),
			GeminiAPIKey:    viper.GetString("ai.gemini_api_key"),
		},
		Speech: SpeechConfig{
			Region:   viper.GetString("speech.region"),
			APIKey:   viper.GetString("speech.api_key"),
			Endpoint: viper.GetString("speech.endpoint"),
		},
		Vision: VisionConfig{
			Endpoint: viper.GetString("vision.endpoint"),
			APIKey:   viper.GetString("vision.api_key"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	API       APIConfig
	Transport TransportConfig
	Audio     AudioConfig
	Storage   StorageConfig
	Chat      ChatConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Bridge    BridgeConfig
}

// APIConfig holds remote service endpoints.
type APIConfig struct {
	BaseURL        string        `envconfig:"SOPHI_API_URL" default:"http://localhost:8000"`
	WSURL          string        `envconfig:"SOPHI_WS_URL" default:"ws://localhost:8000"`
	AssetURL       string        `envconfig:"SOPHI_ASSET_URL" default:"http://localhost:8000"`
	RequestTimeout time.Duration `envconfig:"SOPHI_HTTP_TIMEOUT" default:"15s"`
}

// TransportConfig holds real-time channel settings.
type TransportConfig struct {
	Path                 string        `envconfig:"SOPHI_WS_PATH" default:"/socket.io/"`
	MaxReconnectAttempts int           `envconfig:"SOPHI_RECONNECT_ATTEMPTS" default:"5"`
	ReconnectDelay       time.Duration `envconfig:"SOPHI_RECONNECT_DELAY" default:"1s"`
	ConnectTimeout       time.Duration `envconfig:"SOPHI_CONNECT_TIMEOUT" default:"10s"`
	LivenessTimeout      time.Duration `envconfig:"SOPHI_LIVENESS_TIMEOUT" default:"3s"`
}

// AudioConfig holds microphone capture settings.
type AudioConfig struct {
	ChunkInterval  time.Duration `envconfig:"SOPHI_AUDIO_CHUNK" default:"250ms"`
	MaxDuration    time.Duration `envconfig:"SOPHI_AUDIO_MAX" default:"30s"`
	MIMEType       string        `envconfig:"SOPHI_AUDIO_MIME" default:"audio/webm"`
	CaptureCommand string        `envconfig:"SOPHI_CAPTURE_CMD" default:"ffmpeg -hide_banner -loglevel error -f pulse -i default -c:a libopus -f webm -"`
}

// StorageConfig holds credential persistence settings.
type StorageConfig struct {
	DataDir   string `envconfig:"SOPHI_DATA_DIR"`
	Ephemeral bool   `envconfig:"SOPHI_EPHEMERAL" default:"false"`
}

// ChatConfig holds conversation defaults.
type ChatConfig struct {
	Greeting string `envconfig:"SOPHI_GREETING" default:"Hi! I'm Sophi, your chat assistant. How can I help you today?"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	AuthRequestsPerSecond float64 `envconfig:"AUTH_RATE_LIMIT_RPS" default:"5"`
	AuthBurst             int     `envconfig:"AUTH_RATE_LIMIT_BURST" default:"10"`
	RequestsPerSecond     int     `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst                 int     `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled               bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// BridgeConfig holds the local bridge API configuration.
type BridgeConfig struct {
	Addr    string `envconfig:"SOPHI_BRIDGE_ADDR" default:"127.0.0.1:8787"`
	Enabled bool   `envconfig:"SOPHI_BRIDGE_ENABLED" default:"false"`
}

// Load loads configuration from environment variables.
//
// A .env file in the working directory is read first; variables already
// present in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads a flat YAML or TOML file of environment keys underneath the
// process environment, then calls Load.
func LoadFile(path string) (*Config, error) {
	values, err := readFile(path)
	if err != nil {
		return nil, err
	}
	for key, value := range values {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", key, err)
		}
	}
	return Load()
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			WSURL:          "ws://localhost:8000",
			AssetURL:       "http://localhost:8000",
			RequestTimeout: 15 * time.Second,
		},
		Transport: TransportConfig{
			Path:                 "/socket.io/",
			MaxReconnectAttempts: 5,
			ReconnectDelay:       time.Second,
			ConnectTimeout:       10 * time.Second,
			LivenessTimeout:      3 * time.Second,
		},
		Audio: AudioConfig{
			ChunkInterval:  250 * time.Millisecond,
			MaxDuration:    30 * time.Second,
			MIMEType:       "audio/webm",
			CaptureCommand: "ffmpeg -hide_banner -loglevel error -f pulse -i default -c:a libopus -f webm -",
		},
		Chat: ChatConfig{
			Greeting: "Hi! I'm Sophi, your chat assistant. How can I help you today?",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			AuthRequestsPerSecond: 5,
			AuthBurst:             10,
			RequestsPerSecond:     100,
			Burst:                 200,
			Enabled:               true,
		},
		Bridge: BridgeConfig{
			Addr:    "127.0.0.1:8787",
			Enabled: false,
		},
	}
}

// ResolveDataDir returns the directory holding persisted credentials.
func (s StorageConfig) ResolveDataDir() (string, error) {
	if s.DataDir != "" {
		return s.DataDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(base, "sophi"), nil
}

// CaptureArgs splits the capture command into program and arguments.
func (a AudioConfig) CaptureArgs() []string {
	return strings.Fields(a.CaptureCommand)
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	raw := map[string]interface{}{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported config file type: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

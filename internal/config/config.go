// Package config provides configuration management for the production studio.
// Configuration is loaded from an optional .env file, an optional YAML file and
// environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 8787
	DefaultLogLevel = "info"
	DefaultDataDir  = ".studio"

	// Environment variable names
	EnvHost           = "STUDIO_HOST"
	EnvPort           = "STUDIO_PORT"
	EnvAllowedOrigins = "STUDIO_ALLOWED_ORIGINS"
	EnvLogLevel       = "STUDIO_LOG_LEVEL"
	EnvDataDir        = "STUDIO_DATA_DIR"
	EnvConfigFile     = "STUDIO_CONFIG_FILE"
	EnvDotEnvFile     = "STUDIO_ENV_FILE"

	// Generation environment variable names
	EnvImageCap           = "STUDIO_IMAGE_CAP"
	EnvPollInterval       = "STUDIO_POLL_INTERVAL"
	EnvProviderTimeout    = "STUDIO_PROVIDER_TIMEOUT"
	EnvStaleGenerationAge = "STUDIO_STALE_GENERATION_AGE"

	// Provider environment variable names
	EnvMinimaxAPIKey    = "MINIMAX_API_KEY"
	EnvMinimaxBaseURL   = "MINIMAX_BASE_URL"
	EnvRunwayAPIKey     = "RUNWAY_API_KEY"
	EnvRunwayBaseURL    = "RUNWAY_BASE_URL"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvOpenAIChatModel  = "OPENAI_CHAT_MODEL"
	EnvOpenAIImageModel = "OPENAI_IMAGE_MODEL"
	EnvElevenLabsAPIKey = "ELEVENLABS_API_KEY"
	EnvElevenLabsVoice  = "ELEVENLABS_VOICE_ID"

	// Storage environment variable names
	EnvS3Endpoint  = "S3_ENDPOINT"
	EnvS3Bucket    = "S3_BUCKET"
	EnvS3AccessKey = "S3_ACCESS_KEY_ID"
	EnvS3SecretKey = "S3_SECRET_ACCESS_KEY"
	EnvS3Region    = "S3_REGION"
	EnvS3UseSSL    = "S3_USE_SSL"

	// Integration environment variable names
	EnvRedisURL           = "REDIS_URL"
	EnvGoogleClientID     = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvGoogleRefreshToken = "GOOGLE_REFRESH_TOKEN"

	// Database filename
	DBFilename = "studio.db"

	// Generation defaults
	DefaultImageCap           = 2
	DefaultPollInterval       = 5 * time.Second
	DefaultProviderTimeout    = 60 * time.Second
	DefaultStaleGenerationAge = 2 * time.Hour

	DefaultMinimaxBaseURL   = "https://api.minimax.chat/v1"
	DefaultRunwayBaseURL    = "https://api.runwayml.com/v1"
	DefaultOpenAIChatModel  = "gpt-4o-mini"
	DefaultOpenAIImageModel = "gpt-image-1"
	DefaultS3Region         = "us-east-1"
)

// Config defines the application configuration interface
type Config interface {
	Host() string
	Port() int
	AllowedOrigins() []string
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	ImageCap() int
	PollInterval() time.Duration
	ProviderTimeout() time.Duration
	StaleGenerationAge() time.Duration
	Minimax() ProviderConfig
	Runway() ProviderConfig
	OpenAI() OpenAIConfig
	ElevenLabs() ElevenLabsConfig
	S3() S3Config
	RedisURL() string
	Google() GoogleConfig
}

// ProviderConfig holds credentials for a video generation back end.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

func (p ProviderConfig) Enabled() bool {
	return p.APIKey != ""
}

type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	ChatModel  string `yaml:"chat_model"`
	ImageModel string `yaml:"image_model"`
}

type ElevenLabsConfig struct {
	APIKey  string `yaml:"api_key"`
	VoiceID string `yaml:"voice_id"`
}

// S3Config describes an S3-compatible bucket. An empty endpoint selects the
// local filesystem store under the data directory.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key_id"`
	SecretKey string `yaml:"secret_access_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func (s S3Config) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RefreshToken != ""
}

// fileConfig mirrors the YAML layout of STUDIO_CONFIG_FILE.
type fileConfig struct {
	Host               string           `yaml:"host"`
	Port               int              `yaml:"port"`
	AllowedOrigins     []string         `yaml:"allowed_origins"`
	LogLevel           string           `yaml:"log_level"`
	DataDir            string           `yaml:"data_dir"`
	ImageCap           int              `yaml:"image_cap"`
	PollInterval       string           `yaml:"poll_interval"`
	ProviderTimeout    string           `yaml:"provider_timeout"`
	StaleGenerationAge string           `yaml:"stale_generation_age"`
	Minimax            ProviderConfig   `yaml:"minimax"`
	Runway             ProviderConfig   `yaml:"runway"`
	OpenAI             OpenAIConfig     `yaml:"openai"`
	ElevenLabs         ElevenLabsConfig `yaml:"elevenlabs"`
	S3                 S3Config         `yaml:"s3"`
	RedisURL           string           `yaml:"redis_url"`
	Google             GoogleConfig     `yaml:"google"`
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	host               string
	port               int
	allowedOrigins     []string
	logLevel           string
	dataDir            string
	imageCap           int
	pollInterval       time.Duration
	providerTimeout    time.Duration
	staleGenerationAge time.Duration

	minimax    ProviderConfig
	runway     ProviderConfig
	openAI     OpenAIConfig
	elevenLabs ElevenLabsConfig
	s3         S3Config
	redisURL   string
	google     GoogleConfig
}

// New creates a new EnvConfig with defaults, file values and environment
// variable overrides.
func New() (*EnvConfig, error) {
	envFile := os.Getenv(EnvDotEnvFile)
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already present in the process
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &EnvConfig{
		host:               DefaultHost,
		port:               DefaultPort,
		logLevel:           DefaultLogLevel,
		dataDir:            defaultDataDir(),
		imageCap:           DefaultImageCap,
		pollInterval:       DefaultPollInterval,
		providerTimeout:    DefaultProviderTimeout,
		staleGenerationAge: DefaultStaleGenerationAge,
		minimax:            ProviderConfig{BaseURL: DefaultMinimaxBaseURL},
		runway:             ProviderConfig{BaseURL: DefaultRunwayBaseURL},
		openAI:             OpenAIConfig{ChatModel: DefaultOpenAIChatModel, ImageModel: DefaultOpenAIImageModel},
		s3:                 S3Config{Region: DefaultS3Region},
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *EnvConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeString(&c.host, fc.Host)
	if fc.Port != 0 {
		c.port = fc.Port
	}
	if len(fc.AllowedOrigins) > 0 {
		c.allowedOrigins = fc.AllowedOrigins
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.ImageCap != 0 {
		c.imageCap = fc.ImageCap
	}
	if err := setDuration(&c.pollInterval, fc.PollInterval, "poll_interval"); err != nil {
		return err
	}
	if err := setDuration(&c.providerTimeout, fc.ProviderTimeout, "provider_timeout"); err != nil {
		return err
	}
	if err := setDuration(&c.staleGenerationAge, fc.StaleGenerationAge, "stale_generation_age"); err != nil {
		return err
	}

	mergeString(&c.minimax.APIKey, fc.Minimax.APIKey)
	mergeString(&c.minimax.BaseURL, fc.Minimax.BaseURL)
	mergeString(&c.runway.APIKey, fc.Runway.APIKey)
	mergeString(&c.runway.BaseURL, fc.Runway.BaseURL)
	mergeString(&c.openAI.APIKey, fc.OpenAI.APIKey)
	mergeString(&c.openAI.ChatModel, fc.OpenAI.ChatModel)
	mergeString(&c.openAI.ImageModel, fc.OpenAI.ImageModel)
	mergeString(&c.elevenLabs.APIKey, fc.ElevenLabs.APIKey)
	mergeString(&c.elevenLabs.VoiceID, fc.ElevenLabs.VoiceID)
	mergeString(&c.s3.Endpoint, fc.S3.Endpoint)
	mergeString(&c.s3.Bucket, fc.S3.Bucket)
	mergeString(&c.s3.AccessKey, fc.S3.AccessKey)
	mergeString(&c.s3.SecretKey, fc.S3.SecretKey)
	mergeString(&c.s3.Region, fc.S3.Region)
	if fc.S3.UseSSL {
		c.s3.UseSSL = true
	}
	mergeString(&c.redisURL, fc.RedisURL)
	mergeString(&c.google.ClientID, fc.Google.ClientID)
	mergeString(&c.google.ClientSecret, fc.Google.ClientSecret)
	mergeString(&c.google.RefreshToken, fc.Google.RefreshToken)

	return nil
}

func (c *EnvConfig) loadEnv() error {
	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}

	mergeString(&c.host, os.Getenv(EnvHost))

	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		c.allowedOrigins = splitList(v)
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = dd
	}

	if v := os.Getenv(EnvImageCap); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvImageCap, err)
		}
		c.imageCap = n
	}

	if err := setDuration(&c.pollInterval, os.Getenv(EnvPollInterval), EnvPollInterval); err != nil {
		return err
	}
	if err := setDuration(&c.providerTimeout, os.Getenv(EnvProviderTimeout), EnvProviderTimeout); err != nil {
		return err
	}
	if err := setDuration(&c.staleGenerationAge, os.Getenv(EnvStaleGenerationAge), EnvStaleGenerationAge); err != nil {
		return err
	}

	mergeString(&c.minimax.APIKey, os.Getenv(EnvMinimaxAPIKey))
	mergeString(&c.minimax.BaseURL, os.Getenv(EnvMinimaxBaseURL))
	mergeString(&c.runway.APIKey, os.Getenv(EnvRunwayAPIKey))
	mergeString(&c.runway.BaseURL, os.Getenv(EnvRunwayBaseURL))
	mergeString(&c.openAI.APIKey, os.Getenv(EnvOpenAIAPIKey))
	mergeString(&c.openAI.ChatModel, os.Getenv(EnvOpenAIChatModel))
	mergeString(&c.openAI.ImageModel, os.Getenv(EnvOpenAIImageModel))
	mergeString(&c.elevenLabs.APIKey, os.Getenv(EnvElevenLabsAPIKey))
	mergeString(&c.elevenLabs.VoiceID, os.Getenv(EnvElevenLabsVoice))
	mergeString(&c.s3.Endpoint, os.Getenv(EnvS3Endpoint))
	mergeString(&c.s3.Bucket, os.Getenv(EnvS3Bucket))
	mergeString(&c.s3.AccessKey, os.Getenv(EnvS3AccessKey))
	mergeString(&c.s3.SecretKey, os.Getenv(EnvS3SecretKey))
	mergeString(&c.s3.Region, os.Getenv(EnvS3Region))
	if v := os.Getenv(EnvS3UseSSL); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvS3UseSSL, err)
		}
		c.s3.UseSSL = useSSL
	}
	mergeString(&c.redisURL, os.Getenv(EnvRedisURL))
	mergeString(&c.google.ClientID, os.Getenv(EnvGoogleClientID))
	mergeString(&c.google.ClientSecret, os.Getenv(EnvGoogleClientSecret))
	mergeString(&c.google.RefreshToken, os.Getenv(EnvGoogleRefreshToken))

	return nil
}

func (c *EnvConfig) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
	}
	if c.imageCap < 1 {
		return fmt.Errorf("invalid %s: image cap must be at least 1", EnvImageCap)
	}
	if c.pollInterval < time.Second {
		return fmt.Errorf("invalid %s: poll interval must be at least 1s", EnvPollInterval)
	}
	if c.providerTimeout < time.Second {
		return fmt.Errorf("invalid %s: provider timeout must be at least 1s", EnvProviderTimeout)
	}
	return nil
}

func setDuration(dst *time.Duration, raw, name string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}

// splitList parses a comma separated list, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mergeString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// Host returns the interface the HTTP server binds to
func (c *EnvConfig) Host() string {
	return c.host
}

// AllowedOrigins lists browser origins allowed in addition to localhost
func (c *EnvConfig) AllowedOrigins() []string {
	return c.allowedOrigins
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir is where the local store keeps objects when no bucket is configured.
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

// ImageCap returns the per-shot image slot limit
func (c *EnvConfig) ImageCap() int {
	return c.imageCap
}

func (c *EnvConfig) PollInterval() time.Duration {
	return c.pollInterval
}

func (c *EnvConfig) ProviderTimeout() time.Duration {
	return c.providerTimeout
}

func (c *EnvConfig) StaleGenerationAge() time.Duration {
	return c.staleGenerationAge
}

func (c *EnvConfig) Minimax() ProviderConfig {
	return c.minimax
}

func (c *EnvConfig) Runway() ProviderConfig {
	return c.runway
}

func (c *EnvConfig) OpenAI() OpenAIConfig {
	return c.openAI
}

func (c *EnvConfig) ElevenLabs() ElevenLabsConfig {
	return c.elevenLabs
}

func (c *EnvConfig) S3() S3Config {
	return c.s3
}

func (c *EnvConfig) RedisURL() string {
	return c.redisURL
}

func (c *EnvConfig) Google() GoogleConfig {
	return c.google
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

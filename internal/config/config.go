package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Storage StorageConfig
	AI      AIConfig
	Chat    ChatConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Log:     loadLogConfig(),
		Storage: storage,
		AI:      ai,
		Chat:    chat,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig 选择日志格式与级别。
type LogConfig struct {
	Env   string
	Level string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Env:   getEnvOrDefault("APP_ENV", "production"),
		Level: getEnvOrDefault("LOG_LEVEL", "info"),
	}
}

// 存储驱动。
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// StorageConfig 描述持久化配置。
type StorageConfig struct {
	Driver string
	Path   string
}

func loadStorageConfig() (StorageConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", StorageSQLite))
	switch driver {
	case StorageMemory, StorageSQLite:
	default:
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_DRIVER value %q: want %q or %q", driver, StorageSQLite, StorageMemory)
	}
	return StorageConfig{
		Driver: driver,
		Path:   getEnvOrDefault("DATABASE_PATH", "companion.db"),
	}, nil
}

// 大模型提供方。
const (
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string

	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	Temperature  float64
	TopP         float64
	MaxTokens    int
	Timeout      time.Duration
	HistoryLimit int
}

// Enabled 表示是否提供了 Ark 必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	temperature := float32(c.Temperature)
	topP := float32(c.TopP)
	maxTokens := c.MaxTokens

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// ResolvedProvider 返回显式指定的提供方，否则按已配置的凭证推断。
// 返回空字符串表示未配置任何后端。
func (c AIConfig) ResolvedProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	switch {
	case c.Enabled():
		return ProviderArk
	case c.GeminiAPIKey != "":
		return ProviderGemini
	case c.OpenAIBaseURL != "" || c.OpenAIAPIKey != "":
		return ProviderOpenAI
	default:
		return ""
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER")))
	switch provider {
	case "", ProviderArk, ProviderGemini, ProviderOpenAI:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	temperature, err := parseFloatEnv("AI_TEMPERATURE", 0.7)
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseFloatEnv("AI_TOP_P", 0.9)
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parsePositiveIntEnv("AI_MAX_TOKENS", 1024)
	if err != nil {
		return AIConfig{}, err
	}

	timeoutSeconds, err := parsePositiveIntEnv("AI_TIMEOUT_SECONDS", 15)
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit, err := parsePositiveIntEnv("AI_HISTORY_LIMIT", 20)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:      provider,
		APIKey:        strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:     strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:     strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:         strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:       getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:        getEnvOrDefault("ARK_REGION", "cn-beijing"),
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		Temperature:   temperature,
		TopP:          topP,
		MaxTokens:     maxTokens,
		Timeout:       time.Duration(timeoutSeconds) * time.Second,
		HistoryLimit:  historyLimit,
	}, nil
}

// ChatConfig 描述对话管线的外围配置。
type ChatConfig struct {
	RateLimitPerMinute int
	SafetyContentPath  string
	// PersonaID 选择对话使用的persona，空值表示默认persona。
	PersonaID string
}

func loadChatConfig() (ChatConfig, error) {
	limit, err := parsePositiveIntEnv("CHAT_RATE_LIMIT_PER_MINUTE", 15)
	if err != nil {
		return ChatConfig{}, err
	}
	return ChatConfig{
		RateLimitPerMinute: limit,
		SafetyContentPath:  strings.TrimSpace(os.Getenv("SAFETY_CONTENT_PATH")),
		PersonaID:          strings.TrimSpace(os.Getenv("PERSONA_ID")),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	val, err := parseOptionalFloatEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	return *val, nil
}

func parsePositiveIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	if *val < 1 {
		return 0, fmt.Errorf("invalid %s value %d: must be positive", key, *val)
	}
	return *val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

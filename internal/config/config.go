// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Chat     ChatConfig     `mapstructure:"chat"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"` // mysql 或 sqlite
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用会话缓存。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储分析事件 Kafka 通道的配置。Brokers 为空时事件直接写库。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
	// BatchTimeout 是生产者攒批的最长等待，kafka-go 默认 1s，单条事件也要等满
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// WriteTimeout 限制单次投递（含重试）的总时长
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Enabled 报告是否配置了 Kafka。
func (k KafkaConfig) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

// BrokerList 将逗号分隔的 broker 列表拆分。
func (k KafkaConfig) BrokerList() []string {
	return splitList(k.Brokers)
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey      string          `mapstructure:"api_key"`
	BaseURL     string          `mapstructure:"base_url"`
	Model       string          `mapstructure:"model"` // 非空时覆盖路由结果
	Temperature float32         `mapstructure:"temperature"`
	MaxTokens   int             `mapstructure:"max_tokens"`
	Tiers       LLMTiersConfig  `mapstructure:"tiers"`
	Prompt      LLMPromptConfig `mapstructure:"prompt"`
}

// LLMTiersConfig 将模型档位映射到具体的模型标识。
type LLMTiersConfig struct {
	Base     string `mapstructure:"base"`
	Elevated string `mapstructure:"elevated"`
}

// LLMPromptConfig 配置 system 提示模板（text/template 语法，可用 .Lang 与 .Sector）。
type LLMPromptConfig struct {
	System string `mapstructure:"system"`
}

// ChatConfig 控制对话上下文与持久化行为。
type ChatConfig struct {
	HistoryWindow   int           `mapstructure:"history_window"`
	VerifyOwnership bool          `mapstructure:"verify_ownership"`
	PersistTimeout  time.Duration `mapstructure:"persist_timeout"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
}

// CORSConfig 存储跨域白名单，逗号分隔；为空表示允许所有来源。
type CORSConfig struct {
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Origins 返回清理后的白名单列表。
func (c CORSConfig) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.prompt.system", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "analytics-events")
	v.SetDefault("kafka.group_id", "bloomo-gateway-analytics")
	v.SetDefault("kafka.batch_timeout", 10*time.Millisecond)
	v.SetDefault("kafka.write_timeout", 5*time.Second)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.tiers.base", "gpt-4.1-mini")
	v.SetDefault("llm.tiers.elevated", "gpt-4.1-turbo")
	v.SetDefault("chat.history_window", 20)
	v.SetDefault("chat.verify_ownership", true)
	v.SetDefault("chat.persist_timeout", 10*time.Second)
	v.SetDefault("chat.session_ttl", 7*24*time.Hour)
}

// Load 从指定路径读取 YAML 配置，叠加默认值与环境变量。
func Load(configPath string) (Config, error) {
	var cfg Config
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容旧部署使用的环境变量名
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.model", "LLM_MODEL", "OPENAI_MODEL")
	_ = v.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS", "RUNTIME_ORIGIN")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

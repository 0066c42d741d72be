// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/wyfcoding/farmhub/pkg/logger"
)

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// 行情 API 配置（订单/上架命令端点）
	API APIConfig `mapstructure:"api"`
	// 变更订阅源配置（Redis）
	Feed FeedConfig `mapstructure:"feed"`
	// 推送通道配置（WebSocket）
	Push PushConfig `mapstructure:"push"`
	// 通知 toast 配置
	Toast ToastConfig `mapstructure:"toast"`
	// HTTP 服务配置（仅 farmsim 使用）
	Server ServerConfig `mapstructure:"server"`
	// 数据库配置（仅 farmsim 使用）
	Database DatabaseConfig `mapstructure:"database"`
	// Kafka 配置（仅 farmsim 使用，可选）
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 媒体上传目录（仅 farmsim 使用）
	UploadDir string `mapstructure:"upload_dir"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// APIConfig 命令端点客户端配置
type APIConfig struct {
	// 服务端基础地址，上传媒体也通过 {base_url}/uploads/{filename} 解析
	BaseURL string `mapstructure:"base_url"`
	// 命令提交超时（秒），超时视为失败并提示用户
	CommandTimeout int `mapstructure:"command_timeout"`
}

// FeedConfig 变更订阅源（Redis）配置
type FeedConfig struct {
	// 主机地址
	Host string `mapstructure:"host"`
	// 端口
	Port int `mapstructure:"port"`
	// 密码
	Password string `mapstructure:"password"`
	// 数据库编号
	DB int `mapstructure:"db"`
	// 键命名空间
	Namespace string `mapstructure:"namespace"`
	// 最大连接数
	MaxPoolSize int `mapstructure:"max_pool_size"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// PushConfig 推送通道配置
type PushConfig struct {
	// WebSocket 地址
	URL string `mapstructure:"url"`
	// 重连初始延迟（毫秒）
	ReconnectDelay int `mapstructure:"reconnect_delay"`
	// 重连延迟上限（毫秒）
	ReconnectMaxDelay int `mapstructure:"reconnect_max_delay"`
}

// ToastConfig 通知 toast 配置
type ToastConfig struct {
	// toast 自动消失时间（毫秒）
	TTL int `mapstructure:"ttl"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql
	Driver string `mapstructure:"driver"`
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	// Broker 地址列表，为空时禁用事件发布
	Brokers []string `mapstructure:"brokers"`
	// 事件主题
	Topic string `mapstructure:"topic"`
	// 最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖与默认值
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// 配置文件允许缺失，此时完全依赖默认值和环境变量
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if _, statErr := os.Stat(configPath); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.API.CommandTimeout <= 0 {
		return fmt.Errorf("invalid api command_timeout: %d", c.API.CommandTimeout)
	}
	if c.Feed.Port <= 0 || c.Feed.Port > 65535 {
		return fmt.Errorf("invalid feed port: %d", c.Feed.Port)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Push.ReconnectDelay <= 0 || c.Push.ReconnectMaxDelay < c.Push.ReconnectDelay {
		return fmt.Errorf("invalid push reconnect delays: %d/%d", c.Push.ReconnectDelay, c.Push.ReconnectMaxDelay)
	}
	if c.Toast.TTL <= 0 {
		return fmt.Errorf("invalid toast ttl: %d", c.Toast.TTL)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "farmhub")
	v.SetDefault("environment", "dev")

	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.command_timeout", 15)

	v.SetDefault("feed.host", "localhost")
	v.SetDefault("feed.port", 6379)
	v.SetDefault("feed.db", 0)
	v.SetDefault("feed.namespace", "farmhub")
	v.SetDefault("feed.max_pool_size", 10)
	v.SetDefault("feed.read_timeout", 3)
	v.SetDefault("feed.write_timeout", 3)

	v.SetDefault("push.url", "ws://localhost:5000/ws")
	v.SetDefault("push.reconnect_delay", 1000)
	v.SetDefault("push.reconnect_max_delay", 30000)

	v.SetDefault("toast.ttl", 5000)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("kafka.topic", "farmhub.marketplace.events")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("upload_dir", "uploads")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
	AutoMigrate     bool   `yaml:"autoMigrate"`     // 启动时是否执行 AutoMigrate
}

// EtcdConfig 定义了 Etcd 服务发现的连接配置。
type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints"` // Etcd 节点地址列表，为空时不注册
	Username  string   `yaml:"username"`  // 用户名
	Password  string   `yaml:"password"`  // 密码
	LeaseTTL  int64    `yaml:"leaseTTL"`  // 注册租约 TTL (秒)
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表，为空时不发布事件
	Topics  []string `yaml:"topics"`  // 启动时确保存在的主题列表
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Redis RedisConfig `yaml:"redis"` // Redis 数据库配置
	MySQL MySQLConfig `yaml:"mysql"` // MySQL 数据库配置
	Etcd  EtcdConfig  `yaml:"etcd"`  // Etcd 服务发现配置
	Kafka KafkaConfig `yaml:"kafka"` // Kafka 消息队列配置
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address          string `yaml:"address"`          // 监听地址，默认 ":8080"
	AdvertiseAddress string `yaml:"advertiseAddress"` // 注册到 etcd 的地址，默认与 Address 相同
	ShutdownTimeout  string `yaml:"shutdownTimeout"`  // 优雅关闭的超时时间，例如 "5s"
}

// AuthConfig 用于配置认证。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥，为空时关闭认证
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// MemoryConfig 定义了记忆上下文子系统的配置。
type MemoryConfig struct {
	Timezone    string `yaml:"timezone"`    // 渲染会话日期使用的时区
	EventsTopic string `yaml:"eventsTopic"` // 记忆清除事件发布的主题
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Server     ServerConfig     `yaml:"server"`     // HTTP 服务配置
	Auth       AuthConfig       `yaml:"auth"`       // 认证配置
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Memory     MemoryConfig     `yaml:"memory"`     // 记忆子系统配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "fixedWindow", "tokenBucket", "redisWindow"
	// TrustedProxies 是可信反向代理的 IP 或 CIDR。只有来自这些地址的请求才采信 X-Forwarded-For，
	// 为空时按 TCP 对端地址限流。
	TrustedProxies []string `yaml:"trustedProxies"`
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
	RedisWindow RedisWindowConfig `yaml:"redisWindow"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// RedisWindowConfig 定义了基于 Redis 的分布式固定窗口限流配置，多个实例共享同一计数。
type RedisWindowConfig struct {
	Limit     int    `yaml:"limit"`
	Window    string `yaml:"window"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

const (
	defaultAddress         = ":8080"
	defaultShutdownTimeout = "5s"
	defaultTimezone        = "Europe/Berlin"
	defaultEventsTopic     = "memory_events"
	defaultLeaseTTL        = 10
)

// envPattern 只匹配 ${VAR} 形式，值中单独出现的 $ 保持原样。
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv 用环境变量替换 ${VAR}，未设置的变量替换为空字符串。
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		return []byte(os.Getenv(string(envPattern.FindSubmatch(m)[1])))
	})
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
// 文件中的 ${VAR} 会在解析前用环境变量替换，解析后补齐默认值并校验。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(expandEnv(data), &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.AdvertiseAddress == "" {
		c.Server.AdvertiseAddress = c.Server.Address
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Memory.Timezone == "" {
		c.Memory.Timezone = defaultTimezone
	}
	if c.Memory.EventsTopic == "" {
		c.Memory.EventsTopic = defaultEventsTopic
	}
	if c.Databases.Etcd.LeaseTTL <= 0 {
		c.Databases.Etcd.LeaseTTL = defaultLeaseTTL
	}
}

func (c *AppConfig) validate() error {
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("无效的 server.shutdownTimeout: %w", err)
	}
	if _, err := time.LoadLocation(c.Memory.Timezone); err != nil {
		return fmt.Errorf("无效的 memory.timezone: %w", err)
	}
	return nil
}

// ShutdownTimeout 返回解析后的优雅关闭超时时间。
func (c *AppConfig) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Location 返回渲染日期使用的时区。
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Memory.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Job       JobConfig       `mapstructure:"job"`
	Import    ImportConfig    `mapstructure:"import"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port                 int           `mapstructure:"port"`
	BaseURL              string        `mapstructure:"base_url"`
	BodyLimitBytes       int64         `mapstructure:"body_limit_bytes"`
	ImportBodyLimitBytes int64         `mapstructure:"import_body_limit_bytes"` // 导入接口单独放宽
	AuthRateLimit        int           `mapstructure:"auth_rate_limit"`         // 认证接口窗口内最大请求数
	AuthRateWindow       time.Duration `mapstructure:"auth_rate_window"`
	CORS                 CORSConfig    `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（计划锁、Token 黑名单、限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchedulerConfig 排期引擎配置
type SchedulerConfig struct {
	Timezone              string        `mapstructure:"timezone"`
	LookaheadDays         int           `mapstructure:"lookahead_days"`         // 可用日搜索窗口
	MaxPlacementAttempts  int           `mapstructure:"max_placement_attempts"` // 单个目标最多推进天数
	ReviewOffsets         []int         `mapstructure:"review_offsets"`         // 复习周期（学习完成后第 N 天）
	ReviewDurationMinutes int           `mapstructure:"review_duration_minutes"`
	LockTTL               time.Duration `mapstructure:"lock_ttl"`
}

// Location 返回排期使用的时区，配置无效时回退 UTC
func (c *SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// JobConfig 定时任务配置
type JobConfig struct {
	RolloverEnabled bool   `mapstructure:"rollover_enabled"`
	RolloverCron    string `mapstructure:"rollover_cron"` // 5 段 cron 表达式
}

// ImportConfig 批量导入配置
type ImportConfig struct {
	MaxRows         int    `mapstructure:"max_rows"`
	DuplicatePolicy string `mapstructure:"duplicate_policy"` // skip | reject
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_bytes", 1<<20)
	v.SetDefault("server.import_body_limit_bytes", 10<<20)
	v.SetDefault("server.auth_rate_limit", 20)
	v.SetDefault("server.auth_rate_window", "1m")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "dom_study")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/Sao_Paulo")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// jwt_secret 无默认值，注册空值使环境变量能参与 Unmarshal
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("scheduler.timezone", "America/Sao_Paulo")
	v.SetDefault("scheduler.lookahead_days", 14)
	v.SetDefault("scheduler.max_placement_attempts", 365)
	v.SetDefault("scheduler.review_offsets", []int{1, 7, 30})
	v.SetDefault("scheduler.review_duration_minutes", 30)
	v.SetDefault("scheduler.lock_ttl", "2m")

	v.SetDefault("job.rollover_enabled", true)
	v.SetDefault("job.rollover_cron", "5 0 * * *")

	v.SetDefault("import.max_rows", 2000)
	v.SetDefault("import.duplicate_policy", "skip")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: scheduler.timezone 无效: %w", err)
	}
	if c.Scheduler.LookaheadDays < 7 {
		return fmt.Errorf("配置校验失败: scheduler.lookahead_days 不能小于 7")
	}
	if c.Scheduler.MaxPlacementAttempts <= 0 {
		return fmt.Errorf("配置校验失败: scheduler.max_placement_attempts 必须为正数")
	}
	if c.Scheduler.ReviewDurationMinutes <= 0 {
		return fmt.Errorf("配置校验失败: scheduler.review_duration_minutes 必须为正数")
	}
	for _, d := range c.Scheduler.ReviewOffsets {
		if d <= 0 {
			return fmt.Errorf("配置校验失败: scheduler.review_offsets 必须为正数")
		}
	}
	switch c.Import.DuplicatePolicy {
	case "skip", "reject":
	default:
		return fmt.Errorf("配置校验失败: import.duplicate_policy 只能为 skip 或 reject")
	}
	return nil
}

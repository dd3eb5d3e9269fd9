package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Timetable TimetableConfig `mapstructure:"timetable"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int             `mapstructure:"port"`
	CORS         CORSConfig      `mapstructure:"cors"`
	BodyLimit    int64           `mapstructure:"body_limit"` // 请求体上限（字节）
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RateLimitConfig 课表生成接口限流
type RateLimitConfig struct {
	Generate int           `mapstructure:"generate"` // 窗口内允许的请求数，0 表示不限流
	Window   time.Duration `mapstructure:"window"`
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

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`   // 科目 / 课次查询缓存
	WorkingTTL time.Duration `mapstructure:"working_ttl"` // 工作课表保留时长
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TimetableConfig 冲突检测与组装策略
type TimetableConfig struct {
	ExemptSameSubjectKind bool `mapstructure:"exempt_same_subject_kind"`
	ErrorThresholdMinutes int  `mapstructure:"error_threshold_minutes"`
	FetchConcurrency      int  `mapstructure:"fetch_concurrency"`
	// MemoryStoreMax Redis 不可用时进程内工作课表的条目上限
	MemoryStoreMax int `mapstructure:"memory_store_max"`
}

// ExportConfig 导出配置
type ExportConfig struct {
	CalendarName string `mapstructure:"calendar_name"`
	Timezone     string `mapstructure:"timezone"`
	// TermStart 学期第一周的任意日期（YYYY-MM-DD），ICS 导出以此推算首次上课日期
	TermStart string `mapstructure:"term_start"`
}

// TermStartDate 解析 TermStart；为空时返回零值
func (c *ExportConfig) TermStartDate() (time.Time, error) {
	if c.TermStart == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", c.TermStart)
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量（含 .env） > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// 本地开发时读取 .env，不存在则忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

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
	v.SetEnvPrefix("TIMETABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "timetable")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.body_limit", 1<<20) // 1MB
	v.SetDefault("server.rate_limit.generate", 30)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "timetable")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "10m")
	v.SetDefault("redis.working_ttl", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("timetable.exempt_same_subject_kind", true)
	v.SetDefault("timetable.error_threshold_minutes", 30)
	v.SetDefault("timetable.fetch_concurrency", 4)
	v.SetDefault("timetable.memory_store_max", 10000)

	v.SetDefault("export.calendar_name", "My Timetable")
	v.SetDefault("export.timezone", "UTC")
	v.SetDefault("export.term_start", "")
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Server.BodyLimit <= 0 {
		return fmt.Errorf("配置校验失败: server.body_limit 必须大于 0")
	}
	if c.Server.RateLimit.Generate < 0 {
		return fmt.Errorf("配置校验失败: server.rate_limit.generate 不能为负数")
	}
	if c.Server.RateLimit.Generate > 0 && c.Server.RateLimit.Window <= 0 {
		return fmt.Errorf("配置校验失败: 启用限流时 server.rate_limit.window 必须大于 0")
	}
	if c.Timetable.ErrorThresholdMinutes <= 0 {
		return fmt.Errorf("配置校验失败: timetable.error_threshold_minutes 必须大于 0")
	}
	if c.Timetable.FetchConcurrency <= 0 {
		return fmt.Errorf("配置校验失败: timetable.fetch_concurrency 必须大于 0")
	}
	if c.Timetable.MemoryStoreMax < 0 {
		return fmt.Errorf("配置校验失败: timetable.memory_store_max 不能为负数")
	}
	if _, err := c.Export.TermStartDate(); err != nil {
		return fmt.Errorf("配置校验失败: export.term_start 需为 YYYY-MM-DD: %w", err)
	}
	if _, err := time.LoadLocation(c.Export.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: export.timezone 无效: %w", err)
	}
	return nil
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// DefaultJWTSecret 仅用于本地开发，生产环境必须覆盖。
const DefaultJWTSecret = "dev_secret_change_me"

// 支持的数据库驱动。
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config 保存应用程序配置。
//
// 进程启动时构造一次，之后只读；各组件通过参数拿到所需的部分，不再读取环境变量。
type Config struct {
	App      AppConfig      `json:"app"`
	Database DatabaseConfig `json:"database"`
	Security SecurityConfig `json:"security"`
	CORS     CORSConfig     `json:"cors"`
}

// AppConfig 应用程序基础配置。
type AppConfig struct {
	Env             string        `json:"env"`              // 运行环境: local / prod
	LogLevel        string        `json:"log_level"`        // 日志级别: debug / info / warn / error
	LogFormat       string        `json:"log_format"`       // 日志格式: text / json
	LogFile         string        `json:"log_file"`         // 滚动日志文件路径（为空表示只输出到 stdout）
	HTTPAddr        string        `json:"http_addr"`        // API 服务监听地址
	APIPrefix       string        `json:"api_prefix"`       // 路由前缀
	ShutdownTimeout time.Duration `json:"shutdown_timeout"` // 优雅退出等待时间（如 "5s"）
	SeedDemo        bool          `json:"seed_demo"`        // 启动时创建演示账号（仅限非 prod）
}

// DatabaseConfig 数据库配置。
type DatabaseConfig struct {
	Driver          string        `json:"driver"`            // mysql / postgres / sqlite
	DSN             string        `json:"dsn"`               // 数据库连接字符串
	MaxOpenConns    int           `json:"max_open_conns"`    // 最大连接数
	MaxIdleConns    int           `json:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"` // 连接最长存活时间（如 "30m"）
	Debug           bool          `json:"debug"`             // 是否输出 SQL 日志
}

// SecurityConfig 安全相关配置。
type SecurityConfig struct {
	JWTSecret  string        `json:"jwt_secret"`  // JWT 签名密钥（轮换即令所有令牌失效）
	TokenTTL   time.Duration `json:"token_ttl"`   // 令牌有效期（如 "24h"）
	BcryptCost int           `json:"bcrypt_cost"` // bcrypt 代价因子
}

// CORSConfig 跨域配置。
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"` // 允许的前端来源
}

// Load 从 JSON 文件加载配置。
//
// 它会尝试读取 configs/config.json 文件，如果不存在则使用默认值；
// 之后应用环境变量覆盖。
func Load(configPath ...string) (*Config, error) {
	path := "configs/config.json"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	// 如果配置文件不存在，使用默认配置
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		// 即使没有配置文件，也允许环境变量覆盖默认值
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// 应用默认值（对于未设置的字段）
	applyDefaults(cfg)

	// 环境变量优先覆盖配置
	applyEnvOverrides(cfg)

	return cfg, nil
}

// Validate 检查配置是否可用。
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		errs = append(errs, errors.New("security.jwt_secret is required"))
	}
	if c.App.Env == "prod" && c.Security.JWTSecret == DefaultJWTSecret {
		errs = append(errs, errors.New("security.jwt_secret must be changed in prod"))
	}
	if c.Security.TokenTTL <= 0 {
		errs = append(errs, errors.New("security.token_ttl must be positive"))
	}
	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("security.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.App.Env == "prod" && c.App.SeedDemo {
		errs = append(errs, errors.New("app.seed_demo is not allowed in prod"))
	}
	for _, origin := range c.CORS.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errs = append(errs, fmt.Errorf("cors.allowed_origins: %q must start with http:// or https://", origin))
		}
	}
	return errors.Join(errs...)
}

// getDefaultConfig 返回默认配置。
func getDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:             "local",
			LogLevel:        "info",
			LogFormat:       "text",
			HTTPAddr:        ":8000",
			APIPrefix:       "/api",
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverMySQL,
			DSN:             "root:password@tcp(localhost:3306)/todo_app?parseTime=true&loc=Local",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Security: SecurityConfig{
			JWTSecret:  DefaultJWTSecret,
			TokenTTL:   24 * time.Hour,
			BcryptCost: 12,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// applyDefaults 对未设置的字段应用默认值。
func applyDefaults(cfg *Config) {
	defaults := getDefaultConfig()

	if cfg.App.Env == "" {
		cfg.App.Env = defaults.App.Env
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaults.App.LogLevel
	}
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = defaults.App.LogFormat
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = defaults.App.HTTPAddr
	}
	if cfg.App.APIPrefix == "" {
		cfg.App.APIPrefix = defaults.App.APIPrefix
	}
	if cfg.App.ShutdownTimeout == 0 {
		cfg.App.ShutdownTimeout = defaults.App.ShutdownTimeout
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = defaults.Database.Driver
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == DriverMySQL {
		cfg.Database.DSN = defaults.Database.DSN
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
	}
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = defaults.Security.JWTSecret
	}
	if cfg.Security.TokenTTL == 0 {
		cfg.Security.TokenTTL = defaults.Security.TokenTTL
	}
	if cfg.Security.BcryptCost == 0 {
		cfg.Security.BcryptCost = defaults.Security.BcryptCost
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = defaults.CORS.AllowedOrigins
	}
}

func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.AutomaticEnv()

	_ = v.BindEnv("app_env", "APP_ENV")
	_ = v.BindEnv("log_level", "APP_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log_format", "APP_LOG_FORMAT")
	_ = v.BindEnv("log_file", "APP_LOG_FILE")
	_ = v.BindEnv("http_addr", "APP_HTTP_ADDR")
	_ = v.BindEnv("api_prefix", "APP_API_PREFIX")
	_ = v.BindEnv("shutdown_timeout", "APP_SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("seed_demo", "APP_SEED_DEMO")
	_ = v.BindEnv("db_driver", "DB_DRIVER")
	_ = v.BindEnv("db_dsn", "DB_DSN", "DATABASE_URL")
	_ = v.BindEnv("db_host", "DB_HOST")
	_ = v.BindEnv("db_port", "DB_PORT")
	_ = v.BindEnv("db_user", "DB_USER")
	_ = v.BindEnv("db_password", "DB_PASSWORD")
	_ = v.BindEnv("db_name", "DB_NAME")
	_ = v.BindEnv("db_debug", "DB_DEBUG")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET", "BETTER_AUTH_SECRET")
	_ = v.BindEnv("token_ttl", "JWT_TTL")
	_ = v.BindEnv("bcrypt_cost", "BCRYPT_COST")
	_ = v.BindEnv("cors_origins", "CORS_ALLOWED_ORIGINS", "FRONTEND_ORIGIN")

	if s := v.GetString("app_env"); s != "" {
		cfg.App.Env = s
	}
	if s := v.GetString("log_level"); s != "" {
		cfg.App.LogLevel = s
	}
	if s := v.GetString("log_format"); s != "" {
		cfg.App.LogFormat = s
	}
	if s := v.GetString("log_file"); s != "" {
		cfg.App.LogFile = s
	}
	if s := v.GetString("http_addr"); s != "" {
		cfg.App.HTTPAddr = s
	}
	if s := v.GetString("api_prefix"); s != "" {
		cfg.App.APIPrefix = s
	}
	if s := v.GetString("shutdown_timeout"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.App.ShutdownTimeout = d
		}
	}

	if v.IsSet("seed_demo") {
		cfg.App.SeedDemo = v.GetBool("seed_demo")
	}

	if s := v.GetString("db_driver"); s != "" {
		cfg.Database.Driver = strings.ToLower(s)
	}
	if v.IsSet("db_debug") {
		cfg.Database.Debug = v.GetBool("db_debug")
	}
	if s := v.GetString("db_dsn"); s != "" {
		cfg.Database.DSN = s
		// postgres URL 形式的 DATABASE_URL 未指定驱动时自动切换
		if v.GetString("db_driver") == "" && isPostgresURL(s) {
			cfg.Database.Driver = DriverPostgres
		}
	} else if cfg.Database.Driver == DriverMySQL && hasAny(v, "db_host", "db_port", "db_user", "db_password", "db_name") {
		parsed := parseMySQLDSN(cfg.Database.DSN)
		host, port := splitHostPort(parsed.Addr)
		if s := v.GetString("db_host"); s != "" {
			host = s
		}
		if s := v.GetString("db_port"); s != "" {
			port = s
		}
		parsed.Addr = host + ":" + port
		if s := v.GetString("db_user"); s != "" {
			parsed.User = s
		}
		if s := v.GetString("db_password"); s != "" {
			parsed.Passwd = s
		}
		if s := v.GetString("db_name"); s != "" {
			parsed.DBName = s
		}
		cfg.Database.DSN = parsed.FormatDSN()
	}

	if s := v.GetString("jwt_secret"); s != "" {
		cfg.Security.JWTSecret = s
	}
	if s := v.GetString("token_ttl"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.Security.TokenTTL = d
		}
	}
	if v.IsSet("bcrypt_cost") {
		if i := v.GetInt("bcrypt_cost"); i > 0 {
			cfg.Security.BcryptCost = i
		}
	}
	if s := v.GetString("cors_origins"); s != "" {
		cfg.CORS.AllowedOrigins = splitList(s)
	}
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func hasAny(v *viper.Viper, keys ...string) bool {
	for _, key := range keys {
		if v.GetString(key) != "" {
			return true
		}
	}
	return false
}

func splitHostPort(addr string) (string, string) {
	host, port := "localhost", "3306"
	if addr == "" {
		return host, port
	}
	parts := strings.Split(addr, ":")
	if parts[0] != "" {
		host = parts[0]
	}
	if len(parts) == 2 && parts[1] != "" {
		port = parts[1]
	}
	return host, port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseMySQLDSN(dsn string) *mysql.Config {
	fallback := func() *mysql.Config {
		cfg := mysql.NewConfig()
		cfg.User = "root"
		cfg.Net = "tcp"
		cfg.Addr = "localhost:3306"
		cfg.DBName = "todo_app"
		cfg.ParseTime = true
		cfg.Loc = time.Local
		return cfg
	}
	if dsn == "" {
		return fallback()
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return fallback()
	}
	return parsed
}

// UnmarshalJSON 自定义 JSON 解析，支持时间 Duration 字符串。
func (a *AppConfig) UnmarshalJSON(data []byte) error {
	type Alias AppConfig
	aux := &struct {
		ShutdownTimeout string `json:"shutdown_timeout"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ShutdownTimeout != "" {
		d, err := time.ParseDuration(aux.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown_timeout format: %w", err)
		}
		a.ShutdownTimeout = d
	}
	return nil
}

// MarshalJSON 自定义 JSON 序列化，将 Duration 转为字符串。
func (a AppConfig) MarshalJSON() ([]byte, error) {
	type Alias AppConfig
	return json.Marshal(&struct {
		ShutdownTimeout string `json:"shutdown_timeout"`
		*Alias
	}{
		ShutdownTimeout: a.ShutdownTimeout.String(),
		Alias:           (*Alias)(&a),
	})
}

// UnmarshalJSON 自定义 JSON 解析，支持时间 Duration 字符串。
func (d *DatabaseConfig) UnmarshalJSON(data []byte) error {
	type Alias DatabaseConfig
	aux := &struct {
		ConnMaxLifetime string `json:"conn_max_lifetime"`
		*Alias
	}{
		Alias: (*Alias)(d),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ConnMaxLifetime != "" {
		v, err := time.ParseDuration(aux.ConnMaxLifetime)
		if err != nil {
			return fmt.Errorf("invalid conn_max_lifetime format: %w", err)
		}
		d.ConnMaxLifetime = v
	}
	return nil
}

// MarshalJSON 自定义 JSON 序列化，将 Duration 转为字符串。
func (d DatabaseConfig) MarshalJSON() ([]byte, error) {
	type Alias DatabaseConfig
	return json.Marshal(&struct {
		ConnMaxLifetime string `json:"conn_max_lifetime"`
		*Alias
	}{
		ConnMaxLifetime: d.ConnMaxLifetime.String(),
		Alias:           (*Alias)(&d),
	})
}

// UnmarshalJSON 自定义 JSON 解析，支持时间 Duration 字符串。
func (s *SecurityConfig) UnmarshalJSON(data []byte) error {
	type Alias SecurityConfig
	aux := &struct {
		TokenTTL string `json:"token_ttl"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.TokenTTL != "" {
		d, err := time.ParseDuration(aux.TokenTTL)
		if err != nil {
			return fmt.Errorf("invalid token_ttl format: %w", err)
		}
		s.TokenTTL = d
	}
	return nil
}

// MarshalJSON 自定义 JSON 序列化，将 Duration 转为字符串。
func (s SecurityConfig) MarshalJSON() ([]byte, error) {
	type Alias SecurityConfig
	return json.Marshal(&struct {
		TokenTTL string `json:"token_ttl"`
		*Alias
	}{
		TokenTTL: s.TokenTTL.String(),
		Alias:    (*Alias)(&s),
	})
}

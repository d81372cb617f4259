package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Store       StoreConfig       `mapstructure:"store"`
	Entitlement EntitlementConfig `mapstructure:"entitlement"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Naver       NaverConfig       `mapstructure:"naver"`
	AuthBackend AuthBackendConfig `mapstructure:"auth_backend"`
	OSS         OSSConfig         `mapstructure:"oss"`
	Email       EmailConfig       `mapstructure:"email"`
	Queue       QueueConfig       `mapstructure:"queue"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Upload      UploadConfig      `mapstructure:"upload"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite | mysql
	Path         string `mapstructure:"path"`   // sqlite 文件路径
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// StoreConfig 购买记录持久化
type StoreConfig struct {
	Backend  string `mapstructure:"backend"` // memory | file | redis | gorm
	Key      string `mapstructure:"key"`
	FilePath string `mapstructure:"file_path"`
}

type EntitlementConfig struct {
	StrictTransitions bool `mapstructure:"strict_transitions"`
	ExpiryNoticeHours int  `mapstructure:"expiry_notice_hours"`
}

type PricingConfig struct {
	SingleReport float64 `mapstructure:"single_report"`
	SnapshotPlan float64 `mapstructure:"snapshot_plan"`
	CustomReport float64 `mapstructure:"custom_report"`
}

type AdminConfig struct {
	Emails []string `mapstructure:"emails"`
}

// IsAdmin 邮箱是否在管理员列表中（不区分大小写）
func (c AdminConfig) IsAdmin(email string) bool {
	if email == "" {
		return false
	}
	for _, e := range c.Emails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

type NaverConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	BaseURL      string `mapstructure:"base_url"`
}

type AuthBackendConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	GoogleUserinfoURL string `mapstructure:"google_userinfo_url"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	ReportQueue string `mapstructure:"report_queue"`
	MaxWorkers  int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"`           // 最大文件大小（字节）
	AllowedExtensions []string `mapstructure:"allowed_extensions"` // 允许的扩展名
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/khip.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire_hours", 168)

	v.SetDefault("store.backend", "redis")
	v.SetDefault("store.key", "khip_purchases")
	v.SetDefault("store.file_path", "data/khip_purchases.json")

	v.SetDefault("entitlement.strict_transitions", false)
	v.SetDefault("entitlement.expiry_notice_hours", 24)

	v.SetDefault("pricing.single_report", 149)
	v.SetDefault("pricing.snapshot_plan", 29)
	v.SetDefault("pricing.custom_report", 490)

	v.SetDefault("admin.emails", []string{"admin@khip.com"})

	v.SetDefault("naver.client_id", "")
	v.SetDefault("naver.client_secret", "")
	v.SetDefault("naver.base_url", "https://openapi.naver.com")

	v.SetDefault("auth_backend.base_url", "")
	v.SetDefault("auth_backend.timeout_seconds", 10)
	v.SetDefault("auth_backend.google_userinfo_url", "https://openidconnect.googleapis.com/v1/userinfo")

	v.SetDefault("queue.report_queue", "queue:report")
	v.SetDefault("queue.max_workers", 2)

	v.SetDefault("upload.max_size", 20*1024*1024)
	v.SetDefault("upload.allowed_extensions", []string{".pdf"})
}

func Load(configPath string) (*Config, error) {
	dir := filepath.Dir(configPath)

	// .env 只补充尚未设置的环境变量
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, err
		}
	}

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖，如 NAVER_CLIENT_ID
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

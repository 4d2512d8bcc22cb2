package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"cashflow/internal/model"

	"github.com/joho/godotenv"
)

var dotenvLoad = godotenv.Load

// Config 為服務執行所需的所有設定，皆來自環境變數
type Config struct {
	Port string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	SessionTTL time.Duration

	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURL  string

	FrontendURL  string
	CORSOrigins  []string
	DefaultRole  model.Role
	CookieSecure bool

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	WorkerCount    int
	ReportCacheTTL time.Duration
	RateLimit      float64

	LogLevel string
}

var serviceRequired = []string{
	"DATABASE_URL", "REDIS_ADDR", "JWT_SECRET", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET",
}

// Load 讀取 API 服務設定；.env 檔不存在時忽略
func Load() (Config, error) {
	return load(serviceRequired...)
}

// LoadWorker 讀取 report-worker 設定，不需要 GitHub 與 JWT
func LoadWorker() (Config, error) {
	return load("DATABASE_URL", "REDIS_ADDR", "AMQP_URL")
}

// LoadCLI 讀取管理指令設定，只需要資料庫
func LoadCLI() (Config, error) {
	return load("DATABASE_URL")
}

func load(required ...string) (Config, error) {
	if err := dotenvLoad(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("讀取 .env 失敗: %w", err)
	}

	var errs []error
	for _, key := range required {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			errs = append(errs, fmt.Errorf("環境變數 %s 未設定", key))
		}
	}

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubRedirectURL:  getEnv("GITHUB_REDIRECT_URL", "http://localhost:8080/api/auth/github/callback"),
		FrontendURL:        strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		DefaultRole:        model.Role(strings.ToUpper(getEnv("DEFAULT_ROLE", string(model.RoleAdmin)))),
		AMQPURL:            os.Getenv("AMQP_URL"),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "cashflow"),
		AMQPQueue:          getEnv("AMQP_QUEUE", "cashflow.report-warmup"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
	cfg.CORSOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", cfg.FrontendURL))

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.WorkerCount, err = getInt("WORKER_COUNT", 1); err != nil {
		errs = append(errs, err)
	} else if cfg.WorkerCount <= 0 {
		errs = append(errs, fmt.Errorf("無效的 WORKER_COUNT: %d", cfg.WorkerCount))
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 7*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.ReportCacheTTL, err = getDuration("REPORT_CACHE_TTL", 5*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimit, err = getFloat("RATE_LIMIT", 20); err != nil {
		errs = append(errs, err)
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", false); err != nil {
		errs = append(errs, err)
	}
	if !cfg.DefaultRole.Valid() {
		errs = append(errs, fmt.Errorf("無效的 DEFAULT_ROLE: %s", cfg.DefaultRole))
	}
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("無效的 PORT: %s", cfg.Port))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// HTTPAddress 回傳 echo 監聽位址
func (c Config) HTTPAddress() string {
	return net.JoinHostPort("", c.Port)
}

// EventsEnabled 表示是否設定了 AMQP
func (c Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("無效的 %s: %v", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("無效的 %s: %s", key, v)
	}
	return f, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("無效的 %s: %v", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("無效的 %s: %s", key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// файл .env (если есть) подгружается через godotenv.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Драйверы хранилища.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- HTTP API ---
	HTTPAddr  string        `envconfig:"HTTP_ADDR" default:":3000"`
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"168h"`

	// --- Telegram (админ-консоль) ---
	// Пустой токен отключает консоль: заявки тогда обрабатываются только через HTTP.
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS"`
	AdminIDs         []int64 `envconfig:"-"` // заполним вручную
	// Сколько апдейтов обрабатываем параллельно.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"16"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	// Хэш argon2id: пароль админ-консоли и сидированного веб-админа.
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`
	AdminHandle       string `envconfig:"ADMIN_HANDLE" default:"admin"`
	AdminName         string `envconfig:"ADMIN_NAME" default:"Admin User"`

	// --- Storage ---
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`

	// --- Database ---
	// В Docker дефолт "postgres" (имя сервиса в docker-compose), для локалки DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"goldmine"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"goldmine"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Redis (аренда для задачи начисления) ---
	// Пустой адрес: одна реплика, аренда не нужна.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Asia/Kolkata"`

	// --- Settlement ---
	ReferralBonus      decimal.Decimal `envconfig:"REFERRAL_BONUS" default:"50"`
	ReferralBaseURL    string          `envconfig:"REFERRAL_BASE_URL" default:"https://goldmine-pro.com/register?ref="`
	WithdrawalTaxRate  decimal.Decimal `envconfig:"WITHDRAWAL_TAX_RATE" default:"0.03"`
	WithdrawalCooldown time.Duration   `envconfig:"WITHDRAWAL_COOLDOWN" default:"24h"`

	// --- Accrual ---
	AccrualCron string `envconfig:"ACCRUAL_CRON" default:"0 0 * * *"`
	// true: начисление не чаще раза в сутки на покупку; false: старое поведение без защиты.
	AccrualIdempotent bool          `envconfig:"ACCRUAL_IDEMPOTENT" default:"true"`
	AccrualLeaseTTL   time.Duration `envconfig:"ACCRUAL_LEASE_TTL" default:"10m"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureGamesEnabled bool `envconfig:"FEATURE_GAMES_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// AdminConsoleEnabled: включена ли админ-консоль в Telegram.
func (c *Config) AdminConsoleEnabled() bool {
	return c.TelegramBotToken != "" && len(c.AdminIDs) > 0
}

func (c *Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET должен быть не короче 16 символов")
	}
	switch c.StoreDriver {
	case StorePostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD не задан")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER: неизвестный драйвер %q", c.StoreDriver)
	}
	if c.TelegramBotToken != "" && len(c.AdminIDs) == 0 {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN задан, но ADMIN_IDS пуст")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.ReferralBonus.IsNegative() {
		return fmt.Errorf("REFERRAL_BONUS не может быть отрицательным")
	}
	if c.WithdrawalTaxRate.IsNegative() || c.WithdrawalTaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("WITHDRAWAL_TAX_RATE должен быть в диапазоне [0, 1)")
	}
	if c.WithdrawalCooldown < 0 {
		return fmt.Errorf("WITHDRAWAL_COOLDOWN не может быть отрицательным")
	}
	if _, err := cron.ParseStandard(c.AccrualCron); err != nil {
		return fmt.Errorf("ACCRUAL_CRON: %w", err)
	}
	if c.AccrualLeaseTTL <= 0 {
		return fmt.Errorf("ACCRUAL_LEASE_TTL должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS и RATE_LIMIT_WINDOW должны быть > 0")
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("не удалось прочитать .env: %w", err)
	}
	return FromEnv()
}

// FromEnv заполняет Config только из окружения процесса.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

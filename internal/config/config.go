package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Режимы хранения данных.
const (
	ModeDatabase = "database"
	ModeSQLite   = "sqlite"
	ModeFile     = "file"
	ModeMemory   = "memory"
)

// Config хранит конфигурацию сервера
type Config struct {
	ServerAddress    string        `json:"server_address"`
	FileStoragePath  string        `json:"file_storage_path"`
	DatabaseDSN      string        `json:"database_dsn"`
	SQLitePath       string        `json:"sqlite_path"`
	PgMigrationsPath string        `json:"pg_migrations_path"`
	EnableHTTPS      bool          `json:"enable_https"`
	TLSCertPath      string        `json:"tls_cert_path"`
	TLSKeyPath       string        `json:"tls_key_path"`
	SecretKey        string        `json:"secret_key"`
	SessionMaxAge    time.Duration `json:"-"`
	CORSOrigins      []string      `json:"cors_origins"`
	LoginRateLimit   float64       `json:"login_rate_limit"`
	LoginBurst       int           `json:"login_burst"`
	Mode             string        `json:"-"`
}

// NewConfig инициализирует конфигурацию из аргументов командной строки процесса.
func NewConfig() (*Config, error) {
	return ParseConfig(os.Args[1:])
}

// ParseConfig собирает конфигурацию. Приоритет (от низшего к высшему):
// значения по умолчанию, JSON-файл, переменные окружения (в том числе из .env), флаги.
func ParseConfig(args []string) (*Config, error) {
	// .env не переопределяет уже заданные переменные окружения
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("SERVER_ADDRESS", "localhost:8080")
	v.SetDefault("FILE_STORAGE_PATH", "")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SQLITE_PATH", "")
	v.SetDefault("PG_MIGRATIONS_PATH", "internal/migrations")
	v.SetDefault("ENABLE_HTTPS", false)
	v.SetDefault("TLS_CERT_PATH", "cert.pem")
	v.SetDefault("TLS_KEY_PATH", "key.pem")
	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("SESSION_MAX_AGE", 14*24*time.Hour)
	v.SetDefault("CORS_ORIGINS", "")
	v.SetDefault("LOGIN_RATE_LIMIT", 1.0)
	v.SetDefault("LOGIN_BURST", 5)
	v.AutomaticEnv()

	fs := flag.NewFlagSet("learninglog", flag.ContinueOnError)
	serverAddress := fs.String("a", "", "server address")
	fileStoragePath := fs.String("f", "", "file storage path (JSON lines file)")
	databaseDSN := fs.String("d", "", "PostgreSQL DSN")
	sqlitePath := fs.String("l", "", "SQLite database path")
	enableHTTPS := fs.Bool("s", false, "enable HTTPS")
	tlsCertPath := fs.String("cert", "", "path to TLS certificate")
	tlsKeyPath := fs.String("key", "", "path to TLS key")
	secretKey := fs.String("k", "", "secret key for session cookies")
	configPath := fs.String("c", "", "path to JSON config file")
	fs.StringVar(configPath, "config", "", "path to JSON config file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	cfg := &Config{
		ServerAddress:    v.GetString("SERVER_ADDRESS"),
		PgMigrationsPath: v.GetString("PG_MIGRATIONS_PATH"),
		TLSCertPath:      v.GetString("TLS_CERT_PATH"),
		TLSKeyPath:       v.GetString("TLS_KEY_PATH"),
		SessionMaxAge:    v.GetDuration("SESSION_MAX_AGE"),
		LoginRateLimit:   v.GetFloat64("LOGIN_RATE_LIMIT"),
		LoginBurst:       v.GetInt("LOGIN_BURST"),
	}

	// JSON-конфигурация (если указана) перекрывает значения по умолчанию
	if *configPath == "" {
		*configPath = os.Getenv("CONFIG")
	}
	if *configPath != "" {
		if err := loadJSON(*configPath, cfg); err != nil {
			log.Printf("Не удалось загрузить JSON-конфигурацию %q: %v", *configPath, err)
		}
	}

	// Переменные окружения имеют приоритет над JSON
	override := func(env string, target *string) {
		if val := os.Getenv(env); val != "" {
			*target = val
		}
	}
	override("SERVER_ADDRESS", &cfg.ServerAddress)
	override("FILE_STORAGE_PATH", &cfg.FileStoragePath)
	override("DATABASE_DSN", &cfg.DatabaseDSN)
	override("SQLITE_PATH", &cfg.SQLitePath)
	override("PG_MIGRATIONS_PATH", &cfg.PgMigrationsPath)
	override("TLS_CERT_PATH", &cfg.TLSCertPath)
	override("TLS_KEY_PATH", &cfg.TLSKeyPath)
	override("SECRET_KEY", &cfg.SecretKey)
	if os.Getenv("ENABLE_HTTPS") != "" {
		cfg.EnableHTTPS = v.GetBool("ENABLE_HTTPS")
	}
	if os.Getenv("LOGIN_RATE_LIMIT") != "" {
		cfg.LoginRateLimit = v.GetFloat64("LOGIN_RATE_LIMIT")
	}
	if os.Getenv("LOGIN_BURST") != "" {
		cfg.LoginBurst = v.GetInt("LOGIN_BURST")
	}
	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	// Флаги — наивысший приоритет
	setIf := func(val string, target *string) {
		if val != "" {
			*target = val
		}
	}
	setIf(*serverAddress, &cfg.ServerAddress)
	setIf(*fileStoragePath, &cfg.FileStoragePath)
	setIf(*databaseDSN, &cfg.DatabaseDSN)
	setIf(*sqlitePath, &cfg.SQLitePath)
	setIf(*tlsCertPath, &cfg.TLSCertPath)
	setIf(*tlsKeyPath, &cfg.TLSKeyPath)
	setIf(*secretKey, &cfg.SecretKey)
	if *enableHTTPS {
		cfg.EnableHTTPS = true
	}

	cfg.Mode = cfg.detectMode()

	log.Printf("Инициализация конфигурации: ServerAddress=%s", cfg.ServerAddress)
	log.Printf("Инициализация конфигурации: Mode=%s", cfg.Mode)
	log.Printf("Инициализация конфигурации: EnableHTTPS=%v", cfg.EnableHTTPS)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) detectMode() string {
	switch {
	case cfg.DatabaseDSN != "":
		return ModeDatabase
	case cfg.SQLitePath != "":
		return ModeSQLite
	case cfg.FileStoragePath != "":
		return ModeFile
	default:
		return ModeMemory
	}
}

// Validate проверяет корректность конфигурации
func (cfg *Config) Validate() error {
	if cfg.ServerAddress == "" {
		return fmt.Errorf("адрес сервера не может быть пустым")
	}
	if cfg.Mode == ModeDatabase && cfg.PgMigrationsPath == "" {
		return fmt.Errorf("путь к миграциям не может быть пустым")
	}
	if cfg.EnableHTTPS && (cfg.TLSCertPath == "" || cfg.TLSKeyPath == "") {
		return fmt.Errorf("для HTTPS нужны сертификат и ключ")
	}
	// LoginRateLimit == 0 отключает ограничение
	if cfg.LoginRateLimit < 0 {
		return fmt.Errorf("лимит попыток входа не может быть отрицательным")
	}
	if cfg.LoginRateLimit > 0 && cfg.LoginBurst <= 0 {
		return fmt.Errorf("запас попыток входа должен быть положительным")
	}
	return nil
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	type rawJSON Config
	return json.Unmarshal(data, (*rawJSON)(cfg))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Log       LogConfig
	Worker    WorkerConfig
	Backend   BackendConfig
	Territory TerritoryConfig
	GeoNames  GeoNamesConfig
	Overpass  OverpassConfig
	Nominatim NominatimConfig
	Google    GoogleConfig
	Grid      GridConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig - Backend: memory (процессный кеш) или redis (общий кеш для нескольких инстансов)
type CacheConfig struct {
	Backend     string
	LocationTTL time.Duration
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled          bool
	ConsumerGroup    string
	MaxRetries       int
	BlockConcurrency int
}

// BackendConfig - REST бэкенд с территориями и проверкой пересечений
type BackendConfig struct {
	BaseURL        string
	OverlapPath    string
	TerritoryPath  string
	AuthToken      string
	RequestTimeout time.Duration
}

// TerritoryConfig - Source: backend (REST) или postgres (read-only таблица zones)
type TerritoryConfig struct {
	Source string
}

type GeoNamesConfig struct {
	BaseURL        string
	Username       string
	MinInterval    time.Duration
	RequestTimeout time.Duration
}

type OverpassConfig struct {
	BaseURL      string
	MinInterval  time.Duration
	QueryTimeout time.Duration
}

type NominatimConfig struct {
	BaseURL        string
	UserAgent      string
	Email          string
	MinInterval    time.Duration
	RequestTimeout time.Duration
}

// GoogleConfig - прокси-маршруты приложения к Google Geocoding/Places (ключ не покидает сервер)
type GoogleConfig struct {
	BaseURL        string
	APIKey         string
	MinInterval    time.Duration
	RequestTimeout time.Duration
}

// GridConfig - настраиваемые константы детекции зданий
type GridConfig struct {
	ReverseGeocoder     string
	LotSizeM2           float64
	SyntheticHouseStart int
	MaxMatchDistanceM   float64
	AttemptsMultiplier  int
	MaxBlockAreaKm2     float64
	DetailsTimeout      time.Duration
}

// Load читает конфигурацию из .env в рабочей директории и переменных окружения
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom читает конфигурацию из указанного файла; отсутствие файла не ошибка,
// значения берутся из окружения и значений по умолчанию
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("API_HOST"),
			Port:        v.GetInt("API_PORT"),
			Env:         v.GetString("API_ENV"),
			CORSOrigins: v.GetString("API_CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxConns:        v.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			Backend:     strings.ToLower(v.GetString("CACHE_BACKEND")),
			LocationTTL: time.Duration(v.GetInt("LOCATION_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:          v.GetBool("WORKER_ENABLED"),
			ConsumerGroup:    v.GetString("WORKER_CONSUMER_GROUP"),
			MaxRetries:       v.GetInt("WORKER_MAX_RETRIES"),
			BlockConcurrency: v.GetInt("WORKER_BLOCK_CONCURRENCY"),
		},
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
			OverlapPath:    v.GetString("BACKEND_OVERLAP_PATH"),
			TerritoryPath:  v.GetString("BACKEND_TERRITORY_PATH"),
			AuthToken:      v.GetString("BACKEND_AUTH_TOKEN"),
			RequestTimeout: time.Duration(v.GetInt("BACKEND_TIMEOUT")) * time.Second,
		},
		Territory: TerritoryConfig{
			Source: strings.ToLower(v.GetString("TERRITORY_SOURCE")),
		},
		GeoNames: GeoNamesConfig{
			BaseURL:        strings.TrimRight(v.GetString("GEONAMES_URL"), "/"),
			Username:       v.GetString("GEONAMES_USERNAME"),
			MinInterval:    time.Duration(v.GetInt("GEONAMES_MIN_INTERVAL_MS")) * time.Millisecond,
			RequestTimeout: time.Duration(v.GetInt("GEONAMES_TIMEOUT")) * time.Second,
		},
		Overpass: OverpassConfig{
			BaseURL:      v.GetString("OVERPASS_URL"),
			MinInterval:  time.Duration(v.GetInt("OVERPASS_MIN_INTERVAL_MS")) * time.Millisecond,
			QueryTimeout: time.Duration(v.GetInt("OVERPASS_TIMEOUT")) * time.Second,
		},
		Nominatim: NominatimConfig{
			BaseURL:        strings.TrimRight(v.GetString("NOMINATIM_URL"), "/"),
			UserAgent:      v.GetString("NOMINATIM_USER_AGENT"),
			Email:          v.GetString("NOMINATIM_EMAIL"),
			MinInterval:    time.Duration(v.GetInt("NOMINATIM_MIN_INTERVAL_MS")) * time.Millisecond,
			RequestTimeout: time.Duration(v.GetInt("NOMINATIM_TIMEOUT")) * time.Second,
		},
		Google: GoogleConfig{
			BaseURL:        strings.TrimRight(v.GetString("GOOGLE_PROXY_URL"), "/"),
			APIKey:         v.GetString("GOOGLE_API_KEY"),
			MinInterval:    time.Duration(v.GetInt("GOOGLE_MIN_INTERVAL_MS")) * time.Millisecond,
			RequestTimeout: time.Duration(v.GetInt("GOOGLE_TIMEOUT")) * time.Second,
		},
		Grid: GridConfig{
			ReverseGeocoder:     strings.ToLower(v.GetString("GRID_REVERSE_GEOCODER")),
			LotSizeM2:           v.GetFloat64("GRID_LOT_SIZE_M2"),
			SyntheticHouseStart: v.GetInt("GRID_SYNTHETIC_HOUSE_START"),
			MaxMatchDistanceM:   v.GetFloat64("GRID_MAX_MATCH_DISTANCE_M"),
			AttemptsMultiplier:  v.GetInt("GRID_ATTEMPTS_MULTIPLIER"),
			MaxBlockAreaKm2:     v.GetFloat64("GRID_MAX_BLOCK_AREA_KM2"),
			DetailsTimeout:      time.Duration(v.GetInt("GRID_DETAILS_TIMEOUT")) * time.Second,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_ENV", "development")
	v.SetDefault("API_CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 60)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)

	v.SetDefault("CACHE_BACKEND", "memory")
	v.SetDefault("LOCATION_CACHE_TTL", 300)

	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("WORKER_CONSUMER_GROUP", "territory-block-workers")
	v.SetDefault("WORKER_MAX_RETRIES", 3)
	v.SetDefault("WORKER_BLOCK_CONCURRENCY", 4)

	v.SetDefault("BACKEND_OVERLAP_PATH", "/zones/check-overlap")
	v.SetDefault("BACKEND_TERRITORY_PATH", "/zones/list-all")
	v.SetDefault("BACKEND_TIMEOUT", 10)

	v.SetDefault("TERRITORY_SOURCE", "backend")

	v.SetDefault("GEONAMES_URL", "http://api.geonames.org")
	v.SetDefault("GEONAMES_MIN_INTERVAL_MS", 100)
	v.SetDefault("GEONAMES_TIMEOUT", 10)

	v.SetDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter")
	v.SetDefault("OVERPASS_MIN_INTERVAL_MS", 1000)
	v.SetDefault("OVERPASS_TIMEOUT", 25)

	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("NOMINATIM_USER_AGENT", "territory-service/1.0 (canvassing territory management)")
	v.SetDefault("NOMINATIM_MIN_INTERVAL_MS", 1000)
	v.SetDefault("NOMINATIM_TIMEOUT", 10)

	v.SetDefault("GOOGLE_MIN_INTERVAL_MS", 0)
	v.SetDefault("GOOGLE_TIMEOUT", 10)

	v.SetDefault("GRID_REVERSE_GEOCODER", "google")
	v.SetDefault("GRID_LOT_SIZE_M2", 150)
	v.SetDefault("GRID_SYNTHETIC_HOUSE_START", 65)
	v.SetDefault("GRID_MAX_MATCH_DISTANCE_M", 50)
	v.SetDefault("GRID_ATTEMPTS_MULTIPLIER", 3)
	v.SetDefault("GRID_MAX_BLOCK_AREA_KM2", 2.0)
	v.SetDefault("GRID_DETAILS_TIMEOUT", 120)
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.Cache.Backend)
	}
	switch c.Territory.Source {
	case "backend", "postgres":
	default:
		return fmt.Errorf("unsupported TERRITORY_SOURCE %q", c.Territory.Source)
	}
	switch c.Grid.ReverseGeocoder {
	case "google", "nominatim", "none":
	default:
		return fmt.Errorf("unsupported GRID_REVERSE_GEOCODER %q", c.Grid.ReverseGeocoder)
	}
	if c.Nominatim.UserAgent == "" {
		return fmt.Errorf("NOMINATIM_USER_AGENT must be set (Nominatim usage policy)")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Package config loads the settings shared by the sync CLI, the worker, the
// scheduler and the HTTP API. Values come from the environment (optionally a
// .env file) and, for the CLI, from flags bound on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration marks errors that must stop a run before any remote call.
var ErrConfiguration = errors.New("configuration error")

const (
	StrategyLatestVideo = "latest-video"
	StrategyDescription = "description"

	PersistBatch      = "batch"
	PersistPerChannel = "per-channel"

	// maxPageSize is the largest maxResults the videos endpoint accepts.
	maxPageSize = 50
)

// Keys, named after the environment variables that feed them.
const (
	KeyAPIKey            = "youtube_api_key"
	KeyBaseURL           = "youtube_base_url"
	KeyRegionCode        = "youtube_region_code"
	KeyQPS               = "youtube_qps"
	KeyHTTPTimeout       = "http_timeout"
	KeyCategoryName      = "category_name"
	KeyCap               = "discovery_cap"
	KeyPageSize          = "discovery_page_size"
	KeyMaxPages          = "discovery_max_pages"
	KeySortBySubscribers = "sort_by_subscribers"
	KeyLinkStrategy      = "link_strategy"
	KeyPersistMode       = "persist_mode"
	KeyExportPath        = "export_path"
	KeyDatabaseURL       = "database_url"
	KeyRedisAddr         = "redis_addr"
	KeySyncSchedule      = "sync_schedule"
	KeyPort              = "port"
	KeyLogLevel          = "log_level"
	KeyLogDevelopment    = "log_development"
)

// Config holds every setting of a pipeline run and its hosting process.
type Config struct {
	APIKey      string
	BaseURL     string
	RegionCode  string
	QPS         float64
	HTTPTimeout time.Duration

	CategoryName      string
	Cap               int
	PageSize          int
	MaxPages          int
	SortBySubscribers bool
	LinkStrategy      string
	PersistMode       string
	ExportPath        string

	DatabaseURL  string
	RedisAddr    string
	SyncSchedule string
	Port         string

	LogLevel       string
	LogDevelopment bool
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, "https://www.googleapis.com/youtube/v3/")
	v.SetDefault(KeyRegionCode, "US")
	v.SetDefault(KeyQPS, 0)
	v.SetDefault(KeyHTTPTimeout, 30*time.Second)
	v.SetDefault(KeyCategoryName, "Gaming")
	v.SetDefault(KeyCap, 1000)
	v.SetDefault(KeyPageSize, maxPageSize)
	v.SetDefault(KeyMaxPages, 2)
	v.SetDefault(KeySortBySubscribers, true)
	v.SetDefault(KeyLinkStrategy, StrategyLatestVideo)
	v.SetDefault(KeyPersistMode, PersistBatch)
	v.SetDefault(KeyExportPath, "youtube_gaming_creators.csv")
	v.SetDefault(KeyRedisAddr, "127.0.0.1:6379")
	v.SetDefault(KeySyncSchedule, "@every 24h")
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogDevelopment, false)
}

// NewViper loads .env (if present) and returns a viper instance reading the
// environment on top of the defaults.
func NewViper() (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	SetDefaults(v)
	return v, nil
}

// FromViper reads a Config out of v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		APIKey:            strings.TrimSpace(v.GetString(KeyAPIKey)),
		BaseURL:           v.GetString(KeyBaseURL),
		RegionCode:        v.GetString(KeyRegionCode),
		QPS:               v.GetFloat64(KeyQPS),
		HTTPTimeout:       v.GetDuration(KeyHTTPTimeout),
		CategoryName:      strings.TrimSpace(v.GetString(KeyCategoryName)),
		Cap:               v.GetInt(KeyCap),
		PageSize:          v.GetInt(KeyPageSize),
		MaxPages:          v.GetInt(KeyMaxPages),
		SortBySubscribers: v.GetBool(KeySortBySubscribers),
		LinkStrategy:      strings.ToLower(v.GetString(KeyLinkStrategy)),
		PersistMode:       strings.ToLower(v.GetString(KeyPersistMode)),
		ExportPath:        v.GetString(KeyExportPath),
		DatabaseURL:       v.GetString(KeyDatabaseURL),
		RedisAddr:         v.GetString(KeyRedisAddr),
		SyncSchedule:      v.GetString(KeySyncSchedule),
		Port:              v.GetString(KeyPort),
		LogLevel:          v.GetString(KeyLogLevel),
		LogDevelopment:    v.GetBool(KeyLogDevelopment),
	}
}

// Load is NewViper followed by FromViper.
func Load() (*Config, error) {
	v, err := NewViper()
	if err != nil {
		return nil, err
	}
	return FromViper(v), nil
}

// Validate checks the settings a pipeline run depends on.
func (c *Config) Validate() error {
	var problems []string

	if c.APIKey == "" {
		problems = append(problems, "YOUTUBE_API_KEY is not set")
	}
	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is not set")
	}
	if c.CategoryName == "" {
		problems = append(problems, "category name is empty")
	}
	if c.Cap <= 0 {
		problems = append(problems, fmt.Sprintf("discovery cap must be positive, got %d", c.Cap))
	}
	if c.PageSize <= 0 || c.PageSize > maxPageSize {
		problems = append(problems, fmt.Sprintf("page size must be between 1 and %d, got %d", maxPageSize, c.PageSize))
	}
	if c.MaxPages <= 0 {
		problems = append(problems, fmt.Sprintf("max pages must be positive, got %d", c.MaxPages))
	}
	if c.QPS < 0 {
		problems = append(problems, "YOUTUBE_QPS must not be negative")
	}
	switch c.LinkStrategy {
	case StrategyLatestVideo, StrategyDescription:
	default:
		problems = append(problems, fmt.Sprintf("unknown link strategy %q", c.LinkStrategy))
	}
	switch c.PersistMode {
	case PersistBatch, PersistPerChannel:
	default:
		problems = append(problems, fmt.Sprintf("unknown persist mode %q", c.PersistMode))
	}
	if strings.TrimSpace(c.ExportPath) == "" {
		problems = append(problems, "export path is empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

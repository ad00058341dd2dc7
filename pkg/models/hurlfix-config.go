package models

import "time"

const (
	JOURNAL_STORAGE_MEMORY = "memory"
	JOURNAL_STORAGE_REDIS  = "redis"
)

type LogConfig struct {
	ToFile       bool   `yaml:"toFile,omitempty"`
	FilePath     string `yaml:"filePath,omitempty"`
	ToStdout     bool   `yaml:"toStdout,omitempty"`
	Pretty       bool   `yaml:"pretty,omitempty"`
	Level        string `yaml:"level,omitempty"`
	DebugEnabled bool   `yaml:"debugEnabled,omitempty"`
}

type ServerConfig struct {
	Host         string        `yaml:"host,omitempty"`
	Port         uint16        `yaml:"port,omitempty"`
	Name         string        `yaml:"name,omitempty"`
	ReadTimeout  time.Duration `yaml:"readTimeout,omitempty"`
	WriteTimeout time.Duration `yaml:"writeTimeout,omitempty"`
	Watch        bool          `yaml:"watch,omitempty"`
}

type StorageConfig struct {
	Path string `yaml:"path,omitempty"`
}

type AdminConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

type RedisConfig struct {
	Address      string        `yaml:"address,omitempty"`
	Password     string        `yaml:"password,omitempty"`
	DB           *int          `yaml:"db,omitempty"`
	KeyNamespace string        `yaml:"keyNamespace,omitempty"`
	DefaultTTL   time.Duration `yaml:"defaultTTL,omitempty"`
	FailOpen     *bool         `yaml:"failOpen,omitempty"`
}

type JournalConfig struct {
	Enabled     bool          `yaml:"enabled,omitempty"`
	Storage     string        `yaml:"storage,omitempty"`
	Capacity    uint64        `yaml:"capacity,omitempty"`
	Ttl         time.Duration `yaml:"ttl,omitempty"`
	MaxBodySize uint64        `yaml:"maxBodySize,omitempty"`
	Redis       *RedisConfig  `yaml:"redis,omitempty"`
}

type RateLimitHeadersConfig struct {
	IncludeLimit     bool `yaml:"includeLimit,omitempty"`
	IncludeRemaining bool `yaml:"includeRemaining,omitempty"`
	IncludeReset     bool `yaml:"includeReset,omitempty"`
}

type RateLimitConfig struct {
	Enabled    bool                    `yaml:"enabled,omitempty"`
	Requests   *int64                  `yaml:"requests,omitempty"`
	Window     *time.Duration          `yaml:"window,omitempty"`
	StatusCode *int                    `yaml:"statusCode,omitempty"`
	Message    string                  `yaml:"message,omitempty"`
	Storage    string                  `yaml:"storage,omitempty"`
	KeyBy      []string                `yaml:"keyBy,omitempty"`
	Exclude    []string                `yaml:"exclude,omitempty"`
	Headers    *RateLimitHeadersConfig `yaml:"headers,omitempty"`
	Redis      *RedisConfig            `yaml:"redis,omitempty"`
}

// FixtureConfig declares one canned response. Body uses the byte-array
// literal syntax understood by fixture.ParseBody.
type FixtureConfig struct {
	Name        string            `yaml:"name,omitempty"`
	Method      string            `yaml:"method,omitempty"`
	Path        string            `yaml:"path,omitempty"`
	Status      int               `yaml:"status,omitempty"`
	ContentType string            `yaml:"contentType,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Body        string            `yaml:"body,omitempty"`
	Delay       time.Duration     `yaml:"delay,omitempty"`
	RateLimit   *RateLimitConfig  `yaml:"rateLimit,omitempty"`
}

type HurlfixConfig struct {
	Log             *LogConfig       `yaml:"log,omitempty"`
	Server          *ServerConfig    `yaml:"server,omitempty"`
	Storage         *StorageConfig   `yaml:"storage,omitempty"`
	Admin           *AdminConfig     `yaml:"admin,omitempty"`
	Metrics         *MetricsConfig   `yaml:"metrics,omitempty"`
	Journal         *JournalConfig   `yaml:"journal,omitempty"`
	RateLimit       *RateLimitConfig `yaml:"rateLimit,omitempty"`
	DisableBuiltins bool             `yaml:"disableBuiltins,omitempty"`
	Fixtures        []FixtureConfig  `yaml:"fixtures,omitempty"`
}

func (a *AdminConfig) IsEnabled() bool {
	return a != nil && (a.Enabled == nil || *a.Enabled)
}

func (m *MetricsConfig) IsEnabled() bool {
	return m != nil && (m.Enabled == nil || *m.Enabled)
}

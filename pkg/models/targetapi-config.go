package models

import "time"

const (
	METHOD_GET     = "GET"
	METHOD_HEAD    = "HEAD"
	METHOD_POST    = "POST"
	METHOD_OPTIONS = "OPTIONS"
)

const (
	LOG_LEVEL_DEBUG = "debug"
	LOG_LEVEL_INFO  = "info"
	LOG_LEVEL_WARN  = "warn"
	LOG_LEVEL_ERROR = "error"
)

const DEFAULT_MESSAGE = "Settings OK."

type LogConfig struct {
	Level      string `yaml:"level"`
	ToStderr   bool   `yaml:"toStderr"`
	ToFile     bool   `yaml:"toFile"`
	FilePath   string `yaml:"filePath"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Prefix     string `yaml:"prefix"`
}

type ServerConfig struct {
	Host               string        `yaml:"host"`
	Port               uint16        `yaml:"port"`
	ReadTimeout        time.Duration `yaml:"readTimeout"`
	WriteTimeout       time.Duration `yaml:"writeTimeout"`
	MaxRequestBodySize int           `yaml:"maxRequestBodySize"`
	Compress           bool          `yaml:"compress"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type ResponseConfig struct {
	Message string `yaml:"message"`
}

type RouteConfig struct {
	Name    string        `yaml:"name"`
	Path    string        `yaml:"path"`
	Methods []string      `yaml:"methods"`
	Delay   time.Duration `yaml:"delay"`
	Message string        `yaml:"message"`
}

type CorsConfig struct {
	// Enabled is a pointer so an omitted key can default to true.
	Enabled          *bool    `yaml:"enabled"`
	AllowOrigins     []string `yaml:"allowOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

func (c *CorsConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

type DumpConfig struct {
	RedactHeaders []string `yaml:"redactHeaders"`
	DecodeCharset bool     `yaml:"decodeCharset"`
}

func BoolPtr(v bool) *bool {
	return &v
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    uint16 `yaml:"port"`
	Path    string `yaml:"path"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Channel  string        `yaml:"channel"`
	Timeout  time.Duration `yaml:"timeout"`
}

type MirrorConfig struct {
	Enabled bool         `yaml:"enabled"`
	Redis   *RedisConfig `yaml:"redis"`
}

type TargetAPIConfig struct {
	Log      *LogConfig      `yaml:"log"`
	Server   *ServerConfig   `yaml:"server"`
	Storage  *StorageConfig  `yaml:"storage"`
	Response *ResponseConfig `yaml:"response"`
	Routes   []RouteConfig   `yaml:"routes"`
	Cors     *CorsConfig     `yaml:"cors"`
	Dump     *DumpConfig     `yaml:"dump"`
	Metrics  *MetricsConfig  `yaml:"metrics"`
	Mirror   *MirrorConfig   `yaml:"mirror"`
}

package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"targetapi/pkg/cors"
	"targetapi/pkg/dump"
	"targetapi/pkg/metrics"
	"targetapi/pkg/mirror"
	"targetapi/pkg/models"
	"targetapi/pkg/router"
	"targetapi/pkg/utils/fs"
	"targetapi/pkg/utils/hash"
	"targetapi/pkg/utils/logger"

	"github.com/valyala/fasthttp"
	"gopkg.in/yaml.v3"
)

const (
	APP_NAME            = "targetapi"
	DEFAULT_CONFIG_FILE = "targetapi.config.yaml"
	PID_FILE            = "targetapi.pid"
)

type TargetAPIEngine struct {
	config        *models.TargetAPIConfig
	logger        *logger.Logger
	router        *router.Router
	printer       *dump.Printer
	cors          *cors.Cors
	metrics       *metrics.Metrics
	mirror        *mirror.RedisMirror
	server        *fasthttp.Server
	metricsServer *fasthttp.Server
	pid           int
	stopping      chan struct{}
	stopOnce      sync.Once
}

// DefaultRoutes are the three fixed echo routes.
func DefaultRoutes() []models.RouteConfig {
	return []models.RouteConfig{
		{Name: "root-get", Path: "/", Methods: []string{models.METHOD_GET}},
		{Name: "root-post", Path: "/", Methods: []string{models.METHOD_POST}},
		{Name: "plans", Path: "/plans", Methods: []string{models.METHOD_POST}, Delay: time.Second},
	}
}

// ResolveConfigPath makes configPath absolute. An explicitly given path must
// point at an existing file only when requireExisting is set; init writes to
// paths that do not exist yet.
func ResolveConfigPath(configPath string, explicit, requireExisting bool) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("unable to resolve config path %s: %w", configPath, err)
	}

	if explicit && requireExisting {
		if _, err := os.Stat(absPath); errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config file not found: %s", absPath)
		}
	}

	return absPath, nil
}

// LoadConfig reads configPath. When the file is absent and mustExist is false
// the built-in defaults are used; the path still keys the storage directory.
func LoadConfig(configPath string, mustExist bool) (*models.TargetAPIConfig, error) {
	var config models.TargetAPIConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("unable to parse the config at %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && !mustExist:
		// built-in defaults
	default:
		return nil, fmt.Errorf("unable to read the config-path %s: %w", configPath, err)
	}

	if err := ApplyDefaults(&config, configPath); err != nil {
		return nil, err
	}
	return &config, nil
}

func ApplyDefaults(config *models.TargetAPIConfig, configPath string) error {
	if config.Log == nil {
		config.Log = &models.LogConfig{
			ToStderr: true,
			Prefix:   "[targetapi]",
		}
	}
	if config.Log.Level == "" {
		config.Log.Level = models.LOG_LEVEL_INFO
	}

	if config.Server == nil {
		config.Server = &models.ServerConfig{}
	}
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30 * time.Second
	}
	if config.Server.MaxRequestBodySize == 0 {
		config.Server.MaxRequestBodySize = fasthttp.DefaultMaxRequestBodySize
	}

	if config.Storage == nil {
		config.Storage = &models.StorageConfig{}
	}
	if config.Storage.Path == "" {
		appData, err := fs.GetUserAppDataDir(APP_NAME)
		if err != nil {
			return fmt.Errorf("failed to determine app data dir: %w", err)
		}
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute config path: %w", err)
		}
		config.Storage.Path = filepath.Join(appData, hash.HashString(absPath))
	}

	if config.Response == nil {
		config.Response = &models.ResponseConfig{}
	}
	if config.Response.Message == "" {
		config.Response.Message = models.DEFAULT_MESSAGE
	}

	if config.Routes == nil {
		config.Routes = DefaultRoutes()
	}

	if config.Cors == nil {
		config.Cors = &models.CorsConfig{
			AllowCredentials: true,
		}
	}
	if config.Cors.Enabled == nil {
		config.Cors.Enabled = models.BoolPtr(true)
	}
	if len(config.Cors.AllowOrigins) == 0 {
		config.Cors.AllowOrigins = []string{"*"}
	}
	if config.Cors.MaxAge == 0 {
		config.Cors.MaxAge = cors.DEFAULT_MAX_AGE
	}

	if config.Dump == nil {
		config.Dump = &models.DumpConfig{}
	}

	if config.Metrics == nil {
		config.Metrics = &models.MetricsConfig{}
	}
	if config.Metrics.Port == 0 {
		config.Metrics.Port = 9090
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}

	if config.Mirror == nil {
		config.Mirror = &models.MirrorConfig{}
	}
	if config.Mirror.Enabled && (config.Mirror.Redis == nil || config.Mirror.Redis.Address == "") {
		return fmt.Errorf("mirror is enabled but mirror.redis.address is not set")
	}

	return nil
}

func InstantiateTargetAPIEngine(configPath string, mustExist bool) (*TargetAPIEngine, error) {
	config, err := LoadConfig(configPath, mustExist)
	if err != nil {
		return nil, err
	}
	return NewTargetAPIEngine(config, os.Stdout)
}

// NewTargetAPIEngine wires an engine around an already defaulted config.
// Request dumps are written to out.
func NewTargetAPIEngine(config *models.TargetAPIConfig, out io.Writer) (*TargetAPIEngine, error) {
	logger_, err := logger.NewLogger(config.Log)
	if err != nil {
		return nil, fmt.Errorf("unable to instantiate the logger: %w", err)
	}

	router_, err := router.NewRouter(config.Routes)
	if err != nil {
		return nil, fmt.Errorf("invalid routes: %w", err)
	}

	engine := &TargetAPIEngine{
		config:   config,
		logger:   logger_,
		router:   router_,
		pid:      os.Getpid(),
		stopping: make(chan struct{}),
	}

	var publisher dump.Publisher
	if config.Mirror.Enabled {
		engine.mirror = mirror.NewRedisMirror(config.Mirror.Redis, logger_)
		publisher = engine.mirror
		logger_.Info(fmt.Sprintf("Mirroring request dumps to redis channel %s", engine.mirror.Channel()))
	}

	engine.printer, err = dump.NewPrinter(out, config.Dump, publisher, logger_)
	if err != nil {
		if engine.mirror != nil {
			engine.mirror.Close()
		}
		return nil, err
	}

	if config.Cors.IsEnabled() {
		engine.cors = cors.NewCors(config.Cors, logger_)
	}

	if config.Metrics.Enabled {
		engine.metrics = metrics.NewMetrics()
	}

	return engine, nil
}

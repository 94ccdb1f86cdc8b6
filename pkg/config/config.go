package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/labstack/echo/v4"
	clowder "github.com/redhatinsights/app-common-go/pkg/api/v1"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const DefaultAppName = "content-uploads"

const (
	HeaderRequestId     = "x-rh-insights-request-id"
	RequestIdLoggingKey = "request_id"
)

type Configuration struct {
	Database   Database
	Logging    Logging
	Loaded     bool
	Cloudwatch Cloudwatch
	Metrics    Metrics
	Clients    Clients `mapstructure:"clients"`
	Sentry     Sentry  `mapstructure:"sentry"`
	Kafka      Kafka   `mapstructure:"kafka"`
	Uploads    Uploads `mapstructure:"uploads"`
}

type Clients struct {
	Redis Redis `mapstructure:"redis"`
}

type Database struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	CACertPath        string        `mapstructure:"ca_cert_path"`
	PoolLimit         int           `mapstructure:"pool_limit"`
	SlowQueryDuration time.Duration `mapstructure:"slow_query_duration"`
}

type Logging struct {
	Level   string
	Console bool
	Color   bool
}

type Cloudwatch struct {
	Region  string
	Key     string
	Secret  string
	Session string
	Group   string
	Stream  string
}

type Redis struct {
	Host     string
	Port     int
	Username string
	Password string
	DB       int
}

type Sentry struct {
	Dsn string
}

type Kafka struct {
	BootstrapServers string `mapstructure:"bootstrap_servers"`
	Topic            string
	Capath           string
	Sasl             KafkaSasl
}

type KafkaSasl struct {
	Username  string
	Password  string
	Mechanism string
	Protocol  string
}

// Uploads holds the settings consumed by the chunk store, the assembly
// engine, the resumable protocol adapter and the sweeper.
type Uploads struct {
	ChunkRoot           string        `mapstructure:"chunk_root"`
	BaseRoot            string        `mapstructure:"base_root"`
	TempRoot            string        `mapstructure:"temp_root"`
	MaxChunkSize        int64         `mapstructure:"max_chunk_size"`
	MinFileSize         int64         `mapstructure:"min_file_size"`
	MaxFileSize         int64         `mapstructure:"max_file_size"`
	ForbiddenTypes      []string      `mapstructure:"forbidden_types"`
	ForbiddenExtensions []string      `mapstructure:"forbidden_extensions"`
	ChunkExpiration     time.Duration `mapstructure:"chunk_expiration"`
	TempExpiration      time.Duration `mapstructure:"temp_expiration"`
	SessionExpiration   time.Duration `mapstructure:"session_expiration"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	CorsAllowedOrigins  []string      `mapstructure:"cors_allowed_origins"`
}

type Metrics struct {
	// Defines the path to the metrics server that the app should be configured to
	// listen on for metric traffic.
	Path string `mapstructure:"path"`

	// Defines the metrics port that the app should be configured to listen on for
	// metric traffic.
	Port int `mapstructure:"port"`
}

const (
	DefaultMaxChunkSize      = 10 * 1024 * 1024
	DefaultMinFileSize       = 1
	DefaultMaxFileSize       = 5 * 1024 * 1024 * 1024
	DefaultChunkExpiration   = 24 * time.Hour
	DefaultTempExpiration    = 48 * time.Hour
	DefaultSessionExpiration = 24 * time.Hour
	DefaultSweepInterval     = 1 * time.Hour
	DefaultNotificationTopic = "platform.notifications.ingress"
)

var DefaultForbiddenTypes = []string{
	"application/x-msdownload",
	"application/vnd.microsoft.portable-executable",
	"application/x-executable",
	"application/x-elf",
	"application/x-sh",
	"text/x-shellscript",
}

var DefaultForbiddenExtensions = []string{"exe", "dll", "bat", "cmd", "com", "msi", "scr", "sh", "vbs", "ps1"}

var LoadedConfig Configuration

func Get() *Configuration {
	if !LoadedConfig.Loaded {
		Load()
	}
	return &LoadedConfig
}

func RedisUrl() string {
	return fmt.Sprintf("%s:%d", Get().Clients.Redis.Host, Get().Clients.Redis.Port)
}

func readConfigFile(v *viper.Viper) {
	v.SetConfigName("config.yaml")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs/")
	v.AddConfigPath("../../configs/")
	v.AddConfigPath("../../../configs")

	if path, ok := os.LookupEnv("CONFIG_PATH"); ok {
		v.AddConfigPath(path)
	}
	err := v.ReadInConfig()
	if err != nil {
		log.Logger.Warn().Msgf("config.yaml file not loaded: %s", err.Error())
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Loaded", true)
	// In viper you have to set defaults, otherwise loading from ENV doesn't work
	//   without a config file present
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.ca_cert_path", "")
	v.SetDefault("database.pool_limit", 20)
	v.SetDefault("database.slow_query_duration", 2*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.color", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9000)
	v.SetDefault("sentry.dsn", "")

	v.SetDefault("cloudwatch.region", "")
	v.SetDefault("cloudwatch.group", "")
	v.SetDefault("cloudwatch.stream", DefaultLogwatchStream())
	v.SetDefault("cloudwatch.session", "")
	v.SetDefault("cloudwatch.secret", "")
	v.SetDefault("cloudwatch.key", "")

	v.SetDefault("clients.redis.host", "")
	v.SetDefault("clients.redis.port", "")
	v.SetDefault("clients.redis.username", "")
	v.SetDefault("clients.redis.password", "")
	v.SetDefault("clients.redis.db", 0)

	v.SetDefault("kafka.bootstrap_servers", "")
	v.SetDefault("kafka.topic", DefaultNotificationTopic)
	v.SetDefault("kafka.capath", "")
	v.SetDefault("kafka.sasl.username", "")
	v.SetDefault("kafka.sasl.password", "")
	v.SetDefault("kafka.sasl.mechanism", "")
	v.SetDefault("kafka.sasl.protocol", "")

	v.SetDefault("uploads.chunk_root", "./uploads/chunks")
	v.SetDefault("uploads.base_root", "./uploads/files")
	v.SetDefault("uploads.temp_root", "./uploads/tmp")
	v.SetDefault("uploads.max_chunk_size", DefaultMaxChunkSize)
	v.SetDefault("uploads.min_file_size", DefaultMinFileSize)
	v.SetDefault("uploads.max_file_size", DefaultMaxFileSize)
	v.SetDefault("uploads.forbidden_types", DefaultForbiddenTypes)
	v.SetDefault("uploads.forbidden_extensions", DefaultForbiddenExtensions)
	v.SetDefault("uploads.chunk_expiration", DefaultChunkExpiration)
	v.SetDefault("uploads.temp_expiration", DefaultTempExpiration)
	v.SetDefault("uploads.session_expiration", DefaultSessionExpiration)
	v.SetDefault("uploads.sweep_interval", DefaultSweepInterval)
	v.SetDefault("uploads.cors_allowed_origins", []string{})
}

func Load() {
	var err error
	v := viper.New()

	readConfigFile(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if clowder.IsClowderEnabled() {
		cfg := clowder.LoadedConfig

		v.Set("database.host", cfg.Database.Hostname)
		v.Set("database.port", cfg.Database.Port)
		v.Set("database.user", cfg.Database.Username)
		v.Set("database.password", cfg.Database.Password)
		v.Set("database.name", cfg.Database.Name)

		v.Set("cloudwatch.region", cfg.Logging.Cloudwatch.Region)
		v.Set("cloudwatch.group", cfg.Logging.Cloudwatch.LogGroup)
		v.Set("cloudwatch.secret", cfg.Logging.Cloudwatch.SecretAccessKey)
		v.Set("cloudwatch.key", cfg.Logging.Cloudwatch.AccessKeyId)

		if cfg.InMemoryDb != nil {
			v.Set("clients.redis.host", cfg.InMemoryDb.Hostname)
			v.Set("clients.redis.port", cfg.InMemoryDb.Port)
			v.Set("clients.redis.username", cfg.InMemoryDb.Username)
			v.Set("clients.redis.password", cfg.InMemoryDb.Password)
		}

		if len(clowder.KafkaServers) > 0 {
			v.Set("kafka.bootstrap_servers", strings.Join(clowder.KafkaServers, ","))
		}

		path, err := cfg.RdsCa()
		if err == nil {
			v.Set("database.ca_cert_path", path)
		} else {
			log.Error().Err(err).Msg("Cannot read RDS CA cert")
		}

		// Read configuration for instrumentation
		v.Set("metrics.path", cfg.MetricsPath)
		v.Set("metrics.port", cfg.MetricsPort)
	}

	err = v.Unmarshal(&LoadedConfig)
	if err != nil {
		panic(err)
	}

	if LoadedConfig.Clients.Redis.Host == "" {
		log.Warn().Msg("Redis is not configured, upload sessions are kept in memory.")
	}
	if LoadedConfig.Kafka.BootstrapServers == "" {
		log.Warn().Msg("Kafka is not configured, upload notifications are disabled.")
	}
}

func DefaultLogwatchStream() string {
	hostname, err := os.Hostname()
	if err != nil {
		return DefaultAppName
	}
	return hostname
}

func ProgramString() string {
	return strings.Join(os.Args, " ")
}

// SkipLogging skips request logging for liveness and metrics probes
func SkipLogging(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/ping" || p == "/ping/" || p == "/metrics"
}

func CustomHTTPErrorHandler(err error, c echo.Context) {
	var code int
	var message ce.ErrorResponse

	if c.Response().Committed {
		c.Logger().Error(err)
		return
	}

	var errResp ce.ErrorResponse
	var uploadErr *ce.UploadError
	var daoErr *ce.DaoError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &errResp):
		code = ce.GetGeneralResponseCode(errResp)
		message = errResp
	case errors.As(err, &uploadErr):
		message = ce.NewErrorResponseFromError("Upload error", uploadErr)
		code = message.Errors[0].Status
	case errors.As(err, &daoErr):
		message = ce.NewErrorResponseFromError("Error", daoErr)
		code = message.Errors[0].Status
	case errors.As(err, &he):
		message = ce.NewErrorResponseFromEchoError(he)
		code = message.Errors[0].Status
	default:
		code = http.StatusInternalServerError
		message = ce.NewErrorResponse(code, "", http.StatusText(http.StatusInternalServerError))
	}

	// Send response
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, message)
	}
	if err != nil {
		log.Logger.Error().Err(err).Msg("could not send error response")
	}
}

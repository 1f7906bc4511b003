package config

import (
	_ "embed"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

//go:embed periods.yaml
var periodsYAML []byte

// Matcher strategies
const (
	StrategyNearest    = "nearest"
	StrategyClassifier = "classifier"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Session   SessionConfig   `mapstructure:"session"`
	Web       WebConfig       `mapstructure:"web"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Log       LogConfig       `mapstructure:"log"`
	Periods   PeriodsConfig   `mapstructure:"-"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`         // postgres or sqlite
	URL          string `mapstructure:"url"`            // PostgreSQL URL or SQLite file path
	MaxOpenConns int    `mapstructure:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `mapstructure:"max_idle_conns"` // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL       string  `mapstructure:"url"`        // defaults to http://localhost:8000
	Dim       int     `mapstructure:"dim"`        // defaults to 128
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
}

type MatcherConfig struct {
	Strategy       string  `mapstructure:"strategy"`        // nearest or classifier
	Tolerance      float64 `mapstructure:"tolerance"`       // nearest: max Euclidean distance
	MinProbability float64 `mapstructure:"min_probability"` // classifier: min arg-max probability
	Epochs         int     `mapstructure:"epochs"`
	LearningRate   float64 `mapstructure:"learning_rate"`
	L2             float64 `mapstructure:"l2"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type WebConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	APIToken       string   `mapstructure:"api_token"` // empty = auth disabled
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"` // empty = events disabled
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Period is one named recurring time slot of the day.
type Period struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	StartsAt string `yaml:"starts_at"`
}

type PeriodsConfig struct {
	Periods []Period `yaml:"periods"`
}

// Names returns the period names in canonical order.
func (p PeriodsConfig) Names() []string {
	names := make([]string, len(p.Periods))
	for i, period := range p.Periods {
		names[i] = period.Name
	}
	return names
}

// Labels maps period names to their display labels.
func (p PeriodsConfig) Labels() map[string]string {
	labels := make(map[string]string, len(p.Periods))
	for _, period := range p.Periods {
		labels[period.Name] = period.Label
	}
	return labels
}

// Valid reports whether name is a configured period.
func (p PeriodsConfig) Valid(name string) bool {
	for _, period := range p.Periods {
		if period.Name == name {
			return true
		}
	}
	return false
}

// LoadPeriods parses the embedded period definitions.
func LoadPeriods() (PeriodsConfig, error) {
	var periods PeriodsConfig
	if err := yaml.Unmarshal(periodsYAML, &periods); err != nil {
		return PeriodsConfig{}, eris.Wrap(err, "config: parse periods")
	}
	if len(periods.Periods) == 0 {
		return PeriodsConfig{}, eris.New("config: no periods defined")
	}
	return periods, nil
}

// Load reads configuration from an optional config.yaml and ATTENDANCE_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ATTENDANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	periods, err := LoadPeriods()
	if err != nil {
		return nil, err
	}
	cfg.Periods = periods

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("embedding.url", "http://localhost:8000")
	v.SetDefault("embedding.dim", constants.DefaultEmbeddingDim)
	v.SetDefault("embedding.rate_limit", 0)
	v.SetDefault("matcher.strategy", StrategyNearest)
	v.SetDefault("matcher.tolerance", constants.DefaultTolerance)
	v.SetDefault("matcher.min_probability", constants.DefaultMinProbability)
	v.SetDefault("matcher.epochs", constants.DefaultClassifierEpochs)
	v.SetDefault("matcher.learning_rate", constants.DefaultClassifierLearningRate)
	v.SetDefault("matcher.l2", constants.DefaultClassifierL2)
	v.SetDefault("session.ttl", constants.DefaultSessionTTL)
	v.SetDefault("web.host", "0.0.0.0")
	v.SetDefault("web.port", 8080)
	v.SetDefault("web.api_token", "")
	v.SetDefault("web.allowed_origins", []string{})
	v.SetDefault("nats.url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks enumerated settings and numeric ranges.
func (c *Config) Validate() error {
	switch c.Matcher.Strategy {
	case StrategyNearest, StrategyClassifier:
	default:
		return eris.Errorf("config: unknown matcher strategy %q", c.Matcher.Strategy)
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return eris.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Matcher.Tolerance <= 0 {
		return eris.New("config: matcher tolerance must be positive")
	}
	if c.Matcher.MinProbability <= 0 || c.Matcher.MinProbability > 1 {
		return eris.New("config: matcher min probability must be in (0, 1]")
	}
	if c.Session.TTL <= 0 {
		return eris.New("config: session TTL must be positive")
	}
	if c.Embedding.Dim <= 0 {
		return eris.New("config: embedding dimension must be positive")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

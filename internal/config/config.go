package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration. It is loaded once
// at startup and passed by value into each pipeline stage; there is no
// process-wide configuration state.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Dataset  DatasetConfig  `yaml:"dataset" envconfig:"DATASET"`
	Features FeaturesConfig `yaml:"features" envconfig:"FEATURES"`
	Train    TrainConfig    `yaml:"train" envconfig:"TRAIN"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains the artifact tier roots. RawDir and ExternalDir hold
// externally supplied inputs; ProcessedDir holds the fixed-location ingested
// table; InterimDir holds the per-version feature/series artifacts; ModelsDir
// holds trained model files.
type PathsConfig struct {
	RawDir       string `yaml:"raw_dir" envconfig:"RAW_DIR" default:"data/raw" validate:"required"`
	ExternalDir  string `yaml:"external_dir" envconfig:"EXTERNAL_DIR" default:"data/external" validate:"required"`
	ProcessedDir string `yaml:"processed_dir" envconfig:"PROCESSED_DIR" default:"data/processed" validate:"required"`
	InterimDir   string `yaml:"interim_dir" envconfig:"INTERIM_DIR" default:"data/interim" validate:"required"`
	ModelsDir    string `yaml:"models_dir" envconfig:"MODELS_DIR" default:"models" validate:"required"`
}

// ExclusionRule drops known-anomalous rows from the ingested dataset: every
// row whose family is in Families and whose date is on or before BeforeDate.
type ExclusionRule struct {
	Families   []string `yaml:"families" validate:"required,min=1"`
	BeforeDate string   `yaml:"before_date" validate:"required,datetime=2006-01-02"`
}

// DatasetConfig drives the Dataset Builder.
type DatasetConfig struct {
	FilterFamilies  []string        `yaml:"filter_families" envconfig:"FILTER_FAMILIES" default:"GROCERY I,BEVERAGES,PRODUCE" validate:"required,min=1"`
	FillMethod      string          `yaml:"fill_method" envconfig:"FILL_METHOD" default:"ffill" validate:"oneof=ffill bfill"`
	Exclusions      []ExclusionRule `yaml:"exclusions" validate:"dive"`
	GroupBy         []string        `yaml:"group_by" envconfig:"GROUP_BY" default:"store_nbr,family" validate:"required,min=1"`
	CategoricalCols []string        `yaml:"categorical_cols" envconfig:"CATEGORICAL_COLS" default:"family,city,state,type"`
}

// DateFeaturesConfig toggles individual calendar features.
type DateFeaturesConfig struct {
	Year       bool `yaml:"year" default:"true"`
	Quarter    bool `yaml:"quarter" default:"true"`
	Month      bool `yaml:"month" default:"true"`
	Week       bool `yaml:"week" default:"true"`
	DayOfWeek  bool `yaml:"day_of_week" default:"true"`
	DayOfMonth bool `yaml:"day_of_month" default:"true"`
	DayOfYear  bool `yaml:"day_of_year" default:"true"`
	IsWeekend  bool `yaml:"is_weekend" default:"true"`
	IsMonthEnd bool `yaml:"is_month_end" default:"true"`
	IsPayroll  bool `yaml:"is_payroll" default:"true"`
	PayrollDay int  `yaml:"payroll_day" default:"15" validate:"min=1,max=31"`
	// EventDate marks a single known anomaly; the whole ISO week containing
	// it is flagged. Empty disables the flag.
	EventDate string `yaml:"event_date" validate:"omitempty,datetime=2006-01-02"`
}

// StatSetting is one declarative statistical feature setting. Exactly one of
// Enabled or Params is meaningful: toggle-style features (mean, std, ...) use
// Enabled, parameterized features (quantile, autocorr) use Params.
type StatSetting struct {
	Enabled bool      `yaml:"enabled"`
	Params  []float64 `yaml:"params"`
}

// FeaturesConfig drives the Feature Engine.
type FeaturesConfig struct {
	Date        DateFeaturesConfig     `yaml:"date"`
	Statistical map[string]StatSetting `yaml:"statistical"`
	Lags        []int                  `yaml:"lags" envconfig:"LAGS" default:"1,7,14" validate:"required,min=1,dive,min=0"`
	Windows     []int                  `yaml:"windows" envconfig:"WINDOWS" default:"7,14,28" validate:"required,min=1,dive,min=1"`
	WindowFns   []string               `yaml:"window_fns" envconfig:"WINDOW_FNS" default:"mean,max,std" validate:"required,min=1,dive,oneof=mean max std"`
	Workers     int                    `yaml:"workers" envconfig:"WORKERS" default:"4" validate:"min=1"`
}

// TrainConfig drives the split, training, and prediction stages.
type TrainConfig struct {
	ForecastHorizon int      `yaml:"forecast_horizon" envconfig:"FORECAST_HORIZON" default:"28" validate:"min=1"`
	TargetLags      []int    `yaml:"target_lags" envconfig:"TARGET_LAGS" default:"1,7,14,28" validate:"required,min=1,dive,min=1"`
	StaticCovCols   []string `yaml:"static_cov_cols" envconfig:"STATIC_COV_COLS" default:"store_nbr,cluster"`

	// Gradient boosting parameters.
	Trees        int     `yaml:"trees" envconfig:"TREES" default:"100" validate:"min=1"`
	MaxDepth     int     `yaml:"max_depth" envconfig:"MAX_DEPTH" default:"4" validate:"min=1"`
	LearningRate float64 `yaml:"learning_rate" envconfig:"LEARNING_RATE" default:"0.1" validate:"gt=0,lte=1"`
	MinLeaf      int     `yaml:"min_leaf" envconfig:"MIN_LEAF" default:"20" validate:"min=1"`
}

// Load loads configuration from environment variables and an optional YAML
// config file. File values take precedence over struct defaults; environment
// variables (prefix SALESFC) take precedence over both.
func Load(configFile string) (*Config, error) {
	var cfg Config

	// Defaults first so the file only needs to override what it cares about.
	if err := envconfig.Process("SALESFC", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		// Re-apply environment so it wins over the file.
		if err := envconfig.Process("SALESFC", &cfg); err != nil {
			return nil, fmt.Errorf("failed to apply env overrides: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for structural and semantic problems.
// It runs before any I/O so configuration errors always fail fast.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Train.ForecastHorizon <= 0 {
		return fmt.Errorf("forecast horizon must be positive, got %d", c.Train.ForecastHorizon)
	}
	for _, col := range c.Dataset.GroupBy {
		if col == "" {
			return fmt.Errorf("group_by contains an empty column name")
		}
	}
	for name, setting := range c.Features.Statistical {
		if !setting.Enabled && len(setting.Params) == 0 {
			return fmt.Errorf("statistical feature %q is neither enabled nor parameterized", name)
		}
	}
	return nil
}

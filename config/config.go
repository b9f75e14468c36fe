package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"flightsnap/internal/snapshot"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Travelpayouts TravelpayoutsConfig `mapstructure:"travelpayouts"`
	Fetch         FetchConfig         `mapstructure:"fetch"`
	Snapshot      SnapshotConfig      `mapstructure:"snapshot"`
	Report        ReportConfig        `mapstructure:"report"`
	Log           LogConfig           `mapstructure:"log"`
	History       HistoryConfig       `mapstructure:"history"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	SQLite        SQLiteConfig        `mapstructure:"sqlite"`
	Archive       ArchiveConfig       `mapstructure:"archive"`
}

// TravelpayoutsConfig configures the price API client.
type TravelpayoutsConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Token            string        `mapstructure:"token"`           // TRAVELPAYOUTS_TOKEN
	TokenParameter   string        `mapstructure:"token_parameter"` // SSM parameter name used in prod
	Timeout          time.Duration `mapstructure:"timeout"`
	Currency         string        `mapstructure:"currency"`
	Limit            int           `mapstructure:"limit"`
	Sorting          string        `mapstructure:"sorting"`
	ShowToAffiliates bool          `mapstructure:"show_to_affiliates"`
	UserAgent        string        `mapstructure:"user_agent"`
}

// FetchConfig selects what one fetcher run collects.
type FetchConfig struct {
	Routes      []snapshot.Route `mapstructure:"routes"`
	OTAs        []string         `mapstructure:"otas"` // empty keeps every gate
	Concurrency int              `mapstructure:"concurrency"`
	RunTimeout  time.Duration    `mapstructure:"run_timeout"`
}

type SnapshotConfig struct {
	Dir string `mapstructure:"dir"`
}

// ReportConfig holds comparator defaults; CLI flags override them.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Format    string `mapstructure:"format"` // csv, json or none
	Mode      string `mapstructure:"mode"`
	Match     string `mapstructure:"match"`
	TopN      int    `mapstructure:"top_n"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	Output      string `mapstructure:"output"`      // console stream: "stdout" or "stderr"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// HistoryConfig selects the optional price history sink.
type HistoryConfig struct {
	Driver  string        `mapstructure:"driver"` // none, sqlite or postgres
	Timeout time.Duration `mapstructure:"timeout"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// ArchiveConfig configures the optional upload of published snapshots to
// S3-compatible object storage.
type ArchiveConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Bucket          string        `mapstructure:"bucket"`
	Prefix          string        `mapstructure:"prefix"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UsePathStyle    bool          `mapstructure:"use_path_style"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// IsProd reports whether secrets come from Parameter Store.
func (c *Config) IsProd() bool {
	return c.Log.Environment == "prod"
}

// DefaultRoutes are monitored when no routes are configured.
var DefaultRoutes = []string{
	"BCN-MAD", "BCN-FRA", "IST-BCN", "BCN-IST", "ESB-IST",
	"IST-NRT", "BCN-LAX", "IST-EZE", "ESB-LAX", "NRT-EZE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("travelpayouts.base_url", "https://api.travelpayouts.com")
	v.SetDefault("travelpayouts.token", "")
	v.SetDefault("travelpayouts.token_parameter", "TRAVELPAYOUTS_TOKEN")
	v.SetDefault("travelpayouts.timeout", 30*time.Second)
	v.SetDefault("travelpayouts.currency", "eur")
	v.SetDefault("travelpayouts.limit", 30)
	v.SetDefault("travelpayouts.sorting", "price")
	v.SetDefault("travelpayouts.show_to_affiliates", true)
	v.SetDefault("travelpayouts.user_agent", "flightsnap/1.0")

	v.SetDefault("fetch.routes", DefaultRoutes)
	v.SetDefault("fetch.otas", []string{})
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.run_timeout", 5*time.Minute)

	v.SetDefault("snapshot.dir", "snapshots")

	v.SetDefault("report.output_dir", "analysis_results")
	v.SetDefault("report.format", "csv")
	v.SetDefault("report.mode", "pairwise")
	v.SetDefault("report.match", "route_ota")
	v.SetDefault("report.top_n", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("history.driver", "none")
	v.SetDefault("history.timeout", 30*time.Second)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "flightsnap")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.create_db", false)
	v.SetDefault("postgres.max_open_conns", 5)
	v.SetDefault("postgres.max_idle_conns", 2)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)
	v.SetDefault("postgres.host_parameter", "FLIGHTSNAP_DB_HOST")
	v.SetDefault("postgres.user_parameter", "FLIGHTSNAP_DB_USER")
	v.SetDefault("postgres.password_parameter", "FLIGHTSNAP_DB_PASSWORD")

	v.SetDefault("sqlite.path", "snapshots/history.db")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "snapshots")
	v.SetDefault("archive.region", "auto")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")
	v.SetDefault("archive.use_path_style", true)
	v.SetDefault("archive.timeout", time.Minute)
}

// Load loads application configuration using Viper.
// It reads config.yaml (path, or the first match in the search paths) and
// overrides it with environment variables. A missing config file is not an
// error when no explicit path is given: defaults and environment apply.
func Load(path string) (*Config, error) {
	// .env is a development convenience only
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		for _, p := range searchPaths() {
			v.AddConfigPath(p)
		}
	}

	// Support environment variables with dot notation (e.g., FETCH_CONCURRENCY)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// stringToSliceHookFunc splits a string on sep for any slice target, so
// FETCH_ROUTES="BCN-MAD,IST-NRT" yields one element per route before the
// elements reach their own UnmarshalText.
func stringToSliceHookFunc(sep string) mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Slice {
			return data, nil
		}
		raw := reflect.ValueOf(data).String()
		if raw == "" {
			return []string{}, nil
		}
		return strings.Split(raw, sep), nil
	}
}

func searchPaths() []string {
	paths := []string{"config", "."}
	ex, err := os.Executable()
	if err == nil && !strings.Contains(ex, "go-build") {
		paths = append(paths, filepath.Join(filepath.Dir(ex), "../config"))
	}
	return paths
}

func (c *Config) normalize() {
	c.Travelpayouts.Currency = strings.ToLower(strings.TrimSpace(c.Travelpayouts.Currency))
	c.Travelpayouts.BaseURL = strings.TrimRight(c.Travelpayouts.BaseURL, "/")

	otas := c.Fetch.OTAs[:0]
	for _, o := range c.Fetch.OTAs {
		if o = strings.TrimSpace(o); o != "" {
			otas = append(otas, o)
		}
	}
	c.Fetch.OTAs = otas

	c.History.Driver = strings.ToLower(c.History.Driver)
	c.Report.Format = strings.ToLower(c.Report.Format)
}

// Validate checks settings shared by both binaries.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Fetch.Routes) == 0 {
		errs = append(errs, errors.New("fetch.routes: at least one route is required"))
	}
	seen := make(map[snapshot.Route]bool, len(c.Fetch.Routes))
	for _, r := range c.Fetch.Routes {
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("fetch.routes: %w", err))
			continue
		}
		if seen[r] {
			errs = append(errs, fmt.Errorf("fetch.routes: duplicate route %s", r))
		}
		seen[r] = true
	}
	if c.Fetch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("fetch.concurrency: must be >= 1, got %d", c.Fetch.Concurrency))
	}
	if c.Fetch.RunTimeout <= 0 {
		errs = append(errs, errors.New("fetch.run_timeout: must be positive"))
	}
	if len(c.Travelpayouts.Currency) != 3 {
		errs = append(errs, fmt.Errorf("travelpayouts.currency: invalid currency %q", c.Travelpayouts.Currency))
	}
	if c.Travelpayouts.Limit < 1 || c.Travelpayouts.Limit > 1000 {
		errs = append(errs, fmt.Errorf("travelpayouts.limit: must be in [1, 1000], got %d", c.Travelpayouts.Limit))
	}
	if c.Snapshot.Dir == "" {
		errs = append(errs, errors.New("snapshot.dir: required"))
	}
	switch c.Report.Format {
	case "csv", "json", "none":
	default:
		errs = append(errs, fmt.Errorf("report.format: unknown format %q", c.Report.Format))
	}
	switch c.History.Driver {
	case "", "none", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("history.driver: unknown driver %q", c.History.Driver))
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		errs = append(errs, errors.New("archive.bucket: required when archive is enabled"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

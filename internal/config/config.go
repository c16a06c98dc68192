// Package config centralizes configuration for the warehouse ETL and its
// analytics companion. All tunables live outside the code: they come from
// command-line flags with environment-variable fallbacks (12-factor style),
// optionally seeded by a YAML file. Flags are defined first so that `-help`
// shows every knob and its effective default.
//
// Precedence, lowest to highest:
//
//  1. built-in defaults (Defaults)
//  2. YAML file named by -config / OLIST_CONFIG
//  3. environment variables
//  4. explicit flags
//
// The resolved Config is read once at process start and passed explicitly to
// the components that need it; nothing here is held as package state.
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-batch-size=100"})
package config

import (
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all process configuration. All fields are plain values so the
// struct can be copied freely after construction.
type Config struct {
	// ConfigFile is the YAML file that seeded this config, if any.
	ConfigFile string `yaml:"-"`

	// Datasets is the base location of the source files: a local directory
	// or a gocloud blob URL (file:///…, s3://…, gs://…).
	Datasets string `yaml:"datasets"`

	// Files overrides the file name of individual datasets, keyed by dataset
	// name (e.g. "customers": "customers_2018.csv.gz").
	Files map[string]string `yaml:"files"`

	// ReadWorkers bounds how many datasets are read concurrently.
	ReadWorkers int `yaml:"read_workers"`

	// BatchSize is the number of rows per insert batch/transaction.
	BatchSize int `yaml:"batch_size"`

	// InitSchema creates the warehouse tables before loading when true.
	InitSchema bool `yaml:"init_schema"`

	// Verbose enables per-stage diagnostic logs.
	Verbose bool `yaml:"verbose"`

	DB        DBConfig        `yaml:"db"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// DBConfig describes the target warehouse. For Postgres the DSN may be built
// from discrete parts; every other driver requires a full DSN.
type DBConfig struct {
	Driver   string `yaml:"driver"` // postgres | sqlite | mssql | mysql
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`

	// Schema namespaces every warehouse table (ignored by sqlite).
	Schema string `yaml:"schema"`
}

// MetricsConfig selects and configures the metrics backend.
type MetricsConfig struct {
	Backend        string `yaml:"backend"` // none | pushgateway | datadog
	Job            string `yaml:"job"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	DatadogAddr    string `yaml:"datadog_addr"`
}

// AnalyticsConfig configures the read-contract consumer.
type AnalyticsConfig struct {
	// OutputDir receives the summary and the parquet export.
	OutputDir string `yaml:"output_dir"`

	// ExportURL, when set, is a gocloud bucket URL the parquet file is
	// published to after it has been written locally.
	ExportURL string `yaml:"export_url"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Datasets:    "datasets",
		ReadWorkers: 4,
		BatchSize:   5000,
		DB: DBConfig{
			Driver: "postgres",
			Host:   "localhost",
			Port:   "5432",
			User:   "postgres",
			Name:   "olist_dw_db",
			Schema: "olist_dw",
		},
		Metrics: MetricsConfig{
			Backend:        "none",
			Job:            "olist_etl",
			PushgatewayURL: "http://localhost:9091",
			DatadogAddr:    "127.0.0.1:8125",
		},
		Analytics: AnalyticsConfig{
			OutputDir: "outputs_delivery",
		},
	}
}

// LoadFromArgs builds a Config by seeding defaults from the optional YAML
// file, defining flags on fs whose defaults fall back to getenv, and then
// parsing args. This is the most testable entry point: callers supply a
// private FlagSet, a getenv func (often backed by a map), and synthetic args.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	base := Defaults()

	path := configPath(getenv, args)
	if path != "" {
		if err := loadFile(path, &base); err != nil {
			return nil, err
		}
	}

	str := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	num := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolean := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}

	cfg := &Config{Files: base.Files}

	fs.StringVar(&cfg.ConfigFile, "config", path, "YAML config file (env OLIST_CONFIG)")

	// Inputs
	fs.StringVar(&cfg.Datasets, "datasets", str("OLIST_DATASETS", base.Datasets), "Directory or blob URL holding the source CSV files")
	fs.IntVar(&cfg.ReadWorkers, "read-workers", num("OLIST_READ_WORKERS", base.ReadWorkers), "Datasets read concurrently")

	// Warehouse
	fs.StringVar(&cfg.DB.Driver, "db-driver", str("OLIST_DB_DRIVER", base.DB.Driver), "Warehouse driver: postgres, sqlite, mssql or mysql")
	fs.StringVar(&cfg.DB.DSN, "dsn", str("OLIST_DB_DSN", base.DB.DSN), "Full warehouse DSN (required unless postgres parts are given)")
	fs.StringVar(&cfg.DB.Host, "db-host", str("OLIST_DB_HOST", base.DB.Host), "Postgres host")
	fs.StringVar(&cfg.DB.Port, "db-port", str("OLIST_DB_PORT", base.DB.Port), "Postgres port")
	fs.StringVar(&cfg.DB.User, "db-user", str("OLIST_DB_USER", base.DB.User), "Postgres user")
	fs.StringVar(&cfg.DB.Password, "db-password", str("OLIST_DB_PASSWORD", base.DB.Password), "Postgres password")
	fs.StringVar(&cfg.DB.Name, "db-name", str("OLIST_DB_NAME", base.DB.Name), "Postgres database name")
	fs.StringVar(&cfg.DB.Schema, "db-schema", str("OLIST_DB_SCHEMA", base.DB.Schema), "Warehouse schema namespace")

	// Loading
	fs.IntVar(&cfg.BatchSize, "batch-size", num("OLIST_BATCH_SIZE", base.BatchSize), "Rows per insert batch")
	fs.BoolVar(&cfg.InitSchema, "init-schema", boolean("OLIST_INIT_SCHEMA", base.InitSchema), "Create warehouse tables if missing")
	fs.BoolVar(&cfg.Verbose, "v", boolean("OLIST_VERBOSE", base.Verbose), "Enable verbose logs")

	// Metrics
	fs.StringVar(&cfg.Metrics.Backend, "metrics-backend", str("METRICS_BACKEND", base.Metrics.Backend), "Metrics backend: none, pushgateway or datadog")
	fs.StringVar(&cfg.Metrics.Job, "job", str("OLIST_JOB", base.Metrics.Job), "Job name used for metrics labeling")
	fs.StringVar(&cfg.Metrics.PushgatewayURL, "pushgateway-url", str("PUSHGATEWAY_URL", base.Metrics.PushgatewayURL), "Pushgateway base URL")
	fs.StringVar(&cfg.Metrics.DatadogAddr, "datadog-addr", str("DD_DOGSTATSD_ADDR", base.Metrics.DatadogAddr), "DogStatsD address")

	// Analytics
	fs.StringVar(&cfg.Analytics.OutputDir, "output-dir", str("OLIST_OUTPUT_DIR", base.Analytics.OutputDir), "Directory for analytics outputs")
	fs.StringVar(&cfg.Analytics.ExportURL, "export-url", str("OLIST_EXPORT_URL", base.Analytics.ExportURL), "Bucket URL the parquet export is published to")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is the production entry point: process flag set, os.Getenv and
// os.Args[1:].
func Load() (*Config, error) {
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// ConnString returns the warehouse connection string. An explicit DSN wins; for
// Postgres one is otherwise assembled from the discrete parts.
func (c DBConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver != "postgres" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=disable",
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}
	return u.String()
}

// Redacted returns ConnString with any password masked, for logs.
func (c DBConfig) Redacted() string {
	s := c.ConnString()
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// configPath finds the YAML path before flags are defined: an explicit
// -config/--config argument wins over OLIST_CONFIG.
func configPath(getenv func(string) string, args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		for _, p := range []string{"-config", "--config"} {
			if a == p && i+1 < len(args) {
				return args[i+1]
			}
			if strings.HasPrefix(a, p+"=") {
				return strings.TrimPrefix(a, p+"=")
			}
		}
	}
	return getenv("OLIST_CONFIG")
}

// loadFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current value.
func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

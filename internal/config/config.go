// Package config provides functionality for managing configuration options
// for the application using a JSON file, environment variables and
// command-line flags.
//
// Sources are applied in increasing precedence: defaults, the JSON file, a
// .env file, the process environment, and finally flags set explicitly on the
// command line.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Options holds the configuration values for the application.
type Options struct {
	// ServerURL is the base URL of the Nexus service.
	ServerURL string `json:"server_url"`

	// CatalogURL lists every known currency.
	CatalogURL string `json:"catalog_url"`

	// Addr defines the gateway's listening address (ip:port).
	Addr string `json:"addr"`

	// Storage selects the durable backend: bolt, memory or postgres.
	Storage string `json:"storage"`

	// StoragePath is the bolt database file.
	StoragePath string `json:"storage_path"`

	// DatabaseDSN holds the PostgreSQL connection string for the postgres
	// backend.
	DatabaseDSN string `json:"database_dsn"`

	// StorageSecret, when set, encrypts every stored value.
	StorageSecret string `json:"storage_secret"`

	// CacheTTL is how long the currency catalog stays valid.
	CacheTTL Duration `json:"cache_ttl"`

	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"`

	// LogoutOnReject clears the session when the service rejects its token.
	LogoutOnReject bool `json:"logout_on_reject"`

	// CACert is a PEM file with the CA the service certificate must chain to.
	CACert string `json:"ca_cert"`

	// RequestTimeout bounds every remote call.
	RequestTimeout Duration `json:"request_timeout"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// Default returns the built-in configuration.
func Default() *Options {
	return &Options{
		ServerURL:      "https://backendnexus-026855c96a67.herokuapp.com",
		CatalogURL:     "https://api.coingecko.com/api/v3/coins/list",
		Addr:           "localhost:8080",
		Storage:        "bolt",
		StoragePath:    defaultStoragePath(),
		CacheTTL:       Duration{time.Hour},
		LogLevel:       "info",
		RequestTimeout: Duration{10 * time.Second},
		Config:         "config.json",
	}
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "nexus.db"
	}
	return filepath.Join(dir, "nexus", "nexus.db")
}

// BindFlags registers a flag for every option on fs, using the current values
// of o as defaults.
func BindFlags(fs *pflag.FlagSet, o *Options) {
	fs.StringVar(&o.ServerURL, "server", o.ServerURL, "Nexus service base URL")
	fs.StringVar(&o.CatalogURL, "catalog", o.CatalogURL, "currency catalog URL")
	fs.StringVarP(&o.Addr, "addr", "a", o.Addr, "run gateway on ip:port")
	fs.StringVar(&o.Storage, "storage", o.Storage, "storage backend (bolt, memory, postgres)")
	fs.StringVar(&o.StoragePath, "storage-path", o.StoragePath, "bolt database file")
	fs.StringVarP(&o.DatabaseDSN, "dsn", "d", o.DatabaseDSN, "db address for the postgres backend")
	fs.StringVar(&o.StorageSecret, "storage-secret", o.StorageSecret, "encrypt stored values with this secret")
	fs.Var(&o.CacheTTL, "cache-ttl", "currency catalog time to live")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level")
	fs.BoolVar(&o.LogoutOnReject, "logout-on-reject", o.LogoutOnReject, "log out when the service rejects the token")
	fs.StringVar(&o.CACert, "ca-cert", o.CACert, "CA certificate for the service")
	fs.Var(&o.RequestTimeout, "timeout", "remote request timeout")
	fs.StringVarP(&o.Config, "config", "c", o.Config, "path to config file")
}

// Resolve layers the config file and the environment over o after fs has
// been parsed. Flags the user set explicitly keep their values.
func Resolve(fs *pflag.FlagSet, o *Options) error {
	changed := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) { changed[f.Name] = f.Value.String() })

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error while reading .env: %w", err)
	}

	// Override the path with the environment unless given as a flag
	if _, set := changed["config"]; !set {
		if configPath := os.Getenv("CONFIG"); configPath != "" {
			o.Config = configPath
		}
	}

	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			data, err := os.ReadFile(o.Config)
			if err != nil {
				return fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, o); err != nil {
				return fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if err := applyEnv(o); err != nil {
		return err
	}

	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return nil
}

func applyEnv(o *Options) error {
	strs := map[string]*string{
		"SERVER_ADDRESS":       &o.Addr,
		"DATABASE_DSN":         &o.DatabaseDSN,
		"NEXUS_SERVER_URL":     &o.ServerURL,
		"NEXUS_CATALOG_URL":    &o.CatalogURL,
		"NEXUS_STORAGE":        &o.Storage,
		"NEXUS_STORAGE_PATH":   &o.StoragePath,
		"NEXUS_STORAGE_SECRET": &o.StorageSecret,
		"NEXUS_LOG_LEVEL":      &o.LogLevel,
		"NEXUS_CA_CERT":        &o.CACert,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*Duration{
		"NEXUS_CACHE_TTL":       &o.CacheTTL,
		"NEXUS_REQUEST_TIMEOUT": &o.RequestTimeout,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			if err := dst.Set(v); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	if v := os.Getenv("NEXUS_LOGOUT_ON_REJECT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NEXUS_LOGOUT_ON_REJECT: %w", err)
		}
		o.LogoutOnReject = b
	}
	return nil
}

// Parse parses the command-line flags, the config file and environment
// variables to set configuration values. It returns a pointer to the Options
// struct containing the parsed configuration values.
func Parse() *Options {
	options := Default()
	BindFlags(pflag.CommandLine, options)
	pflag.Parse()

	if err := Resolve(pflag.CommandLine, options); err != nil {
		log.Fatalf("config: %v", err)
	}
	return options
}

// Duration is a time.Duration that reads "90s"-style strings from JSON and
// flags. Plain JSON numbers are taken as seconds.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.Set(s)
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Set implements pflag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Type implements pflag.Value.
func (d *Duration) Type() string { return "duration" }

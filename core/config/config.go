package config

import (
	"reflect"
	"strings"

	"feed-processor/core/cloud"
	"feed-processor/core/database"
	"feed-processor/core/feed"
	"feed-processor/core/ingest"
	"feed-processor/core/logger"
	"feed-processor/core/params"
	"feed-processor/core/queue"
	"feed-processor/core/server"
	"feed-processor/core/statestore"
	"feed-processor/core/storage"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig identifies the deployment.
type AppConfig struct {
	// Env is the deployment environment (Dev, Prod). It partitions snapshots and
	// names the default queue.
	Env string `mapstructure:"env" default:"Dev"`
	// Name is the application name used in the parameter store path.
	Name string `mapstructure:"name" default:"feed-processor-talos-intelligence"`
}

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// App identifies the environment and application.
	App AppConfig `mapstructure:"app"`
	// Server holds configuration for the HTTP admin server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the snapshot object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the SQL state backend.
	Database database.Config `mapstructure:"database"`
	// AWS holds configuration shared by the AWS clients.
	AWS cloud.Config `mapstructure:"aws"`
	// State holds configuration for the state store.
	State statestore.Config `mapstructure:"state"`
	// Queue holds configuration for the downstream queue.
	Queue queue.Config `mapstructure:"queue"`
	// Pipeline holds the ingestion tunables.
	Pipeline ingest.Config `mapstructure:"pipeline"`
	// Feed holds settings shared by every feed download.
	Feed feed.Config `mapstructure:"feed"`
	// Feeds lists the feeds to process. Only settable from config.yaml.
	Feeds []feed.Definition `mapstructure:"feeds"`
	// Params holds configuration for the parameter store overrides.
	Params params.Config `mapstructure:"params"`
}

// DefaultFeeds is used when no feed is configured.
func DefaultFeeds() []feed.Definition {
	return []feed.Definition{{
		Name:   "ipreputation",
		Source: "talosintelligence.com",
		URL:    "https://www.talosintelligence.com/documents/ip-blacklist",
	}}
}

// LoadConfig loads configuration from environment variables, the .env file and an
// optional config.yaml.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigWith(path, nil)
}

// LoadConfigWith loads configuration like LoadConfig and applies overrides on top.
// Override keys are dotted config keys (e.g. storage.secret_key).
func LoadConfigWith(path string, overrides map[string]any) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range overrides {
		v.Set(k, val)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if len(config.Feeds) == 0 {
		config.Feeds = DefaultFeeds()
	}
	if config.Queue.Name == "" {
		config.Queue.Name = strings.ToLower(config.App.Env) + "-early-warning-service"
	}

	return &config, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if !c.State.IsValidDriver() {
		return errors.Newf("unsupported state driver %q", c.State.Driver)
	}
	if !c.Queue.IsValidDriver() {
		return errors.Newf("unsupported queue driver %q", c.Queue.Driver)
	}
	if c.State.Driver == statestore.DriverSQL {
		switch c.Database.Driver {
		case database.DriverMySQL, database.DriverSQLite:
		default:
			return errors.Newf("unsupported database driver %q", c.Database.Driver)
		}
	}
	if c.State.Driver == statestore.DriverDynamo && c.Pipeline.BatchSize > 100 {
		return errors.Newf("pipeline batch size %d exceeds the dynamodb batch limit of 100", c.Pipeline.BatchSize)
	}
	if c.Feed.MaxInvalidFraction < 0 || c.Feed.MaxInvalidFraction > 1 {
		return errors.Newf("feed max invalid fraction %v must be within [0, 1]", c.Feed.MaxInvalidFraction)
	}
	seen := make(map[string]bool, len(c.Feeds))
	for _, f := range c.Feeds {
		if f.Name == "" || f.URL == "" {
			return errors.Newf("feed %q needs a name and a url", f.Name)
		}
		key := f.Source + "/" + f.Name
		if seen[key] {
			return errors.Newf("feed %s is configured twice", key)
		}
		seen[key] = true
	}
	return nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		switch field.Type.Kind() {
		case reflect.Struct:
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		case reflect.Slice:
			// Lists come from the config file only.
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}

package storage

// Config holds configuration for the snapshot object store.
type Config struct {
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"s3.amazonaws.com"`
	// AccessKey is the access key ID. Empty uses the environment or instance role.
	AccessKey string `mapstructure:"access_key" default:""`
	// SecretKey is the secret access key, usually supplied by the parameter store.
	SecretKey string `mapstructure:"secret_key" default:""`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"true"`
	// Bucket holds the raw feed snapshots.
	Bucket string `mapstructure:"bucket" default:"feed-processor-snapshots"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Disabled skips archiving entirely.
	Disabled bool `mapstructure:"disabled" default:"false"`
}

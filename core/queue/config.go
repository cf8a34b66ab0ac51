package queue

const (
	DriverSQS    = "sqs"
	DriverNATS   = "nats"
	DriverMemory = "memory"
)

// Config holds configuration for the downstream queue.
type Config struct {
	// Driver selects the transport (sqs, nats, memory).
	Driver string `mapstructure:"driver" default:"sqs"`
	// Name is the SQS queue name. Empty derives "<env>-early-warning-service".
	Name string `mapstructure:"name" default:""`
	// URL is the SQS queue URL. When empty it is resolved from Name.
	URL string `mapstructure:"url" default:""`
	// Endpoint overrides the SQS endpoint (e.g. a local emulator).
	Endpoint string `mapstructure:"endpoint" default:""`
	// NatsURL is the NATS server used by the nats driver.
	NatsURL string `mapstructure:"nats_url" default:"nats://127.0.0.1:4222"`
	// Subject is the JetStream subject messages are published on.
	Subject string `mapstructure:"subject" default:"early-warning.indicators"`
	// RatePerSecond caps publishes per second. Zero disables the limiter.
	RatePerSecond float64 `mapstructure:"rate_per_second" default:"0"`
	// Burst is the limiter bucket size.
	Burst int `mapstructure:"burst" default:"10"`
}

// IsValidDriver checks if the configured driver is supported.
func (c Config) IsValidDriver() bool {
	switch c.Driver {
	case DriverSQS, DriverNATS, DriverMemory:
		return true
	default:
		return false
	}
}

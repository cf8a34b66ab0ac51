// Package config provides configuration management for the feed processor.
//
// It utilizes Viper for loading configuration from environment variables,
// the .env file and an optional config.yaml.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - App: environment and application name (APP_ENV, APP_NAME)
//   - Log: logging level and format
//   - State: state store driver and table (DynamoDB, SQL, memory)
//   - Database: SQL connection details for the sql state driver
//   - Queue: downstream transport (SQS, NATS JetStream, memory) and rate limit
//   - Pipeline: batch size, workers, timeouts and retry policies
//   - Feed / Feeds: download settings and the list of feeds (config.yaml only)
//   - Storage: S3/MinIO credentials and the snapshot bucket
//   - AWS, Params: SDK settings and parameter store overrides
//   - Server: HTTP admin server port and API key
//
// Defaults come from the `default` struct tags of each package's Config.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Queue.Name)
package config

// Package params loads configuration overrides from AWS SSM Parameter Store.
//
// Parameters live under "/<env>/<app>/" and are read once at startup, decrypted,
// and mapped to config keys by turning the remaining path into a dotted key:
//
//	/Prod/feed-processor-talos-intelligence/storage/secret_key -> storage.secret_key
//
// The overrides are applied with config.LoadConfigWith.
package params

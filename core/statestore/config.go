package statestore

import (
	"feed-processor/core/retry"
)

const (
	DriverDynamo = "dynamodb"
	DriverSQL    = "sql"
	DriverMemory = "memory"
)

// Config holds configuration for the state store.
type Config struct {
	// Driver selects the backend (dynamodb, sql, memory).
	Driver string `mapstructure:"driver" default:"dynamodb"`
	// Table is the DynamoDB table or SQL table holding one entry per indicator.
	Table string `mapstructure:"table" default:"talos_intelligence"`
	// KeyAttribute is the partition key attribute of the DynamoDB table.
	KeyAttribute string `mapstructure:"key_attribute" default:"address_id"`
	// Endpoint overrides the DynamoDB endpoint (e.g. a local emulator).
	Endpoint string `mapstructure:"endpoint" default:""`
	// Unprocessed bounds the re-requests of keys DynamoDB left unprocessed.
	Unprocessed retry.Config `mapstructure:"unprocessed"`
}

// IsValidDriver checks if the configured driver is supported.
func (c Config) IsValidDriver() bool {
	switch c.Driver {
	case DriverDynamo, DriverSQL, DriverMemory:
		return true
	default:
		return false
	}
}

// KeyFunc derives the storage key of an indicator id.
type KeyFunc func(id string) string

func identity(id string) string { return id }

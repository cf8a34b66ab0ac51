// Package server holds the HTTP admin server configuration.
//
// # Configuration
//
// The Config struct defines the HTTP port, the API key and the request timeouts.
//
// # Usage
//
// This package is used by the core/config package to embed server settings and by
// the serve command to configure Fiber.
package server

// Package talos implements the Talos Intelligence IP reputation feed.
//
// The feed is a plain text list with one IPv4/IPv6 address or CIDR network per line
// and "#" comments. Every valid line becomes an ingest.IndicatorRecord whose id is
// the canonical address and whose attributes carry the uuid5 address_id, the
// address type and the feed identity.
//
// # Components
//
//   - Parser: validates lines (feed.Validator) into typed results.
//   - Source: downloads, archives and streams one feed (ingest.Source).
//   - Service: runs all enabled feeds and looks up stored state.
//   - Handler: exposes the service over HTTP.
//   - Loader: registers the feature with the application.
//
// # HTTP Endpoints
//
//   - POST /runs : Run every enabled feed and return the results.
//   - GET /runs/last : Results of the latest run.
//   - GET /state/:indicator : Stored state of an address (e.g. '1.2.3.4').
package talos

// Package metrics exposes run outcomes as Prometheus metrics on a private registry.
package metrics

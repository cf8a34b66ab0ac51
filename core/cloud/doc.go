// Package cloud loads AWS configuration and builds the service clients used by the
// state store, the queue and the parameter store.
package cloud

// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation (X-API-Key) with a list of public paths.
//   - rayid: assigns a Request ID (RayID) to every incoming request and echoes it in
//     the X-Ray-ID response header for tracing.
package middleware

// Package services sits between the transports (HTTP, WebSocket, CLI) and
// the analysis core. It keeps the pipeline free of host concerns.
//
// # Available Services
//
//   - AnalysisService: runs the pipeline, caches reports, renders charts
//     and exports filtered rows
//   - HealthService: liveness, readiness and version information
//
// # Report cache
//
// AnalysisService keys reports by a SHA-256 digest of the workbook bytes
// and every parameter. Identical concurrent requests share one pipeline
// run through singleflight, and only successful reports are cached. Cached
// reports are shared between callers and must not be modified.
//
// # Metrics
//
// Stage durations, run outcomes, row counts, cache lookups, rendered charts
// and exports are recorded through infrastructure.Metrics when one is
// supplied.
package services

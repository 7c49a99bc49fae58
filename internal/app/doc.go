// Package app wires the SheetLens server together: configuration, logging,
// OpenTelemetry, the analysis service, the HTTP router and the WebSocket hub.
//
// # Initialization Flow
//
//  1. Build the JSON logger from the logging config
//  2. Initialize OpenTelemetry exporters and the metric instruments
//  3. Create the analysis service, health checks and WebSocket hub
//  4. Mount middleware and routes on a chi router
//  5. Create the HTTP server
//
// # Routes
//
//	GET  /ws/analyze              interactive analysis session
//	GET  /                        upload page
//	POST /report                  dashboard for an uploaded workbook
//	POST /api/analyze             JSON report
//	POST /api/analyze/charts/{k}  chart image
//	POST /api/analyze/export      filtered rows as csv or xlsx
//	POST /api/sheets              worksheet names
//	GET  /api/health[/ready|/live], /api/version
//	GET  /metrics                 Prometheus, when enabled
//
// # Usage
//
//	a, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return a.Run()
//
// Run blocks until SIGINT or SIGTERM. Shutdown drains in-flight requests,
// closes open WebSocket sessions with a going-away frame and flushes
// telemetry. Initialization errors are returned, never fatal.
package app

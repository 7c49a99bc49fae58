// Package http implements the HTTP handlers of the sheetlens service. It is
// a thin layer over services.AnalysisService: handlers parse and validate
// the multipart upload, call the service, and format the response.
//
// # Routes
//
//	POST /api/analyze                 JSON report
//	POST /api/analyze/charts/{kind}   PNG or SVG chart (?format=png|svg)
//	POST /api/analyze/export          filtered rows (?format=csv|xlsx)
//	POST /api/sheets                  sheet names of the upload
//	GET  /api/health[/ready|/live]    health checks
//	GET  /api/version                 build information
//	GET  /                            upload page
//	POST /report                      server-rendered dashboard
//
// Every analysis route takes the same multipart form: the workbook in
// "file" plus the optional fields sheet, date_column, start, end, series
// and preview_rows. Dates use the YYYY-MM-DD form.
//
// # Error Handling
//
// Failures are answered with RFC 7807 problem documents produced by
// errors.ErrorHandler. When the pipeline stops part-way, the problem
// carries the sections computed so far in its "report" member:
//
//	{
//	    "type": "/errors/analysis/invalid-range",
//	    "title": "Invalid Date Range",
//	    "status": 400,
//	    "detail": "start date is after end date: 2024-01-05 > 2024-01-03",
//	    "instance": "/api/analyze",
//	    "report": {"sheet": "Data", "bounds": {...}, ...}
//	}
package http

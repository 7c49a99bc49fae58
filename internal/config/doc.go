// Package config provides centralized configuration management for SheetLens.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. A YAML configuration file
//  3. Default values (lowest priority)
//
// The file is taken from the -config flag, else SHEETLENS_CONFIG, else the
// first of sheetlens.yaml and configs/sheetlens.yaml that exists.
//
// # Environment Variables
//
// Variables are namespaced SHEETLENS_<SECTION>_<FIELD>:
//
//	SHEETLENS_SERVER_PORT=9000
//	SHEETLENS_SERVER_MAX_UPLOAD_BYTES=67108864
//	SHEETLENS_LOGGING_LEVEL=debug
//	SHEETLENS_ANALYSIS_CACHE_SIZE=0
//	SHEETLENS_TELEMETRY_TRACE_EXPORTER=stdout
package config

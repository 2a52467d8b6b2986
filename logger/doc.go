// Package logger provides structured logging for pvpauth using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with map-based structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("keycache")
//	log.Info("keys refreshed", logger.Fields("count", 2))
package logger

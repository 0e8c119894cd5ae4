// Package logging provides structured logging for preflight.
//
// It wraps log/slog with JSON or text output and adds the service name and
// build version to every record.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("executor").Info("started", "frame_rate", 60)
//
// Never log secrets such as the MQTT password or the JWT secret.
package logging

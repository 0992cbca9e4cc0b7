// Package logger builds log/slog loggers with the conventions used across
// this module: JSON output by default, text for development, static
// attributes for service identification.
package logger

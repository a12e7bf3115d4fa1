// Package logger wires log/slog into the application: JSON output, a level
// taken from server configuration, and helpers for carrying a logger through
// context so request-scoped attributes like trace IDs survive across layers.
package logger

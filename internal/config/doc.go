// Package config loads application settings from MNEMO_-prefixed environment
// variables via viper and validates the result with go-playground/validator
// before the server starts. Components receive typed sub-structs rather than
// reading the environment themselves.
package config

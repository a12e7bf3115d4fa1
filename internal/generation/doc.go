// Package generation defines the provider-facing boundary for LLM-backed
// content generation: the Generator interface, request and candidate types,
// shared response parsing, and the seed prompt templates. Provider
// implementations (Gemini, OpenAI-compatible) live under internal/platform
// and the application core never couples to a specific external service.
package generation

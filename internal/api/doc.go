// Package api holds the HTTP handlers for sessions, cards, prompts, and
// authentication. Handlers decode and validate requests, call the matching
// service, and map service errors onto HTTP status codes; no business rules
// live here.
package api

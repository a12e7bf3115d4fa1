// Package store declares the persistence interfaces for sessions, cards,
// prompt versions, suggestions, rejections, users, and tasks, along with the
// sentinel errors services match against. Implementations live in
// internal/platform/postgres; services depend only on these interfaces.
package store

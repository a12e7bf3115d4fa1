// Package service holds the session orchestrator and CSV export, plus the
// error taxonomy and collaborator interfaces shared by its subpackages
// (auth, review, promptevo). Services own transactions and state
// transitions; stores persist, providers generate, and the API layer only
// translates errors.
package service

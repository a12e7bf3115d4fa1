// Package postgres implements the internal/store interfaces on PostgreSQL
// through database/sql and the pgx driver. It also carries the goose
// migrations and the error mapping that turns driver errors into store
// sentinels.
package postgres

// Package mocks holds shared mock implementations of the auth and store
// interfaces used by handler and middleware tests. Mocks that only one
// package needs live next to that package's tests instead; only the ones
// needed across package boundaries belong here.
//
// Each mock follows the same pattern: exported Fn fields override single
// methods, and sensible defaults cover the rest, so tests set only what
// they assert on.
package mocks

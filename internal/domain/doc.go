// Package domain contains the core business entities, value objects, and
// domain logic of the application: sessions, cards, rejection history,
// prompt versions and suggestions. Entities validate themselves and own
// their status transition rules; persistence and orchestration live in
// other layers.
package domain

package db

import "github.com/google/uuid"

// newID returns an opaque unique identifier for a new entity row.
func newID() string {
	return uuid.New().String()
}

package authz

import "github.com/google/uuid"

// IDGenerator produces opaque unique identifiers for new entities.
type IDGenerator func() string

// NewUUID is the default IDGenerator.
func NewUUID() string { return uuid.NewString() }

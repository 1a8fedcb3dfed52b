// Package resource provides the generic typed CRUD layer the feature
// packages build on: a Controller translating domain operations into REST
// calls for one resource path, and an observable Store mediating between the
// controller and UI subscribers.
package resource

// Model is the minimal contract every domain entity satisfies. ResourceID
// returns the server-assigned identity, empty for entities not yet created.
// The id is immutable once assigned.
type Model interface {
	ResourceID() string
}

// Patch carries partial-update fields: only the keys present are modified
// server-side.
type Patch map[string]any

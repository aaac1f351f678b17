package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the row has none, so inserts work the
// same against Postgres and the in-memory sqlite used by tests.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

package models

import "github.com/google/uuid"

// ensureID assigns a random UUID when the caller left the primary key empty.
// Rows are created on both Postgres and sqlite, so ids are not left to a
// database default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

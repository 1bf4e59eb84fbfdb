package models

import "github.com/google/uuid"

// ensureID assigns a new v4 id when the row is created without one.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

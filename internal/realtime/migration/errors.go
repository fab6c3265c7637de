package migration

import (
	"errors"
	"fmt"
)

// ErrNotArchived is returned by a Restorer for documents without an archived copy.
var ErrNotArchived = errors.New("document not archived")

// ConfigurationError means the process must not start serving: the schema
// version store is unreadable or a migration table is malformed.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "migration configuration: " + e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// MigrationError reports the document whose migration failed. DocID is empty
// when the failure is not tied to a single document.
type MigrationError struct {
	Collection string
	DocID      string
	Version    int
	Err        error
}

func (e *MigrationError) Error() string {
	if e.DocID == "" {
		return fmt.Sprintf("migrate %s to version %d: %v", e.Collection, e.Version, e.Err)
	}
	return fmt.Sprintf("migrate %s/%s to version %d: %v", e.Collection, e.DocID, e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

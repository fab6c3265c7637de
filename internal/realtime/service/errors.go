package service

import (
	"errors"
	"fmt"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/objpath"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNotReady          = errors.New("migrations have not completed")
	ErrNotIndexed        = errors.New("path is not an index path")
)

// Reason classifies a rejected mutation batch.
type Reason string

const (
	ReasonImmutable Reason = "immutable"
	ReasonForbidden Reason = "forbidden"
)

// Rejection is returned when a mutation batch may not be applied. It is a
// policy outcome for the submitting session, not a system fault.
type Rejection struct {
	Collection string
	Reason     Reason
	// OpIndex is the first offending component of the batch.
	OpIndex  int
	Path     objpath.Path
	Template string
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonForbidden:
		return fmt.Sprintf("%s: op %d at %q requires an administrator", r.Collection, r.OpIndex, r.Path.String())
	default:
		return fmt.Sprintf("%s: op %d at %q touches immutable property %s", r.Collection, r.OpIndex, r.Path.String(), r.Template)
	}
}

// IsRejection reports whether err is a policy rejection.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrNotSupported is returned by writer operations the backing calendar
// collaborator does not implement yet.
var ErrNotSupported = errors.New("calendar: operation not supported")

// Provenance is opaque metadata attached to created events so that
// automated creations are distinguishable from user-authored events on
// later runs.
type Provenance map[string]string

// NewEvent describes an event to be created.
type NewEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// Writer is the live-calendar-mutation capability consumed by the
// reconciler. Implementations must be already authenticated; credential
// lifecycle is not this package's concern.
//
// Move and Delete exist on the interface so recommendations for them
// stay reachable, but today's only implementation returns
// ErrNotSupported for both.
type Writer interface {
	Create(ctx context.Context, ev NewEvent, prov Provenance) error
	Move(ctx context.Context, eventRef string, newStart, newEnd time.Time) error
	Delete(ctx context.Context, eventRef string) error
}

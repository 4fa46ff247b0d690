package events

import (
	"context"
	"errors"

	"github.com/vbonduro/propertydesk/internal/listing"
)

// Fanout delivers each change to every notifier and joins their errors.
type Fanout []listing.Notifier

func (f Fanout) Notify(ctx context.Context, c listing.Change) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Noop struct{}

func (Noop) Notify(context.Context, listing.Change) error { return nil }

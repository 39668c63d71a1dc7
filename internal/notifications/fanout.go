package notifications

import (
	"context"
	"errors"
)

// Notifier is implemented by PushNotifier and MailNotifier.
type Notifier interface {
	AccessRequested(ctx context.Context, ev AccessEvent) error
	AccessDecided(ctx context.Context, ev AccessEvent) error
}

// Fanout delivers every event through all channels. A user without push
// tokens is not an error.
type Fanout []Notifier

func (f Fanout) AccessRequested(ctx context.Context, ev AccessEvent) error {
	var errs []error
	for _, n := range f {
		if err := n.AccessRequested(ctx, ev); err != nil && !errors.Is(err, ErrNoPushTokens) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) AccessDecided(ctx context.Context, ev AccessEvent) error {
	var errs []error
	for _, n := range f {
		if err := n.AccessDecided(ctx, ev); err != nil && !errors.Is(err, ErrNoPushTokens) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

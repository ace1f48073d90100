// Package live holds the long-running components that keep a client's view
// current: reload loops driven by table changes and feeds driven by the
// notification bus.
package live

import (
	"context"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/realtime"
)

type Subscriber interface {
	Subscribe(table string, ownerID string) *realtime.Subscription
}

// Watch calls reload once, then again after every change to table made by
// ownerID, until ctx is done or the hub shuts down. Notifications that pile
// up while reload runs trigger a single further reload. Reload errors go to
// onError and do not stop the loop.
func Watch(ctx context.Context, hub Subscriber, table, ownerID string, reload func(context.Context) error, onError func(error)) error {
	subscription := hub.Subscribe(table, ownerID)
	defer subscription.Close()

	run := func() {
		if err := reload(ctx); err != nil && onError != nil && ctx.Err() == nil {
			onError(err)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-subscription.C:
			if !ok {
				return nil
			}
			if !drain(subscription.C) {
				return nil
			}
			run()
		}
	}
}

// drain empties the pending notifications. It reports false when the channel
// was closed.
func drain(changes <-chan realtime.Change) bool {
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}

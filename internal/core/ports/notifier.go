package ports

import "context"

// ChangeNotifier announces that a character changed. The payload is the
// character id only; observers re-fetch the full state.
type ChangeNotifier interface {
	Publish(ctx context.Context, characterID string) error
}

// Subscription is one live observer of character changes. Events is closed
// when the subscription ends, either by Close or because the observer fell
// too far behind.
type Subscription interface {
	ID() string
	Events() <-chan string
	Close()
}

// ChangeFeed hands out subscriptions. A subscriber only sees changes
// published after it subscribed.
type ChangeFeed interface {
	Subscribe() Subscription
}

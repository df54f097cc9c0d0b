package options

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"mt-stocktrade/internal/marketdata"
)

// DetailSource is the slice of the store the notifier reads.
type DetailSource interface {
	ListExpiring(ctx context.Context, cutoff time.Time, limit int) ([]Detail, error)
}

type Publisher interface {
	Publish(evt marketdata.Event)
}

const expiryBatchSize = 500

// ExpiryNotifier publishes an event per option contract whose expiry falls
// inside the lookahead window, so connected clients can warn the holder.
type ExpiryNotifier struct {
	src    DetailSource
	pub    Publisher
	log    *logrus.Logger
	window time.Duration
}

func NewExpiryNotifier(src DetailSource, pub Publisher, log *logrus.Logger, window time.Duration) *ExpiryNotifier {
	return &ExpiryNotifier{src: src, pub: pub, log: log, window: window}
}

func (n *ExpiryNotifier) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(n.window)
	details, err := n.src.ListExpiring(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return 0, err
	}
	for _, d := range details {
		n.pub.Publish(marketdata.Event{Type: marketdata.EventOptionExpiring, Data: d})
	}
	if len(details) > 0 {
		n.log.WithField("count", len(details)).Info("option contracts nearing expiry")
	}
	return len(details), nil
}

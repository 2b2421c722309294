package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	StreamName    = "AUCTION_EVENTS"
	SubjectPrefix = "auction.events"

	BidPlaced     = "bid_placed"
	AuctionClosed = "auction_closed"
	AuctionSold   = "auction_sold"

	publishTimeout = 2 * time.Second
)

// AuctionEvent is the payload published for every committed lifecycle change.
type AuctionEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	ListingID  string    `json:"listing_id"`
	BidID      string    `json:"bid_id,omitempty"`
	BidderID   string    `json:"bidder_id,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	FinalPrice string    `json:"final_price,omitempty"`
	BidCount   int       `json:"bid_count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Subject is auction.events.<type>.<listing_id>.
func (e AuctionEvent) Subject() string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, e.Type, e.ListingID)
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
}

// Emit publishes ev after the fact. Delivery is best-effort: failures are logged, never returned.
// A nil publisher is a no-op.
func Emit(ctx context.Context, p Publisher, ev AuctionEvent) {
	if p == nil {
		return
	}
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("events: marshal failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev.Subject(), b); err != nil {
		log.Warn().Err(err).Str("subject", ev.Subject()).Msg("events: publish failed")
		return
	}
	log.Debug().Str("subject", ev.Subject()).Str("event_id", ev.EventID).Msg("events: published")
}

// Connect dials NATS with unlimited reconnects.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url, nats.Name("trubid-api"), nats.MaxReconnects(-1))
}

// JetStreamPublisher persists events on the AUCTION_EVENTS stream.
type JetStreamPublisher struct {
	js jetstream.JetStream
}

// NewJetStreamPublisher ensures the stream exists and returns a publisher bound to it.
func NewJetStreamPublisher(ctx context.Context, nc *nats.Conn) (*JetStreamPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Auction lifecycle events",
		Subjects:    []string{SubjectPrefix + ".>"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	return &JetStreamPublisher{js: js}, nil
}

func (p *JetStreamPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	_, err := p.js.Publish(ctx, subject, payload)
	return err
}

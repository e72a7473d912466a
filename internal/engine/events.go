package engine

import "time"

// Event kinds published by the engine.
const (
	EventBetAccepted  = "bet_accepted"
	EventPriceLocked  = "price_locked"
	EventRoundSettled = "round_settled"
	EventRedeemed     = "redeemed"
)

// Event is one engine lifecycle notification.
type Event struct {
	Type       string      `json:"type"`
	MarketID   string      `json:"market_id"`
	RoundIndex uint64      `json:"round_index"`
	At         time.Time   `json:"at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Publisher fans engine events out to subscribers. Publish must not block;
// slow consumers are the publisher's problem.
type Publisher interface {
	Publish(event Event)
}

// noopPublisher drops every event.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

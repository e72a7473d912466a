package types

import "time"

// OraclePrice is one observation from a price feed.
type OraclePrice struct {
	FeedID      string
	Price       int64  // fixed-point integer price, exponent implied by the feed
	Confidence  uint64 // absolute confidence interval, same scale as Price
	Exponent    int32
	PublishedAt time.Time
}

// Age returns how old the observation is relative to now.
func (p *OraclePrice) Age(now time.Time) time.Duration {
	return now.Sub(p.PublishedAt)
}

package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/itsneelabh/sushichat/core"
)

// DefaultQuoteTTL is how long a proposed order can be confirmed by its code.
const DefaultQuoteTTL = 30 * time.Minute

// Quote is a priced, not yet confirmed order.
type Quote struct {
	ID           string          `json:"id"`
	Lines        []Line          `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	CustomerName string          `json:"customer_name,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	PickupTime   string          `json:"pickup_time,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// NewQuoteID returns "q_" followed by 8 hex characters.
func NewQuoteID() string {
	return "q_" + uuid.NewString()[:8]
}

// Request rebuilds an order request from the quote.
func (q *Quote) Request() Request {
	lines := make([]LineRequest, len(q.Lines))
	for i, l := range q.Lines {
		lines[i] = LineRequest{ItemName: l.ItemName, Quantity: l.Quantity}
	}
	return Request{
		Lines:        lines,
		QuoteID:      q.ID,
		Phone:        q.Phone,
		PickupTime:   q.PickupTime,
		CustomerName: q.CustomerName,
	}
}

// QuoteStore keeps quotes in a core.Memory under "quote:<id>".
type QuoteStore struct {
	memory core.Memory
	ttl    time.Duration
	now    func() time.Time
}

// NewQuoteStore returns a store with the given TTL (DefaultQuoteTTL when <= 0).
func NewQuoteStore(memory core.Memory, ttl time.Duration) *QuoteStore {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &QuoteStore{memory: memory, ttl: ttl, now: time.Now}
}

// TTL returns the quote lifetime.
func (s *QuoteStore) TTL() time.Duration { return s.ttl }

func quoteKey(id string) string { return "quote:" + id }

// Save assigns an id and expiry when missing and stores the quote.
func (s *QuoteStore) Save(ctx context.Context, q *Quote) error {
	if q.ID == "" {
		q.ID = NewQuoteID()
	}
	now := s.now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.ExpiresAt = now.Add(s.ttl)

	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	if err := s.memory.Set(ctx, quoteKey(q.ID), string(data), s.ttl); err != nil {
		return fmt.Errorf("save quote %s: %w", q.ID, err)
	}
	return nil
}

// Get returns ErrQuoteNotFound for unknown or expired ids.
func (s *QuoteStore) Get(ctx context.Context, id string) (*Quote, error) {
	data, err := s.memory.Get(ctx, quoteKey(id))
	if err != nil {
		return nil, fmt.Errorf("load quote %s: %w", id, err)
	}
	if data == "" {
		return nil, ErrQuoteNotFound
	}
	var q Quote
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		return nil, fmt.Errorf("decode quote %s: %w", id, err)
	}
	if !q.ExpiresAt.IsZero() && s.now().After(q.ExpiresAt) {
		return nil, ErrQuoteNotFound
	}
	return &q, nil
}

// Delete removes a quote.
func (s *QuoteStore) Delete(ctx context.Context, id string) error {
	return s.memory.Delete(ctx, quoteKey(id))
}

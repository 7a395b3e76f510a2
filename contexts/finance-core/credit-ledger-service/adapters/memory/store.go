package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	domainerrors "meridian/contexts/finance-core/credit-ledger-service/domain/errors"
	"meridian/contexts/finance-core/credit-ledger-service/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	transactions []entities.Transaction
	outbox       []outboxRow
}

type outboxRow struct {
	envelope  ports.EventEnvelope
	published bool
}

func NewStore(seed []entities.Transaction) *Store {
	return &Store{
		transactions: append([]entities.Transaction(nil), seed...),
		outbox:       make([]outboxRow, 0),
	}
}

func (s *Store) AppendTransaction(_ context.Context, tx entities.Transaction, envelope *ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.transactions {
		if existing.TxID == tx.TxID {
			return domainerrors.ErrTransactionExists
		}
	}
	s.transactions = append(s.transactions, tx)
	if envelope != nil {
		s.outbox = append(s.outbox, outboxRow{envelope: *envelope})
	}
	return nil
}

func (s *Store) ListByAccount(_ context.Context, accountID string) ([]entities.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accountID = strings.TrimSpace(accountID)
	items := make([]entities.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.AccountID == accountID {
			items = append(items, tx)
		}
	}
	sortTransactions(items)
	return items, nil
}

func (s *Store) ListByCampaign(_ context.Context, campaignID string) ([]entities.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaignID = strings.TrimSpace(campaignID)
	items := make([]entities.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.CampaignRef == campaignID {
			items = append(items, tx)
		}
	}
	sortTransactions(items)
	return items, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		payload, err := json.Marshal(row.envelope)
		if err != nil {
			return nil, err
		}
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.envelope.EventID,
			EventType:    row.envelope.EventType,
			PartitionKey: row.envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    row.envelope.OccurredAt,
		})
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].envelope.EventID == outboxID {
			s.outbox[i].published = true
			return nil
		}
	}
	return fmt.Errorf("outbox row %s not found", outboxID)
}

// OutboxEvents returns a copy of the envelopes written so far, for tests.
func (s *Store) OutboxEvents() []ports.EventEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.EventEnvelope, 0, len(s.outbox))
	for _, row := range s.outbox {
		items = append(items, row.envelope)
	}
	return items
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func sortTransactions(items []entities.Transaction) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].OccurredAt.Before(items[j].OccurredAt)
	})
}

package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	domainerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	"meridian/contexts/campaign-operations/change-request-service/ports"

	"github.com/google/uuid"
)

// Store keeps campaigns and change requests under one mutex so the
// lock-acquire and decision-commit sections are atomic, mirroring what the
// postgres adapter gets from conditional UPDATEs.
type Store struct {
	mu sync.RWMutex

	campaigns map[string]entities.Campaign
	requests  map[string]entities.ChangeRequest
	outbox    []outboxRow
}

type outboxRow struct {
	message   ports.OutboxMessage
	published bool
}

func NewStore(seed []entities.Campaign) *Store {
	campaigns := make(map[string]entities.Campaign, len(seed))
	for _, item := range seed {
		campaigns[item.CampaignID] = item.Clone()
	}
	return &Store{
		campaigns: campaigns,
		requests:  make(map[string]entities.ChangeRequest),
		outbox:    make([]outboxRow, 0),
	}
}

func (s *Store) CreateCampaign(_ context.Context, campaign entities.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.campaigns[campaign.CampaignID]; exists {
		return domainerrors.ErrInvalidCampaignInput
	}
	s.campaigns[campaign.CampaignID] = campaign.Clone()
	return nil
}

func (s *Store) GetCampaign(_ context.Context, campaignID string) (entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.campaigns[strings.TrimSpace(campaignID)]
	if !exists {
		return entities.Campaign{}, domainerrors.ErrCampaignNotFound
	}
	return item.Clone(), nil
}

func (s *Store) ListCampaigns(_ context.Context, filter ports.CampaignFilter) ([]entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Campaign, 0, len(s.campaigns))
	for _, campaign := range s.campaigns {
		if strings.TrimSpace(filter.AccountID) != "" && campaign.AccountID != strings.TrimSpace(filter.AccountID) {
			continue
		}
		if filter.Status != "" && campaign.Status != filter.Status {
			continue
		}
		items = append(items, campaign.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) GetRequest(_ context.Context, requestID string) (entities.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.requests[strings.TrimSpace(requestID)]
	if !exists {
		return entities.ChangeRequest{}, domainerrors.ErrRequestNotFound
	}
	return item, nil
}

func (s *Store) ListRequestsByCampaign(_ context.Context, campaignID string, status entities.RequestStatus) ([]entities.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.ChangeRequest, 0)
	for _, request := range s.requests {
		if request.CampaignID != strings.TrimSpace(campaignID) {
			continue
		}
		if status != "" && request.Status != status {
			continue
		}
		items = append(items, request)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) CreateWithLock(_ context.Context, request entities.ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaign, exists := s.campaigns[request.CampaignID]
	if !exists {
		return domainerrors.ErrCampaignNotFound
	}
	// The compare-and-swap: only an unset ref may be taken.
	if campaign.OutstandingProposalRef != "" {
		return domainerrors.ErrProposalLockHeld
	}
	if _, exists := s.requests[request.RequestID]; exists {
		return domainerrors.ErrInvalidPatch
	}

	campaign.OutstandingProposalRef = request.RequestID
	campaign.UpdatedAt = request.CreatedAt
	s.campaigns[campaign.CampaignID] = campaign
	s.requests[request.RequestID] = request
	return nil
}

func (s *Store) CreateAutoApproved(_ context.Context, request entities.ChangeRequest, campaign entities.Campaign, _ *entities.StatusHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.campaigns[request.CampaignID]
	if !exists {
		return domainerrors.ErrCampaignNotFound
	}
	if current.OutstandingProposalRef != "" {
		return domainerrors.ErrProposalLockHeld
	}
	if _, exists := s.requests[request.RequestID]; exists {
		return domainerrors.ErrInvalidPatch
	}

	// The merged campaign already carries the appended history entry.
	s.campaigns[campaign.CampaignID] = campaign.Clone()
	s.requests[request.RequestID] = request
	return nil
}

func (s *Store) UpdateProposal(_ context.Context, requestID string, patch entities.CampaignPatch, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, exists := s.requests[strings.TrimSpace(requestID)]
	if !exists {
		return domainerrors.ErrRequestNotFound
	}
	if request.Status != entities.RequestStatusPending {
		return domainerrors.ErrRequestNotPending
	}
	request.Proposed = patch
	request.UpdatedAt = updatedAt
	s.requests[request.RequestID] = request
	return nil
}

func (s *Store) CommitDecision(_ context.Context, commit ports.DecisionCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, exists := s.requests[strings.TrimSpace(commit.RequestID)]
	if !exists {
		return domainerrors.ErrRequestNotFound
	}
	// Status CAS: losing the race yields a conflict, never a double apply.
	if request.Status != commit.From {
		return domainerrors.ErrRequestNotPending
	}
	if _, exists := s.campaigns[commit.Campaign.CampaignID]; !exists {
		return domainerrors.ErrCampaignNotFound
	}

	request.Status = commit.To
	request.RejectionReason = commit.RejectionReason
	request.DecidedBy = commit.DecidedBy
	decidedAt := commit.DecidedAt
	request.DecidedAt = &decidedAt
	request.UpdatedAt = commit.DecidedAt
	s.requests[request.RequestID] = request
	s.campaigns[commit.Campaign.CampaignID] = commit.Campaign.Clone()
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outbox = append(s.outbox, outboxRow{
		message: ports.OutboxMessage{
			OutboxID:     envelope.EventID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt,
		},
	})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
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
		if s.outbox[i].message.OutboxID == outboxID {
			s.outbox[i].published = true
			return nil
		}
	}
	return domainerrors.ErrRequestNotFound
}

// PendingOutboxCount reports unpublished rows, for tests.
func (s *Store) PendingOutboxCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, row := range s.outbox {
		if !row.published {
			count++
		}
	}
	return count
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

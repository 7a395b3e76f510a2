package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CampaignStatus string

const (
	CampaignStatusDraft   CampaignStatus = "draft"
	CampaignStatusPending CampaignStatus = "pending"
	CampaignStatusActive  CampaignStatus = "active"
	CampaignStatusPaused  CampaignStatus = "paused"
	CampaignStatusExpired CampaignStatus = "expired"
	CampaignStatusDeleted CampaignStatus = "deleted"
)

// StatusHistoryEntry is one row of a campaign's append-only status log.
type StatusHistoryEntry struct {
	OccurredAt time.Time
	ActorID    string
	ActorLabel string
	Status     CampaignStatus
}

// Card is a single ad creative attached to a campaign.
type Card struct {
	CardID       string
	Headline     string
	Body         string
	MediaURL     string
	CallToAction string
}

type Campaign struct {
	CampaignID string
	AccountID  string
	Name       string
	Status     CampaignStatus
	Budget     decimal.Decimal
	DailyLimit *decimal.Decimal
	Cards      []Card

	// OutstandingProposalRef holds the id of the single live change request,
	// empty when the campaign is unlocked. Owned exclusively by the
	// change-request workflow.
	OutstandingProposalRef string

	// RejectionReason mirrors the latest rejection for display.
	RejectionReason string

	StatusHistory []StatusHistoryEntry
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Locked reports whether a live change request already holds the campaign.
func (c Campaign) Locked() bool {
	return c.OutstandingProposalRef != ""
}

// HasEverActivated scans the status log for a past activation. A campaign
// that never reached active is still on its first submission attempt.
func (c Campaign) HasEverActivated() bool {
	for _, entry := range c.StatusHistory {
		if entry.Status == CampaignStatusActive {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to mutate without aliasing the original's
// slices.
func (c Campaign) Clone() Campaign {
	copied := c
	copied.Cards = append([]Card(nil), c.Cards...)
	copied.StatusHistory = append([]StatusHistoryEntry(nil), c.StatusHistory...)
	if c.DailyLimit != nil {
		limit := *c.DailyLimit
		copied.DailyLimit = &limit
	}
	return copied
}

func IsSupportedStatus(value CampaignStatus) bool {
	switch value {
	case CampaignStatusDraft, CampaignStatusPending, CampaignStatusActive,
		CampaignStatusPaused, CampaignStatusExpired, CampaignStatusDeleted:
		return true
	default:
		return false
	}
}

// ValidBudget requires a strictly positive budget with ledger precision.
func ValidBudget(budget decimal.Decimal) bool {
	return budget.IsPositive() && budget.Exponent() >= -4
}

func ValidCampaignName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && len(trimmed) <= 200
}

package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	domainerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	"meridian/contexts/campaign-operations/change-request-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateCampaign(ctx context.Context, campaign entities.Campaign) error {
	row, err := campaignModelFromEntity(campaign)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrInvalidCampaignInput
			}
			return classifyStoreError(err)
		}
		for _, entry := range campaign.StatusHistory {
			if err := tx.Create(historyModelFromEntry(campaign.CampaignID, entry)).Error; err != nil {
				return classifyStoreError(err)
			}
		}
		return nil
	})
}

func (r *Repository) GetCampaign(ctx context.Context, campaignID string) (entities.Campaign, error) {
	var row campaignModel
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", strings.TrimSpace(campaignID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Campaign{}, domainerrors.ErrCampaignNotFound
		}
		return entities.Campaign{}, classifyStoreError(err)
	}

	var historyRows []statusHistoryModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", row.CampaignID).
		Order("occurred_at ASC").
		Find(&historyRows).
		Error; err != nil {
		return entities.Campaign{}, classifyStoreError(err)
	}

	campaign, err := row.toEntity()
	if err != nil {
		return entities.Campaign{}, err
	}
	campaign.StatusHistory = historyEntriesFromModels(historyRows)
	return campaign, nil
}

// ListCampaigns returns campaigns without their status logs; callers that
// need the log fetch the campaign individually.
func (r *Repository) ListCampaigns(ctx context.Context, filter ports.CampaignFilter) ([]entities.Campaign, error) {
	tx := r.db.WithContext(ctx).Model(&campaignModel{})
	if strings.TrimSpace(filter.AccountID) != "" {
		tx = tx.Where("account_id = ?", strings.TrimSpace(filter.AccountID))
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", string(filter.Status))
	}

	var rows []campaignModel
	if err := tx.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, classifyStoreError(err)
	}

	items := make([]entities.Campaign, 0, len(rows))
	for _, row := range rows {
		campaign, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, campaign)
	}
	return items, nil
}

func (r *Repository) GetRequest(ctx context.Context, requestID string) (entities.ChangeRequest, error) {
	var row changeRequestModel
	err := r.db.WithContext(ctx).
		Where("request_id = ?", strings.TrimSpace(requestID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ChangeRequest{}, domainerrors.ErrRequestNotFound
		}
		return entities.ChangeRequest{}, classifyStoreError(err)
	}
	return row.toEntity()
}

func (r *Repository) ListRequestsByCampaign(ctx context.Context, campaignID string, status entities.RequestStatus) ([]entities.ChangeRequest, error) {
	tx := r.db.WithContext(ctx).
		Model(&changeRequestModel{}).
		Where("campaign_id = ?", strings.TrimSpace(campaignID))
	if status != "" {
		tx = tx.Where("status = ?", string(status))
	}

	var rows []changeRequestModel
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, classifyStoreError(err)
	}

	items := make([]entities.ChangeRequest, 0, len(rows))
	for _, row := range rows {
		request, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, request)
	}
	return items, nil
}

func (r *Repository) CreateWithLock(ctx context.Context, request entities.ChangeRequest) error {
	row, err := changeRequestModelFromEntity(request)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The lock acquire: only an unheld ref flips. Losing the race leaves
		// zero rows updated and nothing mutated.
		result := tx.Model(&campaignModel{}).
			Where("campaign_id = ? AND outstanding_proposal_ref = ''", request.CampaignID).
			Updates(map[string]any{
				"outstanding_proposal_ref": request.RequestID,
				"updated_at":               request.CreatedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return lockFailureReason(tx, request.CampaignID)
		}

		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrInvalidPatch
			}
			return err
		}
		return nil
	})
	return classifyStoreError(err)
}

func (r *Repository) CreateAutoApproved(ctx context.Context, request entities.ChangeRequest, campaign entities.Campaign, history *entities.StatusHistoryEntry) error {
	row, err := changeRequestModelFromEntity(request)
	if err != nil {
		return err
	}
	updates, err := campaignUpdatesFromEntity(campaign)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&campaignModel{}).
			Where("campaign_id = ? AND outstanding_proposal_ref = ''", campaign.CampaignID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return lockFailureReason(tx, campaign.CampaignID)
		}

		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrInvalidPatch
			}
			return err
		}
		if history != nil {
			if err := tx.Create(historyModelFromEntry(campaign.CampaignID, *history)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return classifyStoreError(err)
}

func (r *Repository) UpdateProposal(ctx context.Context, requestID string, patch entities.CampaignPatch, updatedAt time.Time) error {
	proposed, err := json.Marshal(patchDocumentFromEntity(patch))
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&changeRequestModel{}).
		Where("request_id = ? AND status = ?", strings.TrimSpace(requestID), string(entities.RequestStatusPending)).
		Updates(map[string]any{
			"proposed":   proposed,
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return requestSwapFailure(r.db.WithContext(ctx), requestID)
	}
	return nil
}

func (r *Repository) CommitDecision(ctx context.Context, commit ports.DecisionCommit) error {
	campaignUpdates, err := campaignUpdatesFromEntity(commit.Campaign)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Status swap: the request must still be in its expected state.
		result := tx.Model(&changeRequestModel{}).
			Where("request_id = ? AND status = ?", strings.TrimSpace(commit.RequestID), string(commit.From)).
			Updates(map[string]any{
				"status":           string(commit.To),
				"rejection_reason": strings.TrimSpace(commit.RejectionReason),
				"decided_by":       strings.TrimSpace(commit.DecidedBy),
				"decided_at":       commit.DecidedAt.UTC(),
				"updated_at":       commit.DecidedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return requestSwapFailure(tx, commit.RequestID)
		}

		campaignResult := tx.Model(&campaignModel{}).
			Where("campaign_id = ?", commit.Campaign.CampaignID).
			Updates(campaignUpdates)
		if campaignResult.Error != nil {
			return campaignResult.Error
		}
		if campaignResult.RowsAffected == 0 {
			return domainerrors.ErrCampaignNotFound
		}

		if commit.History != nil {
			if err := tx.Create(historyModelFromEntry(commit.Campaign.CampaignID, *commit.History)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return classifyStoreError(err)
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return classifyStoreError(err)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, classifyStoreError(err)
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRequestNotFound
	}
	return nil
}

// lockFailureReason disambiguates a zero-row lock update: missing campaign
// versus a live proposal already holding the ref.
func lockFailureReason(tx *gorm.DB, campaignID string) error {
	var row campaignModel
	err := tx.Select("campaign_id").
		Where("campaign_id = ?", strings.TrimSpace(campaignID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrCampaignNotFound
		}
		return err
	}
	return domainerrors.ErrProposalLockHeld
}

// requestSwapFailure disambiguates a zero-row status swap: missing request
// versus a request that already left the expected state.
func requestSwapFailure(tx *gorm.DB, requestID string) error {
	var row changeRequestModel
	err := tx.Select("request_id").
		Where("request_id = ?", strings.TrimSpace(requestID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrRequestNotFound
		}
		return err
	}
	return domainerrors.ErrRequestNotPending
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// classifyStoreError downgrades infrastructure faults to the retryable
// sentinel while keeping row-level outcomes intact.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exceptions. Class 57: operator intervention.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57") {
			return domainerrors.ErrStoreUnavailable
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domainerrors.ErrStoreUnavailable
	}
	return err
}

type campaignModel struct {
	CampaignID             string           `gorm:"column:campaign_id;primaryKey"`
	AccountID              string           `gorm:"column:account_id;index"`
	Name                   string           `gorm:"column:name"`
	Status                 string           `gorm:"column:status"`
	Budget                 decimal.Decimal  `gorm:"column:budget;type:numeric(19,4)"`
	DailyLimit             *decimal.Decimal `gorm:"column:daily_limit;type:numeric(19,4)"`
	Cards                  json.RawMessage  `gorm:"column:cards;type:jsonb"`
	OutstandingProposalRef string           `gorm:"column:outstanding_proposal_ref"`
	RejectionReason        string           `gorm:"column:rejection_reason"`
	CreatedAt              time.Time        `gorm:"column:created_at"`
	UpdatedAt              time.Time        `gorm:"column:updated_at"`
}

func (campaignModel) TableName() string {
	return "campaigns"
}

type statusHistoryModel struct {
	HistoryID  string    `gorm:"column:history_id;primaryKey"`
	CampaignID string    `gorm:"column:campaign_id;index"`
	Status     string    `gorm:"column:status"`
	ActorID    string    `gorm:"column:actor_id"`
	ActorLabel string    `gorm:"column:actor_label"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
}

func (statusHistoryModel) TableName() string {
	return "campaign_status_history"
}

type changeRequestModel struct {
	RequestID       string          `gorm:"column:request_id;primaryKey"`
	CampaignID      string          `gorm:"column:campaign_id;index"`
	AccountID       string          `gorm:"column:account_id;index"`
	RequestedBy     string          `gorm:"column:requested_by"`
	Status          string          `gorm:"column:status"`
	Kind            string          `gorm:"column:kind"`
	Proposed        json.RawMessage `gorm:"column:proposed;type:jsonb"`
	AutoApproved    bool            `gorm:"column:auto_approved"`
	RejectionReason string          `gorm:"column:rejection_reason"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
	DecidedBy       string          `gorm:"column:decided_by"`
	DecidedAt       *time.Time      `gorm:"column:decided_at"`
}

func (changeRequestModel) TableName() string {
	return "change_requests"
}

type outboxModel struct {
	OutboxID     string          `gorm:"column:outbox_id;primaryKey"`
	EventType    string          `gorm:"column:event_type"`
	PartitionKey string          `gorm:"column:partition_key"`
	Payload      json.RawMessage `gorm:"column:payload;type:jsonb"`
	Status       string          `gorm:"column:status"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	PublishedAt  *time.Time      `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "workflow_outbox"
}

func campaignModelFromEntity(item entities.Campaign) (campaignModel, error) {
	cards, err := json.Marshal(cardDocumentsFromEntities(item.Cards))
	if err != nil {
		return campaignModel{}, err
	}
	return campaignModel{
		CampaignID:             strings.TrimSpace(item.CampaignID),
		AccountID:              strings.TrimSpace(item.AccountID),
		Name:                   strings.TrimSpace(item.Name),
		Status:                 string(item.Status),
		Budget:                 item.Budget,
		DailyLimit:             item.DailyLimit,
		Cards:                  cards,
		OutstandingProposalRef: strings.TrimSpace(item.OutstandingProposalRef),
		RejectionReason:        strings.TrimSpace(item.RejectionReason),
		CreatedAt:              item.CreatedAt.UTC(),
		UpdatedAt:              item.UpdatedAt.UTC(),
	}, nil
}

func campaignUpdatesFromEntity(item entities.Campaign) (map[string]any, error) {
	row, err := campaignModelFromEntity(item)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":                     row.Name,
		"status":                   row.Status,
		"budget":                   row.Budget,
		"daily_limit":              row.DailyLimit,
		"cards":                    row.Cards,
		"outstanding_proposal_ref": row.OutstandingProposalRef,
		"rejection_reason":         row.RejectionReason,
		"updated_at":               row.UpdatedAt,
	}, nil
}

func (m campaignModel) toEntity() (entities.Campaign, error) {
	var cards []cardDocument
	if len(m.Cards) > 0 {
		if err := json.Unmarshal(m.Cards, &cards); err != nil {
			return entities.Campaign{}, err
		}
	}
	return entities.Campaign{
		CampaignID:             m.CampaignID,
		AccountID:              m.AccountID,
		Name:                   m.Name,
		Status:                 entities.CampaignStatus(m.Status),
		Budget:                 m.Budget,
		DailyLimit:             m.DailyLimit,
		Cards:                  cardEntitiesFromDocuments(cards),
		OutstandingProposalRef: m.OutstandingProposalRef,
		RejectionReason:        m.RejectionReason,
		CreatedAt:              m.CreatedAt.UTC(),
		UpdatedAt:              m.UpdatedAt.UTC(),
	}, nil
}

func historyModelFromEntry(campaignID string, entry entities.StatusHistoryEntry) *statusHistoryModel {
	return &statusHistoryModel{
		HistoryID:  uuid.NewString(),
		CampaignID: strings.TrimSpace(campaignID),
		Status:     string(entry.Status),
		ActorID:    strings.TrimSpace(entry.ActorID),
		ActorLabel: strings.TrimSpace(entry.ActorLabel),
		OccurredAt: entry.OccurredAt.UTC(),
	}
}

func historyEntriesFromModels(rows []statusHistoryModel) []entities.StatusHistoryEntry {
	items := make([]entities.StatusHistoryEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.StatusHistoryEntry{
			OccurredAt: row.OccurredAt.UTC(),
			ActorID:    row.ActorID,
			ActorLabel: row.ActorLabel,
			Status:     entities.CampaignStatus(row.Status),
		})
	}
	return items
}

func changeRequestModelFromEntity(item entities.ChangeRequest) (changeRequestModel, error) {
	proposed, err := json.Marshal(patchDocumentFromEntity(item.Proposed))
	if err != nil {
		return changeRequestModel{}, err
	}
	var decidedAt *time.Time
	if item.DecidedAt != nil {
		timestamp := item.DecidedAt.UTC()
		decidedAt = &timestamp
	}
	return changeRequestModel{
		RequestID:       strings.TrimSpace(item.RequestID),
		CampaignID:      strings.TrimSpace(item.CampaignID),
		AccountID:       strings.TrimSpace(item.AccountID),
		RequestedBy:     strings.TrimSpace(item.RequestedBy),
		Status:          string(item.Status),
		Kind:            string(item.Kind),
		Proposed:        proposed,
		AutoApproved:    item.AutoApproved,
		RejectionReason: strings.TrimSpace(item.RejectionReason),
		CreatedAt:       item.CreatedAt.UTC(),
		UpdatedAt:       item.UpdatedAt.UTC(),
		DecidedBy:       strings.TrimSpace(item.DecidedBy),
		DecidedAt:       decidedAt,
	}, nil
}

func (m changeRequestModel) toEntity() (entities.ChangeRequest, error) {
	var proposed patchDocument
	if len(m.Proposed) > 0 {
		if err := json.Unmarshal(m.Proposed, &proposed); err != nil {
			return entities.ChangeRequest{}, err
		}
	}
	var decidedAt *time.Time
	if m.DecidedAt != nil {
		timestamp := m.DecidedAt.UTC()
		decidedAt = &timestamp
	}
	return entities.ChangeRequest{
		RequestID:       m.RequestID,
		CampaignID:      m.CampaignID,
		AccountID:       m.AccountID,
		RequestedBy:     m.RequestedBy,
		Status:          entities.RequestStatus(m.Status),
		Proposed:        proposed.toEntity(),
		Kind:            entities.ProposalKind(m.Kind),
		AutoApproved:    m.AutoApproved,
		RejectionReason: m.RejectionReason,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
		DecidedBy:       m.DecidedBy,
		DecidedAt:       decidedAt,
	}, nil
}

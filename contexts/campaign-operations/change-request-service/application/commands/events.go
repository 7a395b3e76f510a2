package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	"meridian/contexts/campaign-operations/change-request-service/ports"
)

// Event types the workflow publishes. Subject lines and message content are
// the notifier's concern; the three-way rejection distinction rides on the
// type plus the kind carried in the payload.
const (
	EventNewChangeRequest      = "newChangeRequest"
	EventChangeRequestApproved = "changeRequestApproved"
	EventChangeRequestRejected = "changeRequestRejected"
	EventCampaignApproved      = "campaignApproved"
	EventCampaignRejected      = "campaignRejected"
)

func newWorkflowEnvelope(
	eventID string,
	eventType string,
	campaign entities.Campaign,
	request entities.ChangeRequest,
	actorID string,
	occurredAt time.Time,
) (ports.EventEnvelope, error) {
	data, err := json.Marshal(map[string]any{
		"date": occurredAt.UTC().Format(time.RFC3339),
		"campaign": map[string]any{
			"id":     campaign.CampaignID,
			"name":   campaign.Name,
			"status": string(campaign.Status),
		},
		"changeRequest": map[string]any{
			"id":     request.RequestID,
			"status": string(request.Status),
			"kind":   string(request.Kind),
		},
		"actor": actorID,
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "change-request-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "campaign.id",
		PartitionKey:     campaign.CampaignID,
		Data:             data,
	}, nil
}

// emitWorkflowEvent writes the notification to the outbox. The state
// transition already committed, so failures here are logged and swallowed:
// a lost notification must never report the mutation as failed.
func emitWorkflowEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	idGen ports.IDGenerator,
	logger *slog.Logger,
	eventType string,
	campaign entities.Campaign,
	request entities.ChangeRequest,
	actorID string,
	occurredAt time.Time,
) {
	if outbox == nil {
		return
	}
	eventID, err := idGen.NewID(ctx)
	if err == nil {
		var envelope ports.EventEnvelope
		envelope, err = newWorkflowEnvelope(eventID, eventType, campaign, request, actorID, occurredAt)
		if err == nil {
			err = outbox.AppendOutbox(ctx, envelope)
		}
	}
	if err != nil {
		logger.Warn("workflow notification dropped",
			"event", "workflow_notification_dropped",
			"module", "campaign-operations/change-request-service",
			"layer", "application",
			"event_type", eventType,
			"campaign_id", campaign.CampaignID,
			"request_id", request.RequestID,
			"error", err.Error(),
		)
	}
}

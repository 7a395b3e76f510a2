package commands

import (
	"encoding/json"
	"time"

	"meridian/contexts/finance-core/credit-ledger-service/ports"
)

func newLedgerEnvelope(
	eventID string,
	eventType string,
	accountID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "credit-ledger-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "account_id",
		PartitionKey:     accountID,
		Data:             payload,
	}, nil
}

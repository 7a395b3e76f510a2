package queries

import (
	"context"
	"log/slog"
	"strings"

	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	"meridian/contexts/campaign-operations/change-request-service/ports"
)

type GetChangeRequestUseCase struct {
	Requests ports.ChangeRequestRepository
	Logger   *slog.Logger
}

func (uc GetChangeRequestUseCase) Execute(ctx context.Context, requestID string) (entities.ChangeRequest, error) {
	return uc.Requests.GetRequest(ctx, strings.TrimSpace(requestID))
}

package repository

import (
	"context"

	"archie/internal/domain/entity"
)

// CompletionGateway sends an ordered list of role-tagged messages to the language model.
// Implementations own timeout and retry; every failure is returned as *entity.CompletionError.
type CompletionGateway interface {
	Complete(ctx context.Context, messages []entity.Message) (string, error)
}

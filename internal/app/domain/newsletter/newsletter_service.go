package newsletter

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Subscribe(ctx context.Context, email string) (models.SubscribeOutcome, error)
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
}

func NewService(repo Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo}
}

// Subscribe is idempotent: an active subscriber stays as is, an inactive one
// is reactivated and anything else is inserted.
func (s *ServiceImpl) Subscribe(ctx context.Context, email string) (models.SubscribeOutcome, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	l := s.logger.With(zap.String("method", "Subscribe"), zap.String("email", email))

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.IsActive:
		return models.SubscribeExisting, nil
	case err == nil:
		if err := s.repo.Reactivate(ctx, email); err != nil && !errors.Is(err, models.ErrNotFound) {
			l.Error("Failed to reactivate subscriber", zap.Error(err))
			return "", err
		}
		l.Info("Subscriber reactivated")
		return models.SubscribeReactivated, nil
	case !errors.Is(err, models.ErrNotFound):
		l.Error("Failed to look up subscriber", zap.Error(err))
		return "", err
	}

	if _, err := s.repo.Insert(ctx, email); err != nil {
		// Lost a race with a concurrent subscribe for the same address.
		if errors.Is(err, models.ErrConflict) {
			return models.SubscribeExisting, nil
		}
		return "", err
	}
	l.Info("New subscriber")
	return models.SubscribeCreated, nil
}

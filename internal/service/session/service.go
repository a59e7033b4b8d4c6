package session

import (
	"context"

	"github.com/w-h-a/salesbot/store"
)

type Service struct {
	store store.Store
}

// GetOrCreate resolves an existing session id or mints a new session
// when id is empty.
func (s *Service) GetOrCreate(ctx context.Context, id string) (string, error) {
	return s.store.GetOrCreateSession(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]store.Session, error) {
	return s.store.ListSessions(ctx)
}

func (s *Service) History(ctx context.Context, id string) ([]store.Message, error) {
	return s.store.GetHistory(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteSession(ctx, id)
}

func New(
	store store.Store,
) *Service {
	return &Service{
		store: store,
	}
}

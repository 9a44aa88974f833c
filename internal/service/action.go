package service

import (
	"context"

	"github.com/BuzzLyutic/collab-board/internal/model"
	"github.com/BuzzLyutic/collab-board/internal/repo"
)

const maxRecentActions = 100

type ActionService struct {
	repo         repo.ActionRepository
	defaultLimit int
}

func NewActionService(repo repo.ActionRepository, defaultLimit int) *ActionService {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &ActionService{repo: repo, defaultLimit: defaultLimit}
}

// Recent returns the newest actions first.
func (s *ActionService) Recent(ctx context.Context, limit int) ([]model.Action, error) {
	if limit <= 0 || limit > maxRecentActions {
		limit = s.defaultLimit
	}
	return s.repo.Recent(ctx, limit)
}

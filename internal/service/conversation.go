package service

import (
	"context"

	apperrors "github.com/krishn-mehta/speak-code-build-sub000/internal/errors"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/repository"
)

// ConversationService manages the chat threads sites are grouped under.
type ConversationService struct {
	convRepo repository.ConversationRepository
}

func NewConversationService(convRepo repository.ConversationRepository) *ConversationService {
	return &ConversationService{convRepo: convRepo}
}

func (s *ConversationService) Create(ctx context.Context, ownerID, title string) (*model.Conversation, error) {
	if title == "" {
		title = "New conversation"
	}
	conv, err := s.convRepo.Create(ctx, model.CreateConversationParams{
		OwnerID: ownerID,
		Title:   title,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return conv, nil
}

func (s *ConversationService) Get(ctx context.Context, id, ownerID string) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if conv == nil {
		return nil, apperrors.NotFound("Conversation")
	}
	if conv.OwnerID != ownerID {
		return nil, apperrors.Forbidden("You do not own this conversation")
	}
	return conv, nil
}

func (s *ConversationService) List(ctx context.Context, ownerID string, limit, offset int) ([]model.Conversation, error) {
	convs, err := s.convRepo.FindByOwnerID(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return convs, nil
}

func (s *ConversationService) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.convRepo.Delete(ctx, id); err != nil {
		return apperrors.Database(err)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/metrics"
	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/repository"
)

// HistoryService records what each user watched.
type HistoryService struct {
	history repository.HistoryRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewHistoryService(history repository.HistoryRepository, logger *slog.Logger) *HistoryService {
	return &HistoryService{history: history, logger: logger, now: time.Now}
}

type RecordInput struct {
	MovieID string `json:"movieId"`
}

// Record notes that userID watched movieID now. Watching the same title
// again keeps the single existing row and moves its timestamp forward.
func (s *HistoryService) Record(ctx context.Context, userID string, in RecordInput) (*model.WatchEvent, error) {
	movieID := strings.TrimSpace(in.MovieID)
	if movieID == "" {
		return nil, apperror.ValidationFailed("movieId", "movieId is required")
	}

	event := &model.WatchEvent{
		UserID:    userID,
		MovieID:   movieID,
		WatchedAt: s.now().UTC(),
	}
	if err := s.history.Upsert(ctx, event); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/history: recording watch: %w", err)
	}

	metrics.WatchEventsTotal.Inc()
	s.logger.Debug("watch recorded",
		slog.String("userID", userID),
		slog.String("movieID", movieID),
	)
	return event, nil
}

// List returns the user's history, most recent first.
func (s *HistoryService) List(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	entries, err := s.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/history: listing history: %w", err)
	}
	return entries, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/repository"
)

const (
	dashboardMonths  = 6
	dashboardTopSize = 5
)

// StatsService builds the admin dashboard.
type StatsService struct {
	stats repository.StatsRepository
	now   func() time.Time
}

func NewStatsService(stats repository.StatsRepository) *StatsService {
	return &StatsService{stats: stats, now: time.Now}
}

// Dashboard returns totals, watch counts for the current and previous five
// calendar months (UTC, oldest first, empty months included) and the five
// most watched titles.
func (s *StatsService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	users, err := s.stats.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/stats: %w", err)
	}
	movies, err := s.stats.CountMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/stats: %w", err)
	}

	now := s.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(dashboardMonths - 1), 0)

	times, err := s.stats.WatchTimesSince(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("service/stats: %w", err)
	}

	top, err := s.stats.TopWatched(ctx, dashboardTopSize)
	if err != nil {
		return nil, fmt.Errorf("service/stats: %w", err)
	}

	return &model.Dashboard{
		TotalUsers:    users,
		TotalMovies:   movies,
		ViewersData:   monthlyViewers(first, times),
		PopularMovies: top,
	}, nil
}

// monthlyViewers buckets times into dashboardMonths months starting at first.
func monthlyViewers(first time.Time, times []time.Time) []model.MonthlyViewers {
	buckets := make([]model.MonthlyViewers, dashboardMonths)
	for i := range buckets {
		buckets[i].Name = first.AddDate(0, i, 0).Format("Jan")
	}
	for _, t := range times {
		t = t.UTC()
		i := (t.Year()-first.Year())*12 + int(t.Month()) - int(first.Month())
		if i >= 0 && i < dashboardMonths {
			buckets[i].Viewers++
		}
	}
	return buckets
}

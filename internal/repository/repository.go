package repository

import (
	"context"
	"time"

	"tradewatch/internal/models"
)

// Repository is the local key-value store behind user preferences and the
// recent-search list. Callers treat every method as failure-tolerant:
// errors are logged and the dashboard keeps rendering.
type Repository interface {
	GetPreference(ctx context.Context, key string) (*models.Preference, error)
	UpsertPreference(ctx context.Context, pref *models.Preference) error
	ListPreferences(ctx context.Context) ([]models.Preference, error)

	AddRecentSearch(ctx context.Context, term string, at time.Time) error
	RecentSearches(ctx context.Context, limit int) ([]models.RecentSearch, error)
	PruneRecentSearches(ctx context.Context, keep int) (int64, error)
	ClearRecentSearches(ctx context.Context) error
}

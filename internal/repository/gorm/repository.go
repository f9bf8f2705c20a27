package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradewatch/internal/models"
	"tradewatch/internal/repository"
)

type Repository struct {
	db *gorm.DB
}

var _ repository.Repository = (*Repository)(nil)

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetPreference(ctx context.Context, key string) (*models.Preference, error) {
	var pref models.Preference
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *Repository) UpsertPreference(ctx context.Context, pref *models.Preference) error {
	if pref == nil {
		return nil
	}
	if pref.UpdatedAt.IsZero() {
		pref.UpdatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(pref).Error
}

func (r *Repository) ListPreferences(ctx context.Context) ([]models.Preference, error) {
	var prefs []models.Preference
	err := r.db.WithContext(ctx).Order("key asc").Find(&prefs).Error
	return prefs, err
}

// AddRecentSearch records a search term. Re-searching an existing term
// moves it to the top instead of duplicating it.
func (r *Repository) AddRecentSearch(ctx context.Context, term string, at time.Time) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("term = ?", term).Delete(&models.RecentSearch{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.RecentSearch{Term: term, SearchedAt: at}).Error
	})
}

func (r *Repository) RecentSearches(ctx context.Context, limit int) ([]models.RecentSearch, error) {
	if limit <= 0 {
		limit = 20
	}
	var searches []models.RecentSearch
	err := r.db.WithContext(ctx).
		Order("searched_at desc").
		Limit(limit).
		Find(&searches).Error
	return searches, err
}

// PruneRecentSearches deletes everything beyond the newest keep entries
// and reports how many rows went away.
func (r *Repository) PruneRecentSearches(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		keep = 20
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.RecentSearch{}).
		Order("searched_at desc").
		Limit(keep).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("id NOT IN ?", ids).
		Delete(&models.RecentSearch{})
	return res.RowsAffected, res.Error
}

func (r *Repository) ClearRecentSearches(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.RecentSearch{}).Error
}

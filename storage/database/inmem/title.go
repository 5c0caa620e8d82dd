package inmemdb

import (
	"context"

	"github.com/projhub/portal/core/title"
)

type titleRepository struct {
	db *titleTable
}

var _ title.Repository = (*titleRepository)(nil) // interface compliance check

func NewTitleRepository(db *DB) *titleRepository {
	return &titleRepository{db: db.title}
}

func (repo *titleRepository) CreateTitle(_ context.Context, t title.Title) (title.Title, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[t.BatchNumber]; ok {
		return title.Title{}, title.NewExistsError(t.BatchNumber)
	}
	repo.db.table[t.BatchNumber] = &t
	return t, nil
}

func (repo *titleRepository) GetTitle(_ context.Context, batchNumber string) (title.Title, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[batchNumber]; ok {
		return *t, nil
	}
	return title.Title{}, title.ErrNotFound
}

func (repo *titleRepository) UpsertTitle(_ context.Context, t title.Title) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	_, exists := repo.db.table[t.BatchNumber]
	repo.db.table[t.BatchNumber] = &t
	return !exists, nil
}

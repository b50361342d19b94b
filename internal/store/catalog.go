package store

import (
	"context"
	"fmt"
)

// CatalogEntity is implemented by small settings entities (expense
// categories, payment terms). The generic functions below replace
// table-name-string CRUD with one compile-time-typed implementation.
type CatalogEntity interface {
	CatalogID() string
	CatalogName() string
}

// CreateCatalog inserts a catalog entry.
func CreateCatalog[T CatalogEntity](ctx context.Context, s *Store, entity *T) error {
	if err := s.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("creating catalog entry: %w", err)
	}
	return nil
}

// ListCatalog returns all entries of a catalog type, ordered by name.
func ListCatalog[T CatalogEntity](ctx context.Context, s *Store) ([]T, error) {
	var entities []T
	if err := s.db.WithContext(ctx).Order("name").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("listing catalog entries: %w", err)
	}
	return entities, nil
}

// GetCatalog fetches a catalog entry by ID.
func GetCatalog[T CatalogEntity](ctx context.Context, s *Store, id string) (T, error) {
	var entity T
	if err := s.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return entity, fmt.Errorf("loading catalog entry %s: %w", id, translate(err))
	}
	return entity, nil
}

// DeleteCatalog removes a catalog entry by ID.
func DeleteCatalog[T CatalogEntity](ctx context.Context, s *Store, id string) error {
	var entity T
	if err := s.db.WithContext(ctx).Delete(&entity, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting catalog entry %s: %w", id, err)
	}
	return nil
}

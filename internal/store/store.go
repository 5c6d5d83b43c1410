// Package store adapts gorm to the record-oriented persistence contract the
// storefront core is written against: find-many by predicate with paging,
// count, find-by-id, save and delete-by-id.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
)

// Predicate narrows a query. A nil Predicate matches every record.
type Predicate func(*gorm.DB) *gorm.DB

// Page bounds a FindMany call. Zero Limit means no limit.
type Page struct {
	Limit int
	Skip  int
}

// And combines predicates; all must hold.
func And(preds ...Predicate) Predicate {
	return func(tx *gorm.DB) *gorm.DB {
		for _, p := range preds {
			if p != nil {
				tx = p(tx)
			}
		}
		return tx
	}
}

type Store[T any] struct {
	db *gorm.DB
}

func New[T any](db *gorm.DB) *Store[T] {
	return &Store[T]{db: db}
}

// WithTx binds a copy of the store to tx.
func (s *Store[T]) WithTx(tx *gorm.DB) *Store[T] {
	return &Store[T]{db: tx}
}

func (s *Store[T]) DB() *gorm.DB {
	return s.db
}

func (s *Store[T]) query(ctx context.Context, pred Predicate) *gorm.DB {
	q := s.db.WithContext(ctx).Model(new(T))
	if pred != nil {
		q = pred(q)
	}
	return q
}

// FindMany returns matching records ordered by primary key unless the
// predicate sets its own order, so paging is stable across calls.
func (s *Store[T]) FindMany(ctx context.Context, pred Predicate, page Page, order ...string) ([]T, error) {
	q := s.query(ctx, pred)

	if len(order) == 0 {
		order = []string{"id"}
	}
	for _, o := range order {
		q = q.Order(o)
	}

	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	if page.Skip > 0 {
		q = q.Offset(page.Skip)
	}

	var out []T
	if err := q.Find(&out).Error; err != nil {
		return nil, apperr.Dependency(err, "failed to query records")
	}
	return out, nil
}

func (s *Store[T]) Count(ctx context.Context, pred Predicate) (int64, error) {
	var n int64
	if err := s.query(ctx, pred).Count(&n).Error; err != nil {
		return 0, apperr.Dependency(err, "failed to count records")
	}
	return n, nil
}

// FindByID returns nil, nil when no record has the id.
func (s *Store[T]) FindByID(ctx context.Context, id uint, preloads ...string) (*T, error) {
	q := s.db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}

	var rec T
	err := q.First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to load record")
	}
	return &rec, nil
}

// Save inserts or fully updates rec. Associations are not cascaded.
func (s *Store[T]) Save(ctx context.Context, rec *T) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Duplicate("record already exists")
		}
		return apperr.Dependency(err, "failed to save record")
	}
	return nil
}

// Update writes only the named columns of rec, so columns other writers own
// are never overwritten with a stale read.
func (s *Store[T]) Update(ctx context.Context, rec *T, columns ...string) error {
	if len(columns) == 0 {
		return apperr.Validation("no columns to update")
	}
	err := s.db.WithContext(ctx).Model(rec).Select(columns).Omit(clause.Associations).Updates(rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Duplicate("record already exists")
		}
		return apperr.Dependency(err, "failed to update record")
	}
	return nil
}

// Create inserts rec together with its has-many associations.
func (s *Store[T]) Create(ctx context.Context, rec *T) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Duplicate("record already exists")
		}
		return apperr.Dependency(err, "failed to create record")
	}
	return nil
}

func (s *Store[T]) DeleteByID(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(new(T), id).Error; err != nil {
		return apperr.Dependency(err, "failed to delete record")
	}
	return nil
}

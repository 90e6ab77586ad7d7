package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
)

// ErrNotFound is returned by every store when the record does not exist.
var ErrNotFound = errors.New("not found")

// ProductStore is the durable local product store the checkout path reads and
// writes synchronously. Services depend on this interface, not on the GORM
// implementation, enabling clean unit testing via stubs.
type ProductStore interface {
	Get(ctx context.Context, id int64) (*model.Product, error)
	Put(ctx context.Context, p *model.Product) error
	PutMany(ctx context.Context, products []model.Product) error
	Delete(ctx context.Context, id int64) error
	GetAll(ctx context.Context) ([]model.Product, error)
}

type productStore struct{ db *gorm.DB }

func NewProductStore(db *gorm.DB) ProductStore { return &productStore{db: db} }

func (s *productStore) Get(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *productStore) Put(ctx context.Context, p *model.Product) error {
	return s.db.WithContext(ctx).Save(p).Error
}

// PutMany upserts a batch in one statement — used by the catalog refresh and
// by the server-wins overwrite after reconciliation.
func (s *productStore) PutMany(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&products).Error
}

func (s *productStore) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Delete(&model.Product{}, id).Error
}

func (s *productStore) GetAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := s.db.WithContext(ctx).Order("id").Find(&products).Error
	return products, err
}

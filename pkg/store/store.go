// Package store persists assembled orders in PostgreSQL through gorm.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"orderscan/pkg/models"
)

// ErrNotFound is returned when no order has the requested id.
var ErrNotFound = errors.New("order not found")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Store reads and writes orders.
type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return New(db), nil
}

// New wraps an existing connection.
func New(db *gorm.DB) *Store { return &Store{db: db} }

// Migrate creates or updates the order tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&models.OrderRecord{}, &models.ItemRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Save stores an order with all of its rows.
func (s *Store) Save(ctx context.Context, o *models.Order) error {
	rec := models.NewOrderRecord(o)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save order %s: %w", o.ID, err)
	}
	return nil
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") })
}

// List returns the most recent orders first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var recs []models.OrderRecord
	err := withItems(s.db.WithContext(ctx)).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]*models.Order, len(recs))
	for i, r := range recs {
		out[i] = r.Order()
	}
	return out, nil
}

// Get returns the order with the given id.
func (s *Store) Get(ctx context.Context, id string) (*models.Order, error) {
	var rec models.OrderRecord
	err := withItems(s.db.WithContext(ctx)).Where("uuid = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return rec.Order(), nil
}

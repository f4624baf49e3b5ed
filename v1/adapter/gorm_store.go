package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/mirkobrombin/go-redlock/v1/cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultGormTable     = "redlock_kv"
	defaultGormOpTimeout = 5 * time.Second
)

// kvRow is the database model for one key-value pair.
type kvRow struct {
	Key   string `gorm:"primaryKey;column:key_id"`
	Value []byte `gorm:"column:value"`
}

// GormStore implements Store on top of a GORM-managed database. Values are
// serialized with the configured codec before hitting the table.
type GormStore[T any] struct {
	db      *gorm.DB
	table   string
	timeout time.Duration
	codec   cache.Codec
}

// GormOption configures a GormStore.
type GormOption func(*gormOptions)

type gormOptions struct {
	table   string
	timeout time.Duration
	codec   cache.Codec
}

// WithTable overrides the default table name.
func WithTable(name string) GormOption {
	return func(o *gormOptions) {
		if name != "" {
			o.table = name
		}
	}
}

// WithTimeout sets the per-operation timeout for database calls.
func WithTimeout(d time.Duration) GormOption {
	return func(o *gormOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithGormCodec overrides the default Gob codec.
func WithGormCodec(c cache.Codec) GormOption {
	return func(o *gormOptions) {
		if c != nil {
			o.codec = c
		}
	}
}

// NewGormStore returns a GormStore over db, creating the backing table if it
// does not exist yet.
func NewGormStore[T any](db *gorm.DB, opts ...GormOption) (*GormStore[T], error) {
	o := gormOptions{
		table:   defaultGormTable,
		timeout: defaultGormOpTimeout,
		codec:   cache.GobCodec{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if !db.Migrator().HasTable(o.table) {
		if err := db.Table(o.table).AutoMigrate(&kvRow{}); err != nil {
			return nil, err
		}
	}

	return &GormStore[T]{
		db:      db,
		table:   o.table,
		timeout: o.timeout,
		codec:   o.codec,
	}, nil
}

// Get implements Store.Get.
func (s *GormStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row kvRow
	err := s.db.WithContext(cctx).Table(s.table).First(&row, "key_id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	var v T
	if err := s.codec.Unmarshal(row.Value, &v); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Set implements Store.Set using an upsert on the key column.
func (s *GormStore[T]) Set(ctx context.Context, key string, value T) error {
	data, err := s.codec.Marshal(value)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := kvRow{Key: key, Value: data}
	return s.db.WithContext(cctx).Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
}

// Delete implements Store.Delete.
func (s *GormStore[T]) Delete(ctx context.Context, key string) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.WithContext(cctx).Table(s.table).Delete(&kvRow{}, "key_id = ?", key).Error
}

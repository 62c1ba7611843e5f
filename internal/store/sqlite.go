package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DocumentModel is the gorm mapping of the shared documents table.
type DocumentModel struct {
	Seq        int64  `gorm:"column:seq;primaryKey;autoIncrement"`
	Collection string `gorm:"column:collection;not null;uniqueIndex:idx_documents_collection_id"`
	DocID      string `gorm:"column:id;not null;uniqueIndex:idx_documents_collection_id"`
	Version    int64  `gorm:"column:version;not null;default:1"`
	Body       []byte `gorm:"column:body;not null"`
	UpdatedAt  time.Time
}

func (DocumentModel) TableName() string { return "documents" }

// SQLite is a single-file (or in-memory) document store for local layouts.
type SQLite struct {
	*docStore
	db *gorm.DB
}

// NewSQLite opens path, ":memory:" when empty, and migrates the schema.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying db: %w", err)
	}
	// one connection: writes serialize and ":memory:" stays a single database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&DocumentModel{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return &SQLite{docStore: &docStore{b: gormBackend{db: db}}, db: db}, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormBackend runs against the pool, or inside a transaction when tx is set.
type gormBackend struct {
	db *gorm.DB
	tx bool
}

func (b gormBackend) get(ctx context.Context, coll, id string) (document, error) {
	var m DocumentModel
	err := b.db.WithContext(ctx).Where("collection = ? AND id = ?", coll, id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return document{}, ErrNotFound
	}
	if err != nil {
		return document{}, err
	}
	return document{ID: m.DocID, Version: m.Version, Body: m.Body}, nil
}

func (b gormBackend) list(ctx context.Context, coll string) ([]document, error) {
	var ms []DocumentModel
	if err := b.db.WithContext(ctx).Where("collection = ?", coll).Order("seq").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]document, 0, len(ms))
	for _, m := range ms {
		out = append(out, document{ID: m.DocID, Version: m.Version, Body: m.Body})
	}
	return out, nil
}

func (b gormBackend) insert(ctx context.Context, coll, id string, body []byte) error {
	return b.inTx(ctx, func(tx backend) error {
		g := tx.(gormBackend)
		if _, err := g.get(ctx, coll, id); err == nil {
			return ErrConflict
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return g.db.WithContext(ctx).Create(&DocumentModel{Collection: coll, DocID: id, Version: 1, Body: body}).Error
	})
}

func (b gormBackend) upsert(ctx context.Context, coll, id string, body []byte) (int64, error) {
	var v int64
	err := b.inTx(ctx, func(tx backend) error {
		g := tx.(gormBackend)
		cur, err := g.get(ctx, coll, id)
		if errors.Is(err, ErrNotFound) {
			v = 1
			return g.db.WithContext(ctx).Create(&DocumentModel{Collection: coll, DocID: id, Version: 1, Body: body}).Error
		}
		if err != nil {
			return err
		}
		v = cur.Version + 1
		return g.swap(ctx, coll, id, cur.Version, body)
	})
	return v, err
}

func (b gormBackend) swap(ctx context.Context, coll, id string, expected int64, body []byte) error {
	res := b.db.WithContext(ctx).Model(&DocumentModel{}).
		Where("collection = ? AND id = ? AND version = ?", coll, id, expected).
		Updates(map[string]any{
			"body":       body,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := b.get(ctx, coll, id); err != nil {
		return err
	}
	return ErrConflict
}

func (b gormBackend) inTx(ctx context.Context, fn func(backend) error) error {
	if b.tx {
		return fn(b)
	}
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(gormBackend{db: tx, tx: true})
	})
}

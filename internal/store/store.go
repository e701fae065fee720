package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-authgate/assetgate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

// New opens the database, applies migrations and returns a ready Store.
// SQLite is limited to a single open connection so that transactions
// serialise writers the way row locks do on PostgreSQL.
func New(ctx context.Context, driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Auto migrate
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Asset{},
		&models.RedemptionCode{},
		&models.DownloadToken{},
		&models.DownloadAuditLog{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// RunInTx runs fn inside a database transaction. The Store handed to fn
// is bound to the transaction; fn must not use the outer Store.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Asset operations

func (s *Store) CreateAsset(ctx context.Context, asset *models.Asset) error {
	return s.db.WithContext(ctx).Create(asset).Error
}

func (s *Store) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &asset, nil
}

// DeleteAsset removes an asset together with its codes and tokens
func (s *Store) DeleteAsset(ctx context.Context, id int64) error {
	return s.RunInTx(ctx, func(tx *Store) error {
		if _, err := tx.DeleteCodesByAsset(ctx, id); err != nil {
			return err
		}
		if err := tx.db.Where("asset_id = ?", id).Delete(&models.DownloadToken{}).Error; err != nil {
			return err
		}
		return tx.db.Where("id = ?", id).Delete(&models.Asset{}).Error
	})
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// now is overridable so tests can pin time-based queries
var now = time.Now

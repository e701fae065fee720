package store

import (
	"context"
	"time"

	"github.com/go-authgate/assetgate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateRedemptionCodes inserts a batch of codes atomically
func (s *Store) CreateRedemptionCodes(ctx context.Context, codes []*models.RedemptionCode) error {
	if len(codes) == 0 {
		return ErrCodeBatchEmpty
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(codes).Error
	})
}

// GetCodeCandidates returns the codes of an asset sharing a lookup prefix.
// With forUpdate the rows are locked until the surrounding transaction ends.
func (s *Store) GetCodeCandidates(
	ctx context.Context,
	assetID int64,
	prefix string,
	forUpdate bool,
) ([]*models.RedemptionCode, error) {
	q := s.db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var codes []*models.RedemptionCode
	if err := q.Where("asset_id = ? AND code_prefix = ?", assetID, prefix).
		Order("id ASC").
		Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// MarkCodeRedeemed binds a never-used code to its first redeemer
func (s *Store) MarkCodeRedeemed(
	ctx context.Context,
	id int64,
	userID *int64,
	usedAt, expiresAt time.Time,
) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.RedemptionCode{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]any{
			"redeemer_user_id": userID,
			"is_used":          true,
			"used_at":          usedAt,
			"expires_at":       expiresAt,
			"download_count":   1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementCodeDownload consumes one re-download unit of a used code.
// The update only applies while the window is open and units remain.
func (s *Store) IncrementCodeDownload(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.RedemptionCode{}).
		Where("id = ? AND is_used = ? AND expires_at > ? AND download_count < max_downloads",
			id, true, at).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DecrementCodeDownload returns one download unit to a used code whose
// token could not be issued.
func (s *Store) DecrementCodeDownload(ctx context.Context, id int64) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.RedemptionCode{}).
		Where("id = ? AND is_used = ? AND download_count > 0", id, true).
		UpdateColumn("download_count", gorm.Expr("download_count - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountCodesByAsset returns how many codes exist for an asset, used or not
func (s *Store) CountCodesByAsset(ctx context.Context, assetID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.RedemptionCode{}).
		Where("asset_id = ?", assetID).
		Count(&count).Error
	return count, err
}

func (s *Store) GetRedemptionCode(ctx context.Context, id int64) (*models.RedemptionCode, error) {
	var code models.RedemptionCode
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&code).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &code, nil
}

// GetValidRedemption returns the most recent code the user redeemed for
// the asset that still has an open window and remaining downloads.
func (s *Store) GetValidRedemption(
	ctx context.Context,
	userID, assetID int64,
) (*models.RedemptionCode, error) {
	var code models.RedemptionCode
	err := s.db.WithContext(ctx).
		Where("redeemer_user_id = ? AND asset_id = ? AND is_used = ?", userID, assetID, true).
		Where("expires_at > ? AND download_count < max_downloads", now()).
		Order("used_at DESC").
		First(&code).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &code, nil
}

func (s *Store) ListCodesByAsset(ctx context.Context, assetID int64) ([]models.RedemptionCode, error) {
	var codes []models.RedemptionCode
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at ASC, id ASC").
		Find(&codes).Error
	return codes, err
}

func (s *Store) DeleteCodesByAsset(ctx context.Context, assetID int64) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Delete(&models.RedemptionCode{})
	return result.RowsAffected, result.Error
}

// CountUnusedCodes returns the number of codes never redeemed
func (s *Store) CountUnusedCodes(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.RedemptionCode{}).
		Where("is_used = ?", false).
		Count(&count).Error
	return count, err
}

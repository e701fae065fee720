package store

import (
	"context"
	"time"

	"github.com/go-authgate/assetgate/internal/models"
)

func (s *Store) CreateDownloadToken(ctx context.Context, token *models.DownloadToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

// GetDownloadToken looks a token up by its hash and nonce
func (s *Store) GetDownloadToken(
	ctx context.Context,
	tokenHash, nonce string,
) (*models.DownloadToken, error) {
	var token models.DownloadToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND nonce = ?", tokenHash, nonce).
		First(&token).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &token, nil
}

func (s *Store) GetDownloadTokenByHash(
	ctx context.Context,
	tokenHash string,
) (*models.DownloadToken, error) {
	var token models.DownloadToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &token, nil
}

// ConsumeDownloadToken marks an unconsumed, unexpired token as consumed in
// one conditional update. It reports false when no row matched.
func (s *Store) ConsumeDownloadToken(ctx context.Context, tokenHash string, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.DownloadToken{}).
		Where("token_hash = ? AND consumed_at IS NULL AND expires_at > ?", tokenHash, at).
		Update("consumed_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteExpiredDownloadTokens removes tokens past expiry, consumed or not
func (s *Store) DeleteExpiredDownloadTokens(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", before).
		Delete(&models.DownloadToken{})
	return result.RowsAffected, result.Error
}

// CountActiveDownloadTokens returns tokens that are still redeemable
func (s *Store) CountActiveDownloadTokens(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.DownloadToken{}).
		Where("consumed_at IS NULL AND expires_at > ?", now()).
		Count(&count).Error
	return count, err
}

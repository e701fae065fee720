package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/models"
	"github.com/go-authgate/assetgate/internal/store"
	"github.com/go-authgate/assetgate/internal/util"
)

const (
	codePrefixLen = 4
	maxCodeLength = 64

	// Redemption outcomes, also used as metric labels
	RedemptionFirstUse   = "first_use"
	RedemptionRedownload = "redownload"
	RedemptionRejected   = "rejected"

	// Eligibility reasons
	ReasonNotRedeemed   = "not_redeemed"
	ReasonWindowExpired = "window_expired"
	ReasonLimitReached  = "download_limit_reached"
)

var codePattern = regexp.MustCompile(`^DL\d{3,}-[A-F0-9]{8}-[A-F0-9]{2}$`)

// GeneratedCode pairs a freshly created record with its plaintext.
// The plaintext is only available here, once.
type GeneratedCode struct {
	Code   string
	Record *models.RedemptionCode
}

// CodeResult is returned by ValidateCode and RedeemCode
type CodeResult struct {
	Verdict
	Record  *models.RedemptionCode
	Outcome string
}

// Eligibility describes whether a used code may still be downloaded again
type Eligibility struct {
	Can       bool
	Reason    string
	Remaining int
	ExpiresAt *time.Time
}

type AssetCodeService struct {
	store   *store.Store
	config  *config.Config
	metrics core.Recorder
	now     func() time.Time
}

func NewAssetCodeService(s *store.Store, cfg *config.Config, m core.Recorder) *AssetCodeService {
	return &AssetCodeService{store: s, config: cfg, metrics: m, now: time.Now}
}

// GenerateCodes creates quantity new codes for an asset and returns their
// plaintext. Nothing but the hash and prefix is persisted.
func (s *AssetCodeService) GenerateCodes(
	ctx context.Context,
	assetID int64,
	quantity int,
) ([]GeneratedCode, error) {
	if quantity < 1 || quantity > s.config.MaxCodesPerBatch {
		return nil, ErrInvalidQuantity
	}
	if assetID < 1 {
		return nil, ErrMalformedInput
	}
	if limit := s.config.MaxCodesPerAsset; limit > 0 {
		existing, err := s.store.CountCodesByAsset(ctx, assetID)
		if err != nil {
			s.metrics.RecordDatabaseQueryError("count_codes_by_asset")
			return nil, err
		}
		if existing+int64(quantity) > int64(limit) {
			return nil, ErrCodeLimitReached
		}
	}

	prefix := fmt.Sprintf("DL%03d", assetID)
	generated := make([]GeneratedCode, 0, quantity)
	records := make([]*models.RedemptionCode, 0, quantity)

	for range quantity {
		randomBytes, err := util.CryptoRandomBytes(4)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}
		random := strings.ToUpper(hex.EncodeToString(randomBytes))
		body := prefix + "-" + random
		code := body + "-" + s.checksum(body)

		salt, err := util.CryptoRandomString(20)
		if err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}

		record := &models.RedemptionCode{
			AssetID:      assetID,
			Code:         code, // not saved (gorm:"-")
			CodeHash:     s.hashCode(code, salt),
			CodeSalt:     salt,
			CodePrefix:   code[:codePrefixLen],
			MaxDownloads: s.config.DefaultMaxDownloads,
		}
		records = append(records, record)
		generated = append(generated, GeneratedCode{Code: code, Record: record})
	}

	if err := s.store.CreateRedemptionCodes(ctx, records); err != nil {
		s.metrics.RecordDatabaseQueryError("create_redemption_codes")
		return nil, err
	}

	s.metrics.RecordCodesGenerated(quantity)
	return generated, nil
}

// ValidateFormat checks the shape of code and its checksum. It says nothing
// about whether the code exists.
func (s *AssetCodeService) ValidateFormat(code string) bool {
	if len(code) > maxCodeLength || !codePattern.MatchString(code) {
		return false
	}
	idx := strings.LastIndexByte(code, '-')
	return util.ConstantTimeEqual(s.checksum(code[:idx]), code[idx+1:])
}

// ValidateCode reports whether code is currently usable for assetID without
// changing any state.
func (s *AssetCodeService) ValidateCode(ctx context.Context, code string, assetID int64) CodeResult {
	code = normalizeCode(code)
	if !s.ValidateFormat(code) {
		return CodeResult{Verdict: reject(ErrMalformedInput, "invalid_format")}
	}

	candidates, err := s.store.GetCodeCandidates(ctx, assetID, code[:codePrefixLen], false)
	if err != nil {
		s.metrics.RecordDatabaseQueryError("get_code_candidates")
		return CodeResult{Verdict: reject(ErrStorageUnavailable, "lookup_failed")}
	}

	record := s.matchCandidate(candidates, code)
	if record == nil {
		return CodeResult{Verdict: reject(ErrNotFoundOrExhausted, "not_found")}
	}
	if !record.IsUsed {
		return CodeResult{Verdict: accept(), Record: record}
	}
	if e := s.CheckRedownloadEligibility(record); !e.Can {
		return CodeResult{Verdict: reject(ErrNotFoundOrExhausted, e.Reason), Record: record}
	}
	return CodeResult{Verdict: accept(), Record: record}
}

// RedeemCode binds an unused code to userID, or consumes one re-download of
// an already used one. The candidate rows stay locked from lookup to update.
func (s *AssetCodeService) RedeemCode(
	ctx context.Context,
	code string,
	assetID, userID int64,
) CodeResult {
	start := s.now()
	result := s.redeem(ctx, code, assetID, userID)
	if result.OK {
		s.metrics.RecordCodeRedemption(result.Outcome, s.now().Sub(start))
	} else {
		s.metrics.RecordCodeRedemption(RedemptionRejected, s.now().Sub(start))
	}
	return result
}

func (s *AssetCodeService) redeem(ctx context.Context, code string, assetID, userID int64) CodeResult {
	code = normalizeCode(code)
	if !s.ValidateFormat(code) {
		return CodeResult{Verdict: reject(ErrMalformedInput, "invalid_format")}
	}

	var result CodeResult
	err := s.store.RunInTx(ctx, func(tx *store.Store) error {
		candidates, err := tx.GetCodeCandidates(ctx, assetID, code[:codePrefixLen], true)
		if err != nil {
			return err
		}

		record := s.matchCandidate(candidates, code)
		if record == nil {
			result = CodeResult{Verdict: reject(ErrNotFoundOrExhausted, "not_found")}
			return nil
		}

		now := s.now()
		if !record.IsUsed {
			expiresAt := now.Add(s.config.RedownloadWindow)
			ok, err := tx.MarkCodeRedeemed(ctx, record.ID, userIDPtr(userID), now, expiresAt)
			if err != nil {
				return err
			}
			if !ok {
				result = CodeResult{Verdict: reject(ErrNotFoundOrExhausted, "lost_race"), Record: record}
				return nil
			}
			record.IsUsed = true
			record.RedeemerUserID = userIDPtr(userID)
			record.UsedAt = &now
			record.ExpiresAt = &expiresAt
			record.DownloadCount = 1
			result = CodeResult{Verdict: accept(), Record: record, Outcome: RedemptionFirstUse}
			return nil
		}

		if e := checkRedownloadEligibility(record, now); !e.Can {
			result = CodeResult{Verdict: reject(ErrNotFoundOrExhausted, e.Reason), Record: record}
			return nil
		}
		ok, err := tx.IncrementCodeDownload(ctx, record.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			result = CodeResult{Verdict: reject(ErrNotFoundOrExhausted, ReasonLimitReached), Record: record}
			return nil
		}
		record.DownloadCount++
		result = CodeResult{Verdict: accept(), Record: record, Outcome: RedemptionRedownload}
		return nil
	})
	if err != nil {
		s.metrics.RecordDatabaseQueryError("redeem_code")
		return CodeResult{Verdict: reject(ErrStorageUnavailable, "transaction_failed")}
	}
	return result
}

// CheckRedownloadEligibility decides whether a used code may be downloaded
// again right now.
func (s *AssetCodeService) CheckRedownloadEligibility(record *models.RedemptionCode) Eligibility {
	return checkRedownloadEligibility(record, s.now())
}

func checkRedownloadEligibility(record *models.RedemptionCode, now time.Time) Eligibility {
	e := Eligibility{ExpiresAt: record.ExpiresAt, Remaining: record.RemainingDownloads()}
	switch {
	case !record.IsUsed:
		e.Reason = ReasonNotRedeemed
	case record.ExpiresAt == nil || record.IsWindowExpired(now):
		e.Reason = ReasonWindowExpired
	case record.DownloadCount >= record.MaxDownloads:
		e.Reason = ReasonLimitReached
	default:
		e.Can = true
	}
	return e
}

// HasValidRedemption reports whether the user holds a redemption for the
// asset that still allows a download.
func (s *AssetCodeService) HasValidRedemption(ctx context.Context, userID, assetID int64) bool {
	record, err := s.GetValidRedemption(ctx, userID, assetID)
	return err == nil && record != nil
}

func (s *AssetCodeService) GetValidRedemption(
	ctx context.Context,
	userID, assetID int64,
) (*models.RedemptionCode, error) {
	if userID == 0 {
		return nil, ErrNotFoundOrExhausted
	}
	record, err := s.store.GetValidRedemption(ctx, userID, assetID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrNotFoundOrExhausted
		}
		return nil, err
	}
	return record, nil
}

// ConsumeRedownload takes one download unit from an already redeemed code.
// It reports false when the window closed or no units remain.
func (s *AssetCodeService) ConsumeRedownload(ctx context.Context, recordID int64) (bool, error) {
	ok, err := s.store.IncrementCodeDownload(ctx, recordID, s.now())
	if err != nil {
		s.metrics.RecordDatabaseQueryError("increment_code_download")
		return false, err
	}
	if ok {
		s.metrics.RecordCodeRedemption(RedemptionRedownload, 0)
	}
	return ok, nil
}

// RefundDownload gives back a unit taken by RedeemCode or ConsumeRedownload
// when no token could be issued for it. The redemption binding and its
// window stay as they are.
func (s *AssetCodeService) RefundDownload(ctx context.Context, recordID int64) error {
	ok, err := s.store.DecrementCodeDownload(ctx, recordID)
	if err != nil {
		s.metrics.RecordDatabaseQueryError("decrement_code_download")
		return fmt.Errorf("failed to refund download for code %d: %w", recordID, err)
	}
	if !ok {
		return fmt.Errorf("failed to refund download for code %d: %w", recordID, ErrNotFoundOrExhausted)
	}
	return nil
}

func (s *AssetCodeService) ListCodes(ctx context.Context, assetID int64) ([]models.RedemptionCode, error) {
	return s.store.ListCodesByAsset(ctx, assetID)
}

// DeleteCodesForAsset removes every code of an asset (asset teardown)
func (s *AssetCodeService) DeleteCodesForAsset(ctx context.Context, assetID int64) (int64, error) {
	return s.store.DeleteCodesByAsset(ctx, assetID)
}

func (s *AssetCodeService) CountUnusedCodes(ctx context.Context) (int64, error) {
	return s.store.CountUnusedCodes(ctx)
}

// matchCandidate walks every candidate so the time spent does not depend on
// which row matched.
func (s *AssetCodeService) matchCandidate(
	candidates []*models.RedemptionCode,
	code string,
) *models.RedemptionCode {
	var match *models.RedemptionCode
	for _, c := range candidates {
		if util.ConstantTimeEqual(c.CodeHash, s.hashCode(code, c.CodeSalt)) && match == nil {
			match = c
		}
	}
	if match != nil {
		match.Code = code
	}
	return match
}

// checksum is a shape filter, not an authenticator
func (s *AssetCodeService) checksum(body string) string {
	return util.CRC32Hex(body + s.config.CodeHashSecret)[:2]
}

func (s *AssetCodeService) hashCode(code, salt string) string {
	return util.HashToken(code, salt+s.config.CodeHashSecret)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func userIDPtr(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

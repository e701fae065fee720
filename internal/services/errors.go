package services

import (
	"errors"

	"github.com/go-authgate/assetgate/internal/models"
)

var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrNotFoundOrExhausted = errors.New("credential not found, used up or expired")
	ErrRateLimited         = errors.New("rate limited")
	ErrReplayDetected      = errors.New("credential already consumed")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInvalidQuantity     = errors.New("quantity out of range")
	ErrCodeLimitReached    = errors.New("asset already holds the maximum number of codes")
)

// PublicInvalidOrExpired is the only rejection ever shown to clients of the
// code and token endpoints.
const PublicInvalidOrExpired = "invalid_or_expired"

// Verdict is the outcome of a credential check. Public is what the caller may
// serialise; Cause and Detail are for the audit log only.
type Verdict struct {
	OK     bool
	Public string
	Cause  error
	Detail string
}

func accept() Verdict {
	return Verdict{OK: true}
}

func reject(cause error, detail string) Verdict {
	return Verdict{
		Public: PublicInvalidOrExpired,
		Cause:  cause,
		Detail: detail,
	}
}

// AuditDetails renders the internal rejection reason for the audit log
func (v Verdict) AuditDetails() models.AuditDetails {
	if v.OK {
		return nil
	}
	d := models.AuditDetails{"reason": v.Detail}
	if v.Cause != nil {
		d["cause"] = v.Cause.Error()
	}
	return d
}

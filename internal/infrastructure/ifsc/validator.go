package ifsc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	stderrors "errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/redis"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
)

//go:generate mockgen -source=validator.go -destination=mocks/validator_mock.go -package=mocks

const cacheTTL = 24 * time.Hour

type BankDetails struct {
	IFSC    string `json:"IFSC"`
	Bank    string `json:"BANK"`
	Branch  string `json:"BRANCH"`
	City    string `json:"CITY"`
	State   string `json:"STATE"`
	Address string `json:"ADDRESS"`
}

type Validator interface {
	Validate(ctx context.Context, code string) (*BankDetails, error)
}

// HTTPValidator looks codes up in a Razorpay-compatible IFSC directory.
// Known codes are cached in Redis; unknown codes are not.
type HTTPValidator struct {
	baseURL    string
	client     *http.Client
	cache      redis.RedisClient
	maxRetries uint64
}

func NewHTTPValidator(baseURL string, timeout time.Duration, cache redis.RedisClient) *HTTPValidator {
	return &HTTPValidator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		cache:      cache,
		maxRetries: 2,
	}
}

func cacheKey(code string) string {
	return "ifsc:" + code
}

// Validate returns the branch behind code, or an error wrapping
// ErrExternalValidation when the code is unknown or cannot be checked.
func (v *HTTPValidator) Validate(ctx context.Context, code string) (*BankDetails, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: code is empty", pkgerrors.ErrExternalValidation)
	}

	if cached, err := v.cache.Get(ctx, cacheKey(code)); err == nil {
		var details BankDetails
		if err := json.Unmarshal([]byte(cached), &details); err == nil {
			slog.Debug("IFSC fetched from Redis", "ifsc", code)
			return &details, nil
		}
		slog.Warn("failed to unmarshal cached IFSC", "ifsc", code)
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Warn("failed to read IFSC cache", "ifsc", code, "error", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), v.maxRetries), ctx)
	details, err := backoff.RetryWithData(func() (*BankDetails, error) {
		return v.lookup(ctx, code)
	}, policy)
	if err != nil {
		slog.Error("IFSC validation failed", "ifsc", code, "error", err)
		if stderrors.Is(err, pkgerrors.ErrExternalValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrExternalValidation, err)
	}

	if payload, err := json.Marshal(details); err == nil {
		if err := v.cache.Set(ctx, cacheKey(code), string(payload), cacheTTL); err != nil {
			slog.Warn("failed to cache IFSC", "ifsc", code, "error", err)
		}
	}
	slog.Info("IFSC validated", "ifsc", code, "bank", details.Bank, "branch", details.Branch)
	return details, nil
}

func (v *HTTPValidator) lookup(ctx context.Context, code string) (*BankDetails, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("directory returned %d", resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", pkgerrors.ErrExternalValidation, code))
	}

	var details BankDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode IFSC response: %w", err))
	}
	if details.IFSC == "" {
		details.IFSC = code
	}
	return &details, nil
}

package admin

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/admin-api-client/pkg/pagination"
	"github.com/Sternrassler/admin-api-client/pkg/table"
)

const promoCodesPath = "/admin/promo-codes"

// Promo code statuses.
const (
	PromoStatusActive   = "active"
	PromoStatusDisabled = "disabled"
)

// PromoCode is a redeemable bonus code.
type PromoCode struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	BonusAmount float64    `json:"bonus_amount"`
	MaxUses     int        `json:"max_uses"`
	UsedCount   int        `json:"used_count"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PromoCodeUsage records one user redeeming a code. A user redeems a code
// at most once.
type PromoCodeUsage struct {
	ID          int64      `json:"id"`
	PromoCodeID int64      `json:"promo_code_id"`
	UserID      int64      `json:"user_id"`
	BonusAmount float64    `json:"bonus_amount"`
	UsedAt      time.Time  `json:"used_at"`
	User        *UsageUser `json:"user,omitempty"`
}

// UsageUser is the user summary embedded in a usage record.
type UsageUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// CreatePromoCodeRequest creates a code. An empty Code lets the server
// generate one.
type CreatePromoCodeRequest struct {
	Code        string     `json:"code,omitempty"`
	BonusAmount float64    `json:"bonus_amount"`
	MaxUses     int        `json:"max_uses"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// UpdatePromoCodeRequest changes the non-nil fields of a code.
type UpdatePromoCodeRequest struct {
	Code        *string    `json:"code,omitempty"`
	BonusAmount *float64   `json:"bonus_amount,omitempty"`
	MaxUses     *int       `json:"max_uses,omitempty"`
	Status      *string    `json:"status,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// PromoFilters narrows the promo code list. Empty fields are not sent.
type PromoFilters struct {
	Status string
	Search string
}

// Values renders the filters as query parameters.
func (f PromoFilters) Values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return v
}

// Promo wraps the promo code endpoints.
type Promo struct {
	api Caller
}

// NewPromo creates the promo code endpoints on api.
func NewPromo(api Caller) *Promo {
	return &Promo{api: api}
}

// List returns one page of promo codes.
func (p *Promo) List(ctx context.Context, page, pageSize int, filters PromoFilters) (*pagination.Page[PromoCode], error) {
	var out pagination.Page[PromoCode]
	if err := p.api.Get(ctx, promoCodesPath, pagination.Query(page, pageSize, filters.Values()), &out); err != nil {
		return nil, fmt.Errorf("list promo codes: %w", err)
	}
	return &out, nil
}

// GetByID returns one promo code.
func (p *Promo) GetByID(ctx context.Context, id int64) (*PromoCode, error) {
	var out PromoCode
	if err := p.api.Get(ctx, promoCodePath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get promo code %d: %w", id, err)
	}
	return &out, nil
}

// Create creates a promo code.
func (p *Promo) Create(ctx context.Context, req CreatePromoCodeRequest) (*PromoCode, error) {
	var out PromoCode
	if err := p.api.Post(ctx, promoCodesPath, req, &out); err != nil {
		return nil, fmt.Errorf("create promo code: %w", err)
	}
	return &out, nil
}

// Update changes a promo code.
func (p *Promo) Update(ctx context.Context, id int64, req UpdatePromoCodeRequest) (*PromoCode, error) {
	var out PromoCode
	if err := p.api.Put(ctx, promoCodePath(id), req, &out); err != nil {
		return nil, fmt.Errorf("update promo code %d: %w", id, err)
	}
	return &out, nil
}

// Delete removes a promo code.
func (p *Promo) Delete(ctx context.Context, id int64) (*MessageResponse, error) {
	var out MessageResponse
	if err := p.api.Delete(ctx, promoCodePath(id), &out); err != nil {
		return nil, fmt.Errorf("delete promo code %d: %w", id, err)
	}
	return &out, nil
}

// Usages returns one page of redemptions of a promo code.
func (p *Promo) Usages(ctx context.Context, id int64, page, pageSize int) (*pagination.Page[PromoCodeUsage], error) {
	var out pagination.Page[PromoCodeUsage]
	if err := p.api.Get(ctx, promoCodePath(id)+"/usages", pagination.Query(page, pageSize, nil), &out); err != nil {
		return nil, fmt.Errorf("list usages of promo code %d: %w", id, err)
	}
	return &out, nil
}

// TableFetch adapts List to a table loader keyed by PromoFilters.
func (p *Promo) TableFetch() table.FetchFunc[PromoCode, PromoFilters] {
	return func(ctx context.Context, filters PromoFilters, page, pageSize int) (*pagination.Page[PromoCode], error) {
		return p.List(ctx, page, pageSize, filters)
	}
}

// Pages adapts List to the batch fetcher for a fixed filter set.
func (p *Promo) Pages(filters PromoFilters) pagination.PageFetcher[PromoCode] {
	return pagination.PageFetcherFunc[PromoCode](func(ctx context.Context, page, pageSize int) (*pagination.Page[PromoCode], error) {
		return p.List(ctx, page, pageSize, filters)
	})
}

func promoCodePath(id int64) string {
	return fmt.Sprintf("%s/%d", promoCodesPath, id)
}

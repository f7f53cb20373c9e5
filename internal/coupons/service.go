package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wallcraft/storefront-backend/pkg/db"
	"github.com/wallcraft/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

type repository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	List(ctx context.Context) ([]models.Coupon, error)
	DeleteByCode(ctx context.Context, code string) (int64, error)
}

// Result is the outcome of validating a code. DiscountPercent is zero when invalid.
type Result struct {
	Code            string `json:"code,omitempty"`
	Valid           bool   `json:"valid"`
	DiscountPercent int    `json:"discountPercent,omitempty"`
}

// CreateInput is the admin payload for a new coupon.
type CreateInput struct {
	Code            string
	DiscountPercent int
	ExpirationDate  string
	ExpirationTime  string
}

// Service validates coupons for checkout and manages them for admins.
type Service interface {
	Validate(ctx context.Context, code string, now time.Time) (Result, error)
	Create(ctx context.Context, input CreateInput) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Delete(ctx context.Context, code string) error
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Validate(ctx context.Context, code string, now time.Time) (Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Result{Valid: false}, nil
	}
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
	}
	if coupon == nil || !IsValid(*coupon, now) {
		return Result{Code: code, Valid: false}, nil
	}
	return Result{Code: coupon.Code, Valid: true, DiscountPercent: coupon.DiscountPercent}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if input.DiscountPercent < 0 || input.DiscountPercent > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100").
			WithDetails(map[string]any{"discountPercent": input.DiscountPercent})
	}
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(input.ExpirationDate), time.UTC)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiration date must be YYYY-MM-DD")
	}
	clock := strings.TrimSpace(input.ExpirationTime)
	if clock == "" {
		clock = "00:00:00"
	}
	if _, ok := clockOffset(clock); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiration time must be HH:MM:SS")
	}

	coupon := &models.Coupon{
		Code:            code,
		DiscountPercent: input.DiscountPercent,
		ExpirationDate:  date,
		ExpirationTime:  clock,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) List(ctx context.Context) ([]models.Coupon, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return rows, nil
}

func (s *service) Delete(ctx context.Context, code string) error {
	affected, err := s.repo.DeleteByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return nil
}

// ExpiresAt is the expiration date (UTC midnight) plus the time-of-day offset.
// An unparsable time-of-day counts as midnight.
func ExpiresAt(coupon models.Coupon) time.Time {
	d := coupon.ExpirationDate.UTC()
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	offset, _ := clockOffset(coupon.ExpirationTime)
	return midnight.Add(offset)
}

// IsValid reports whether now is strictly before the coupon's expiry.
func IsValid(coupon models.Coupon, now time.Time) bool {
	return now.UTC().Before(ExpiresAt(coupon))
}

func clockOffset(raw string) (time.Duration, bool) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, true
}

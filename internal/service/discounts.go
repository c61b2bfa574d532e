package service

import (
	"context"
	"fmt"
	"strings"

	"gallery-shop/internal/models"
	"gallery-shop/internal/util"

	"go.uber.org/zap"
)

// DiscountRegistry resolves promotional codes. A code that does not exist or
// is inactive is an ordinary "not found" answer, not an error.
type DiscountRegistry struct {
	repo   DiscountRepository
	logger *zap.Logger
}

// NewDiscountRegistry creates a new discount registry
func NewDiscountRegistry(repo DiscountRepository) *DiscountRegistry {
	return &DiscountRegistry{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// Lookup returns the active discount for code. Codes are matched after
// trimming surrounding whitespace.
func (r *DiscountRegistry) Lookup(ctx context.Context, code string) (*models.Discount, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false, nil
	}

	discount, err := r.repo.GetDiscountByCode(ctx, code)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up discount: %w", err)
	}
	if discount == nil || !discount.Active {
		return nil, false, nil
	}

	if err := models.Validate(discount); err != nil {
		return nil, false, fmt.Errorf("discount %q is misconfigured: %w", discount.Code, err)
	}

	return discount, true, nil
}

// Active returns the discount with the given ID if it is still active.
// A discount deactivated after being attached to a cart no longer applies.
func (r *DiscountRegistry) Active(ctx context.Context, id int64) (*models.Discount, error) {
	discount, err := r.repo.GetDiscountByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get discount: %w", err)
	}
	if discount == nil || !discount.Active {
		r.logger.Debug("Attached discount no longer active", zap.Int64("discount_id", id))
		return nil, nil
	}
	return discount, nil
}

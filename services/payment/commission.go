package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	"homeserve/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const commissionMetadataKey = "commission_rate"

// PlanLookup is the slice of the booking repository commission lookups need.
type PlanLookup interface {
	GetActivePlan(ctx context.Context, businessID string) (*models.ProviderPlan, error)
}

// PlanCommission resolves a business's commission rate: the active plan's
// explicit rate, then the plan price's metadata, then the default.
type PlanCommission struct {
	Repo     PlanLookup
	Prices   PriceMetadataSource
	Cache    *redis.Client
	CacheTTL time.Duration
	Default  float64
	Logger   *zap.Logger
}

func (p *PlanCommission) Rate(ctx context.Context, businessID string) (float64, error) {
	plan, err := p.Repo.GetActivePlan(ctx, businessID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return p.Default, nil
	}
	if err != nil {
		return 0, err
	}
	if plan.CommissionRate != nil {
		return *plan.CommissionRate, nil
	}
	if plan.StripePriceID == nil || *plan.StripePriceID == "" || p.Prices == nil {
		return p.Default, nil
	}

	rate, err := p.priceRate(ctx, *plan.StripePriceID)
	if err != nil {
		p.Logger.Warn("commission rate from price metadata unavailable, using default",
			zap.String("businessId", businessID), zap.Error(err))
		return p.Default, nil
	}
	return rate, nil
}

func (p *PlanCommission) priceRate(ctx context.Context, priceID string) (float64, error) {
	key := "commission:price:" + priceID
	if p.Cache != nil {
		if cached, err := p.Cache.Get(ctx, key).Result(); err == nil {
			if rate, perr := strconv.ParseFloat(cached, 64); perr == nil {
				return rate, nil
			}
		}
	}

	meta, err := p.Prices.PriceMetadata(ctx, priceID)
	if err != nil {
		return 0, err
	}
	raw, ok := meta[commissionMetadataKey]
	if !ok {
		return p.Default, nil
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate < 0 || rate > 100 {
		return 0, fmt.Errorf("bad %s %q on price %s", commissionMetadataKey, raw, priceID)
	}

	if p.Cache != nil {
		ttl := p.CacheTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		if err := p.Cache.Set(ctx, key, raw, ttl).Err(); err != nil {
			p.Logger.Debug("commission cache write failed", zap.Error(err))
		}
	}
	return rate, nil
}

// PlatformFee is round(total * rate / 100), half away from zero.
func PlatformFee(total int64, rate float64) int64 {
	return int64(math.Round(float64(total) * rate / 100))
}

// Percentage is round(amount * pct / 100) for integer percentages.
func Percentage(amount int64, pct int) int64 {
	return PlatformFee(amount, float64(pct))
}

package usecases

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"leadbot/internal/interfaces"
	"leadbot/internal/repository"
)

// LeadHistory is implemented by stores that can break usage down per day.
type LeadHistory interface {
	DailyCounts(ctx context.Context, tenantID string, since time.Time) ([]repository.DailyLeads, error)
}

type UsageSummary struct {
	TenantID         string                  `json:"tenant_id"`
	PeriodStart      time.Time               `json:"period_start"`
	LeadCount        int                     `json:"lead_count"`
	FreeLimit        int                     `json:"free_limit"`
	Remaining        int                     `json:"remaining"`
	OverageLeads     int                     `json:"overage_leads"`
	OverageUnitPrice float64                 `json:"overage_unit_price"`
	OverageAmount    float64                 `json:"overage_amount"`
	StoreConfigured  bool                    `json:"store_configured"`
	Daily            []repository.DailyLeads `json:"daily,omitempty"`
}

type UsageUsecase struct {
	tenants interfaces.TenantConfigStore
	store   interfaces.LeadStore
	now     func() time.Time
}

func NewUsageUsecase(tenants interfaces.TenantConfigStore, store interfaces.LeadStore) *UsageUsecase {
	return &UsageUsecase{tenants: tenants, store: store, now: time.Now}
}

// Summary reports the current month's lead usage and overage bill.
func (u *UsageUsecase) Summary(ctx context.Context, tenantID string) (UsageSummary, error) {
	cfg := u.tenants.Get(ctx, tenantID)
	start := MonthStart(u.now())
	s := UsageSummary{
		TenantID:         cfg.TenantID,
		PeriodStart:      start,
		FreeLimit:        cfg.LeadPolicy.FreeLeadsPerMonth,
		OverageUnitPrice: cfg.LeadPolicy.OverageUnitPrice,
		StoreConfigured:  u.store != nil,
	}
	if u.store == nil {
		s.Remaining = max(0, s.FreeLimit)
		return s, nil
	}

	count, err := u.store.CountSince(ctx, cfg.TenantID, start)
	if err != nil {
		return s, eris.Wrapf(err, "usage: count leads for %s", cfg.TenantID)
	}
	s.LeadCount = count
	s.Remaining = max(0, s.FreeLimit-count)
	s.OverageLeads = max(0, count-s.FreeLimit)
	s.OverageAmount = math.Round(float64(s.OverageLeads)*s.OverageUnitPrice*100) / 100

	if h, ok := u.store.(LeadHistory); ok {
		daily, err := h.DailyCounts(ctx, cfg.TenantID, start)
		if err != nil {
			return s, eris.Wrapf(err, "usage: daily leads for %s", cfg.TenantID)
		}
		s.Daily = daily
	}
	return s, nil
}

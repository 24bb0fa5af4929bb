package usecases

import (
	"context"
	"time"

	"go.uber.org/zap"

	"leadbot/internal/entities"
	"leadbot/internal/interfaces"
)

// QuotaEnforcer annotates qualified leads with the tenant's monthly usage
// and persists them. Overage never blocks storage.
type QuotaEnforcer struct {
	store interfaces.LeadStore
	now   func() time.Time
	log   *zap.Logger
}

// NewQuotaEnforcer returns an enforcer; a nil store turns it into a no-op
// that reports saved=false and a zero count.
func NewQuotaEnforcer(store interfaces.LeadStore) *QuotaEnforcer {
	return &QuotaEnforcer{
		store: store,
		now:   time.Now,
		log:   zap.L().With(zap.String("component", "quota")),
	}
}

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Enforce fills the persistence and quota fields of lead.
func (q *QuotaEnforcer) Enforce(ctx context.Context, lead entities.Lead, tenantID string, freeLimit int) entities.Lead {
	lead.FreeLimit = freeLimit
	if q.store == nil {
		lead.Saved = false
		lead.CurrentCount = 0
		lead.Overage = freeLimit <= 0
		return lead
	}

	count, err := q.store.CountSince(ctx, tenantID, MonthStart(q.now()))
	if err != nil {
		q.log.Warn("lead count unavailable",
			zap.String("tenant_id", tenantID),
			zap.Error(&entities.PersistenceError{Op: "count", TenantID: tenantID, Err: err}),
		)
		count = 0
	}
	lead.CurrentCount = count
	lead.Overage = count >= freeLimit

	if err := q.store.SaveLead(ctx, tenantID, lead); err != nil {
		q.log.Warn("lead not saved",
			zap.String("tenant_id", tenantID),
			zap.Error(&entities.PersistenceError{Op: "save", TenantID: tenantID, Err: err}),
		)
		lead.Saved = false
		return lead
	}
	lead.Saved = true
	return lead
}

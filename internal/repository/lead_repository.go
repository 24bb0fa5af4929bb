package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"leadbot/internal/entities"
)

// DBPool is the subset of *pgxpool.Pool used by repositories.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LeadRepository stores leads in Postgres.
type LeadRepository struct {
	db    DBPool
	newID func() uuid.UUID
}

type DailyLeads struct {
	Date    time.Time `json:"date"`
	Leads   int       `json:"leads"`
	Overage int       `json:"overage"`
}

func NewLeadRepository(db DBPool) *LeadRepository {
	return &LeadRepository{db: db, newID: uuid.New}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SaveLead inserts one lead row for the tenant.
func (r *LeadRepository) SaveLead(ctx context.Context, tenantID string, lead entities.Lead) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO leads (id, customer_id, phone, email, intent, raw_text, source, overage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.newID(), tenantID, nullString(lead.Phone), nullString(lead.Email), lead.Intent, lead.RawText, lead.Source, lead.Overage)
	if err != nil {
		return eris.Wrapf(err, "insert lead for %s", tenantID)
	}
	return nil
}

// CountSince returns the number of leads stored for the tenant since t.
func (r *LeadRepository) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads WHERE customer_id = $1 AND created_at >= $2
	`, tenantID, since).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "count leads for %s", tenantID)
	}
	return n, nil
}

// DailyCounts returns per-day lead and overage counts since t, oldest first.
func (r *LeadRepository) DailyCounts(ctx context.Context, tenantID string, since time.Time) ([]DailyLeads, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day, COUNT(*), COUNT(*) FILTER (WHERE overage)
		FROM leads
		WHERE customer_id = $1 AND created_at >= $2
		GROUP BY day
		ORDER BY day ASC
	`, tenantID, since)
	if err != nil {
		return nil, eris.Wrapf(err, "daily leads for %s", tenantID)
	}
	defer rows.Close()

	out := []DailyLeads{}
	for rows.Next() {
		var d DailyLeads
		if err := rows.Scan(&d.Date, &d.Leads, &d.Overage); err != nil {
			return nil, eris.Wrap(err, "scan daily leads")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "iterate daily leads")
}

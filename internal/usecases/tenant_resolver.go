package usecases

import (
	"strings"

	"leadbot/internal/entities"
)

// MatchRule names the resolver step that produced a tenant id.
type MatchRule string

const (
	MatchAddress    MatchRule = "address"
	MatchIdentifier MatchRule = "identifier"
	MatchKeyword    MatchRule = "keyword"
	MatchDefault    MatchRule = "default"
)

// TenantResolver maps message addressing to a tenant id. The table is
// read-only after construction.
type TenantResolver struct {
	table entities.MappingTable
}

func NewTenantResolver(table entities.MappingTable) *TenantResolver {
	return &TenantResolver{table: table}
}

// Resolve returns the tenant id for a message.
func (r *TenantResolver) Resolve(channel, to, from, text string) string {
	id, _ := r.ResolveWithRule(channel, to, from, text)
	return id
}

// ResolveWithRule applies, in order: exact (channel, to) match, raw
// identifier match on to or from, keyword containment, then "default".
func (r *TenantResolver) ResolveWithRule(channel, to, from, text string) (string, MatchRule) {
	channel = strings.TrimSpace(channel)
	to = strings.TrimSpace(to)
	from = strings.TrimSpace(from)

	if channel != "" && to != "" {
		for _, m := range r.table {
			for _, b := range m.Channels {
				if strings.EqualFold(b.Type, channel) && b.To == to {
					return m.TenantID, MatchAddress
				}
			}
		}
	}

	// The recipient owns the conversation, so every tenant is checked
	// against to before any is checked against from.
	for _, addr := range []string{to, from} {
		if id, ok := r.byIdentifier(addr); ok {
			return id, MatchIdentifier
		}
	}

	if lower := strings.ToLower(text); lower != "" {
		for _, m := range r.table {
			for _, kw := range m.Keywords {
				kw = strings.ToLower(strings.TrimSpace(kw))
				if kw != "" && strings.Contains(lower, kw) {
					return m.TenantID, MatchKeyword
				}
			}
		}
	}

	return entities.DefaultTenantID, MatchDefault
}

func (r *TenantResolver) byIdentifier(addr string) (string, bool) {
	if addr == "" {
		return "", false
	}
	for _, m := range r.table {
		for _, b := range m.Channels {
			for _, handle := range []string{b.To, b.PageID, b.Email} {
				if handle != "" && handle == addr {
					return m.TenantID, true
				}
			}
		}
	}
	return "", false
}

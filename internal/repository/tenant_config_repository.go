package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"leadbot/internal/entities"
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// tenantDocument is the on-disk tenant configuration. Pointers distinguish
// "absent" from zero so defaults can fill the gaps. Legacy field names are
// accepted next to the current ones.
type tenantDocument struct {
	TenantID              string         `json:"tenant_id" yaml:"tenant_id"`
	ClientID              string         `json:"client_id" yaml:"client_id"`
	DisplayName           string         `json:"display_name" yaml:"display_name"`
	Persona               *personaDoc    `json:"persona" yaml:"persona"`
	LeadPolicy            *leadPolicyDoc `json:"lead_policy" yaml:"lead_policy"`
	LeadRules             *leadPolicyDoc `json:"lead_rules" yaml:"lead_rules"`
	KBRefs                []string       `json:"kb_refs" yaml:"kb_refs"`
	KBFiles               []string       `json:"kb_files" yaml:"kb_files"`
	SystemPromptOverrides string         `json:"system_prompt_overrides" yaml:"system_prompt_overrides"`
}

type personaDoc struct {
	Tone               string `json:"tone" yaml:"tone"`
	LanguagePreference string `json:"language_preference" yaml:"language_preference"`
	ResponseLength     string `json:"response_length" yaml:"response_length"`
}

type leadPolicyDoc struct {
	Rule                string   `json:"rule" yaml:"rule"`
	LeadDefinition      string   `json:"lead_definition" yaml:"lead_definition"`
	FreeLeadsPerMonth   *int     `json:"free_leads_per_month" yaml:"free_leads_per_month"`
	OverageUnitPrice    *float64 `json:"overage_unit_price" yaml:"overage_unit_price"`
	OveragePricePerLead *float64 `json:"overage_price_per_lead" yaml:"overage_price_per_lead"`
}

func (d tenantDocument) toConfig(requestedID string) entities.TenantConfig {
	cfg := entities.DefaultTenantConfig(requestedID)

	switch {
	case d.TenantID != "":
		cfg.TenantID = d.TenantID
	case d.ClientID != "":
		cfg.TenantID = d.ClientID
	}
	if d.DisplayName != "" {
		cfg.DisplayName = d.DisplayName
	}
	if p := d.Persona; p != nil {
		if p.Tone != "" {
			cfg.Persona.Tone = p.Tone
		}
		if p.LanguagePreference != "" {
			cfg.Persona.LanguagePreference = entities.LanguagePreference(p.LanguagePreference)
		}
		if p.ResponseLength != "" {
			cfg.Persona.ResponseLength = entities.ResponseLength(p.ResponseLength)
		}
	}

	lp := d.LeadPolicy
	if lp == nil {
		lp = d.LeadRules
	}
	if lp != nil {
		switch {
		case lp.Rule != "":
			cfg.LeadPolicy.Rule = entities.LeadRule(lp.Rule)
		case lp.LeadDefinition != "":
			cfg.LeadPolicy.Rule = entities.LeadRule(lp.LeadDefinition)
		}
		if lp.FreeLeadsPerMonth != nil {
			cfg.LeadPolicy.FreeLeadsPerMonth = *lp.FreeLeadsPerMonth
		}
		switch {
		case lp.OverageUnitPrice != nil:
			cfg.LeadPolicy.OverageUnitPrice = *lp.OverageUnitPrice
		case lp.OveragePricePerLead != nil:
			cfg.LeadPolicy.OverageUnitPrice = *lp.OveragePricePerLead
		}
	}

	switch {
	case d.KBRefs != nil:
		cfg.KBRefs = d.KBRefs
	case d.KBFiles != nil:
		cfg.KBRefs = d.KBFiles
	}
	cfg.SystemPromptOverrides = d.SystemPromptOverrides
	return cfg
}

type cachedTenant struct {
	cfg     entities.TenantConfig
	expires time.Time
}

// TenantConfigRepository reads tenant configuration documents from a
// directory. Lookups never fail: missing or invalid documents yield the
// default configuration carrying the requested tenant id.
type TenantConfigRepository struct {
	dir      string
	ttl      time.Duration
	validate *validator.Validate
	now      func() time.Time
	log      *zap.Logger

	mu    sync.RWMutex
	cache map[string]cachedTenant
}

// NewTenantConfigRepository caches documents for ttl; zero disables caching.
func NewTenantConfigRepository(dir string, ttl time.Duration) *TenantConfigRepository {
	return &TenantConfigRepository{
		dir:      dir,
		ttl:      ttl,
		validate: validator.New(),
		now:      time.Now,
		log:      zap.L().With(zap.String("component", "tenant_config")),
		cache:    make(map[string]cachedTenant),
	}
}

// Get returns the configuration of tenantID.
func (r *TenantConfigRepository) Get(_ context.Context, tenantID string) entities.TenantConfig {
	if tenantID == "" {
		return entities.DefaultTenantConfig(entities.DefaultTenantID)
	}
	if cfg, ok := r.cached(tenantID); ok {
		return cfg
	}

	cfg, err := r.Load(tenantID)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.Warn("tenant config unusable, serving default",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
		cfg = entities.DefaultTenantConfig(tenantID)
	}
	r.store(tenantID, cfg)
	return cfg
}

// Load reads and validates one tenant document. The returned config always
// carries tenantID.
func (r *TenantConfigRepository) Load(tenantID string) (entities.TenantConfig, error) {
	if !tenantIDPattern.MatchString(tenantID) {
		return entities.TenantConfig{}, eris.Errorf("invalid tenant id %q", tenantID)
	}

	var doc tenantDocument
	if err := readDocument(r.dir, tenantID, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entities.TenantConfig{}, err
		}
		return entities.TenantConfig{}, eris.Wrapf(err, "tenant %s", tenantID)
	}

	cfg := doc.toConfig(tenantID)
	if cfg.TenantID != tenantID {
		r.log.Warn("tenant document id differs from file name, using requested id",
			zap.String("tenant_id", tenantID), zap.String("document_id", cfg.TenantID))
		cfg.TenantID = tenantID
	}
	if err := r.validate.Struct(cfg); err != nil {
		return entities.TenantConfig{}, eris.Wrapf(err, "validate tenant %s", tenantID)
	}
	return cfg, nil
}

// readDocument decodes {dir}/{name}.json, .yaml or .yml, first found wins.
func readDocument(dir, name string, out any) error {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		data, err := os.ReadFile(filepath.Join(dir, name+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return eris.Wrap(err, "read")
		}
		if ext == ".json" {
			err = json.Unmarshal(data, out)
		} else {
			err = yaml.Unmarshal(data, out)
		}
		if err != nil {
			return eris.Wrapf(err, "decode %s%s", name, ext)
		}
		return nil
	}
	return fs.ErrNotExist
}

func (r *TenantConfigRepository) cached(tenantID string) (entities.TenantConfig, bool) {
	if r.ttl <= 0 {
		return entities.TenantConfig{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[tenantID]
	if !ok || r.now().After(e.expires) || e.cfg.TenantID != tenantID {
		return entities.TenantConfig{}, false
	}
	return e.cfg, true
}

func (r *TenantConfigRepository) store(tenantID string, cfg entities.TenantConfig) {
	if r.ttl <= 0 || cfg.TenantID != tenantID {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[tenantID] = cachedTenant{cfg: cfg, expires: r.now().Add(r.ttl)}
}

// Invalidate drops a cached tenant, or all tenants when tenantID is empty.
func (r *TenantConfigRepository) Invalidate(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tenantID == "" {
		r.cache = make(map[string]cachedTenant)
		return
	}
	delete(r.cache, tenantID)
}

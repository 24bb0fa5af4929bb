package entities

const DefaultTenantID = "default"

type LanguagePreference string

const (
	LanguageAuto LanguagePreference = "auto"
	LanguageEN   LanguagePreference = "en"
	LanguageHI   LanguagePreference = "hi"
)

type ResponseLength string

const (
	ResponseShort  ResponseLength = "short"
	ResponseMedium ResponseLength = "medium"
	ResponseLong   ResponseLength = "long"
)

// LeadRule decides which combination of signals qualifies a message as a lead.
type LeadRule string

const (
	RulePhoneOrEmailOrIntent LeadRule = "phone_or_email_or_intent"
	RulePhoneAndIntent       LeadRule = "phone_and_intent"
	RulePhoneOrIntent        LeadRule = "phone_or_intent"
)

type Persona struct {
	Tone               string             `json:"tone" yaml:"tone"`
	LanguagePreference LanguagePreference `json:"language_preference" yaml:"language_preference" validate:"omitempty,oneof=auto en hi"`
	ResponseLength     ResponseLength     `json:"response_length" yaml:"response_length" validate:"omitempty,oneof=short medium long"`
}

type LeadPolicy struct {
	Rule              LeadRule `json:"rule" yaml:"rule" validate:"omitempty,oneof=phone_or_email_or_intent phone_and_intent phone_or_intent"`
	FreeLeadsPerMonth int      `json:"free_leads_per_month" yaml:"free_leads_per_month" validate:"gte=0"`
	OverageUnitPrice  float64  `json:"overage_unit_price" yaml:"overage_unit_price" validate:"gte=0"`
}

// TenantConfig is the resolved, read-only configuration of one tenant.
// TenantID is always set, including on the synthesized default.
type TenantConfig struct {
	TenantID              string     `json:"tenant_id" yaml:"tenant_id"`
	DisplayName           string     `json:"display_name" yaml:"display_name"`
	Persona               Persona    `json:"persona" yaml:"persona"`
	LeadPolicy            LeadPolicy `json:"lead_policy" yaml:"lead_policy"`
	KBRefs                []string   `json:"kb_refs" yaml:"kb_refs"`
	SystemPromptOverrides string     `json:"system_prompt_overrides" yaml:"system_prompt_overrides"`
}

// DefaultTenantConfig returns the configuration served for unresolved tenants,
// carrying tenantID for traceability.
func DefaultTenantConfig(tenantID string) TenantConfig {
	if tenantID == "" {
		tenantID = DefaultTenantID
	}
	return TenantConfig{
		TenantID:    tenantID,
		DisplayName: "Default",
		Persona: Persona{
			Tone:               "friendly",
			LanguagePreference: LanguageAuto,
			ResponseLength:     ResponseShort,
		},
		LeadPolicy: LeadPolicy{
			Rule:              RulePhoneOrEmailOrIntent,
			FreeLeadsPerMonth: 250,
			OverageUnitPrice:  10,
		},
		KBRefs: []string{},
	}
}

// WithDefaults fills unset persona and policy fields from the default config.
func (c TenantConfig) WithDefaults() TenantConfig {
	def := DefaultTenantConfig(c.TenantID)
	if c.DisplayName == "" {
		c.DisplayName = "this business"
	}
	if c.Persona.Tone == "" {
		c.Persona.Tone = def.Persona.Tone
	}
	if c.Persona.LanguagePreference == "" {
		c.Persona.LanguagePreference = def.Persona.LanguagePreference
	}
	if c.Persona.ResponseLength == "" {
		c.Persona.ResponseLength = def.Persona.ResponseLength
	}
	if c.LeadPolicy.Rule == "" {
		c.LeadPolicy.Rule = def.LeadPolicy.Rule
	}
	return c
}

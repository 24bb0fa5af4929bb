package entities

// ChannelBinding is one address owned by a tenant. Type and To form the
// exact (channel, address) key; PageID and Email are extra raw handles.
type ChannelBinding struct {
	Type   string `json:"type" yaml:"type"`
	To     string `json:"to,omitempty" yaml:"to,omitempty"`
	PageID string `json:"page_id,omitempty" yaml:"page_id,omitempty"`
	Email  string `json:"email,omitempty" yaml:"email,omitempty"`
}

// TenantMapping routes inbound traffic to one tenant.
type TenantMapping struct {
	TenantID string           `json:"tenant_id" yaml:"tenant_id"`
	Channels []ChannelBinding `json:"channels" yaml:"channels"`
	Keywords []string         `json:"keywords" yaml:"keywords"`
}

// MappingTable is evaluated in order; earlier entries win ties.
type MappingTable []TenantMapping

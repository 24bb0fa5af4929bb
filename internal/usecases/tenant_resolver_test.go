package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadbot/internal/entities"
)

func resolverTable() entities.MappingTable {
	return entities.MappingTable{
		{
			TenantID: "tenant_A",
			Channels: []entities.ChannelBinding{{Type: "whatsapp", To: "whatsapp:+14155550100"}},
		},
		{
			TenantID: "tenant_B",
			Channels: []entities.ChannelBinding{{Type: "instagram", PageID: "page-42"}},
			Keywords: []string{"pizza", "Pasta"},
		},
		{
			TenantID: "tenant_C",
			Channels: []entities.ChannelBinding{{Type: "email", Email: "hello@salon.example"}},
			Keywords: []string{"pizza", "haircut"},
		},
	}
}

func TestResolveAddressBeatsKeyword(t *testing.T) {
	r := NewTenantResolver(resolverTable())

	id, rule := r.ResolveWithRule("whatsapp", "whatsapp:+14155550100", "whatsapp:+919999999999", "pizza")
	assert.Equal(t, "tenant_A", id)
	assert.Equal(t, MatchAddress, rule)
}

func TestResolveAddressNeedsChannel(t *testing.T) {
	r := NewTenantResolver(resolverTable())

	// Same address on the wrong channel falls to the identifier rule.
	id, rule := r.ResolveWithRule("instagram", "whatsapp:+14155550100", "", "")
	assert.Equal(t, "tenant_A", id)
	assert.Equal(t, MatchIdentifier, rule)
}

func TestResolveIdentifierFromSender(t *testing.T) {
	r := NewTenantResolver(resolverTable())

	id, rule := r.ResolveWithRule("email", "inbox@relay.example", "hello@salon.example", "")
	assert.Equal(t, "tenant_C", id)
	assert.Equal(t, MatchIdentifier, rule)

	id, rule = r.ResolveWithRule("instagram", "page-42", "someone", "")
	assert.Equal(t, "tenant_B", id)
	assert.Equal(t, MatchIdentifier, rule)
}

func TestResolveIdentifierRecipientBeatsSender(t *testing.T) {
	r := NewTenantResolver(entities.MappingTable{
		{TenantID: "sender_owner", Channels: []entities.ChannelBinding{{Type: "email", Email: "alice@example.com"}}},
		{TenantID: "inbox_owner", Channels: []entities.ChannelBinding{{Type: "email", Email: "support@shop.com"}}},
	})

	id, rule := r.ResolveWithRule("instagram", "support@shop.com", "alice@example.com", "hello")
	assert.Equal(t, "inbox_owner", id)
	assert.Equal(t, MatchIdentifier, rule)
}

func TestResolveKeywordFirstMatchInTableOrder(t *testing.T) {
	r := NewTenantResolver(resolverTable())

	id, rule := r.ResolveWithRule("web", "", "", "Do you deliver PIZZA tonight?")
	assert.Equal(t, "tenant_B", id)
	assert.Equal(t, MatchKeyword, rule)

	assert.Equal(t, "tenant_B", r.Resolve("web", "", "", "fresh pasta"))
	assert.Equal(t, "tenant_C", r.Resolve("web", "", "", "need a haircut"))
}

func TestResolveDefault(t *testing.T) {
	r := NewTenantResolver(resolverTable())

	id, rule := r.ResolveWithRule("whatsapp", "whatsapp:+10000000000", "whatsapp:+20000000000", "hello")
	assert.Equal(t, entities.DefaultTenantID, id)
	assert.Equal(t, MatchDefault, rule)

	empty := NewTenantResolver(nil)
	assert.Equal(t, "default", empty.Resolve("", "", "", "pizza"))
}

package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadbot/internal/entities"
)

func TestExtractLeadPhoneAndIntent(t *testing.T) {
	_, ok := ExtractLead("call me, no intent words 9876543210", entities.RulePhoneAndIntent)
	assert.False(t, ok)

	c, ok := ExtractLead("please book a table, call 9876543210", entities.RulePhoneAndIntent)
	assert.True(t, ok)
	assert.Equal(t, "9876543210", c.Phone)
	assert.True(t, c.Intent)
	assert.Empty(t, c.Email)
}

func TestExtractLeadRules(t *testing.T) {
	tests := []struct {
		name string
		text string
		rule entities.LeadRule
		want bool
	}{
		{"email alone qualifies under any-of", "write to me at a.b@shop.example", entities.RulePhoneOrEmailOrIntent, true},
		{"email alone does not qualify phone_or_intent", "write to me at a.b@shop.example", entities.RulePhoneOrIntent, false},
		{"intent alone qualifies phone_or_intent", "I want to reserve a slot", entities.RulePhoneOrIntent, true},
		{"hinglish intent", "kal visit karna hai", entities.RulePhoneOrIntent, true},
		{"nothing", "what are your hours", entities.RulePhoneOrEmailOrIntent, false},
		{"unknown rule never matches", "book now 9876543210", entities.LeadRule("sometimes"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ExtractLead(tt.text, tt.rule)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestFindPhone(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"+91-987-654-3210", "919876543210"},
		{"+91 98765 43210", ""},
		{"call 022-4567-8901 today", "02245678901"},
		{"order 12 and 345", ""},
		{"table for 4 at 7pm", ""},
		{"ref 1234 then 9876543210", "9876543210"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, findPhone(tt.text))
		})
	}
}

func TestExtractLeadEmailFirstMatch(t *testing.T) {
	c, ok := ExtractLead("first@one.example or second@two.example", entities.RulePhoneOrEmailOrIntent)
	assert.True(t, ok)
	assert.Equal(t, "first@one.example", c.Email)
}

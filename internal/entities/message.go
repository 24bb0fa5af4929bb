package entities

import "strings"

// Channel identifies the messaging surface an inbound message arrived on.
type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
	ChannelEmail     Channel = "email"
	ChannelTelegram  Channel = "telegram"
	ChannelWeb       Channel = "web"
	ChannelUnknown   Channel = "unknown"
)

// ParseChannel maps a free-form channel name to a known Channel.
func ParseChannel(s string) Channel {
	switch Channel(strings.ToLower(strings.TrimSpace(s))) {
	case ChannelWhatsApp:
		return ChannelWhatsApp
	case ChannelInstagram:
		return ChannelInstagram
	case ChannelEmail:
		return ChannelEmail
	case ChannelTelegram:
		return ChannelTelegram
	case ChannelWeb:
		return ChannelWeb
	}
	return ChannelUnknown
}

// CanonicalMessage is the channel-agnostic form of one inbound event.
type CanonicalMessage struct {
	Channel Channel `json:"channel"`
	From    string  `json:"from,omitempty"`
	To      string  `json:"to,omitempty"`
	Text    string  `json:"text"`
	Raw     any     `json:"-"` // original payload, never interpreted by the pipeline
}

// Metadata flattens the addressing fields into the open key-value map
// accepted by the pipeline entry point.
func (m CanonicalMessage) Metadata() map[string]string {
	meta := map[string]string{"channel": string(m.Channel)}
	if m.From != "" {
		meta["from"] = m.From
	}
	if m.To != "" {
		meta["to"] = m.To
	}
	return meta
}

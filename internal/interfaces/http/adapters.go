package http

import (
	"encoding/json"
	"strings"

	"leadbot/internal/entities"
)

// TwilioForm is the subset of Twilio's inbound message webhook we read.
type TwilioForm struct {
	From string `form:"From"`
	To   string `form:"To"`
	Body string `form:"Body"`
}

// AdaptTwilio converts a Twilio WhatsApp webhook form.
func AdaptTwilio(f TwilioForm) entities.CanonicalMessage {
	return entities.CanonicalMessage{
		Channel: entities.ChannelWhatsApp,
		From:    f.From,
		To:      f.To,
		Text:    f.Body,
		Raw:     f,
	}
}

// SendGridForm is the subset of SendGrid's inbound parse webhook we read.
type SendGridForm struct {
	From    string `form:"from"`
	To      string `form:"to"`
	Text    string `form:"text"`
	Subject string `form:"subject"`
}

// AdaptSendGrid converts an inbound email. The subject is appended to the
// body so routing keywords in it still count.
func AdaptSendGrid(f SendGridForm) entities.CanonicalMessage {
	return entities.CanonicalMessage{
		Channel: entities.ChannelEmail,
		From:    f.From,
		To:      f.To,
		Text:    f.Text + "\nSubject: " + f.Subject,
		Raw:     f,
	}
}

type metaWebhook struct {
	Object string      `json:"object"`
	Entry  []metaEntry `json:"entry"`
}

type metaEntry struct {
	ID        string          `json:"id"`
	Changes   []metaChange    `json:"changes"`
	Messaging []metaMessaging `json:"messaging"`
}

type metaChange struct {
	Field string `json:"field"`
	Value struct {
		MessagingProduct string `json:"messaging_product"`
		Metadata         struct {
			PhoneNumberID      string `json:"phone_number_id"`
			DisplayPhoneNumber string `json:"display_phone_number"`
		} `json:"metadata"`
		Messages []struct {
			From     string `json:"from"`
			SenderID string `json:"sender_id"`
			Type     string `json:"type"`
			Text     struct {
				Body string `json:"body"`
			} `json:"text"`
		} `json:"messages"`
	} `json:"value"`
}

type metaMessaging struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// AdaptMeta converts a Graph API webhook (WhatsApp Cloud or Instagram).
// Unrecognized payloads become an unknown-channel message whose text is
// the raw body.
func AdaptMeta(body []byte) entities.CanonicalMessage {
	fallback := entities.CanonicalMessage{
		Channel: entities.ChannelUnknown,
		Text:    string(body),
		Raw:     json.RawMessage(body),
	}

	var hook metaWebhook
	if err := json.Unmarshal(body, &hook); err != nil || len(hook.Entry) == 0 {
		return fallback
	}
	entry := hook.Entry[0]
	instagram := strings.EqualFold(hook.Object, "instagram")

	if len(entry.Changes) > 0 && len(entry.Changes[0].Value.Messages) > 0 {
		value := entry.Changes[0].Value
		m := value.Messages[0]
		if instagram {
			from := m.From
			if from == "" {
				from = m.SenderID
			}
			return entities.CanonicalMessage{
				Channel: entities.ChannelInstagram,
				From:    "instagram:" + from,
				To:      entry.ID,
				Text:    m.Text.Body,
				Raw:     hook,
			}
		}
		msg := entities.CanonicalMessage{
			Channel: entities.ChannelWhatsApp,
			From:    "whatsapp:" + m.From,
			Text:    m.Text.Body,
			Raw:     hook,
		}
		phoneID := value.Metadata.PhoneNumberID
		if phoneID == "" {
			phoneID = value.Metadata.DisplayPhoneNumber
		}
		if phoneID != "" {
			msg.To = "whatsapp:" + phoneID
		}
		return msg
	}

	if len(entry.Messaging) > 0 && entry.Messaging[0].Message.Text != "" {
		m := entry.Messaging[0]
		return entities.CanonicalMessage{
			Channel: entities.ChannelInstagram,
			From:    "instagram:" + m.Sender.ID,
			To:      entry.ID,
			Text:    m.Message.Text,
			Raw:     hook,
		}
	}
	return fallback
}

package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"leadbot/internal/entities"
)

// openAIChatTransport speaks the chat-completions dialect shared by Groq
// and Together.
type openAIChatTransport struct {
	apiKey      string
	model       string
	url         string
	temperature float64
	http        *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

func (t *openAIChatTransport) send(ctx context.Context, segments []entities.Segment) (string, error) {
	msgs := make([]chatMessage, len(segments))
	for i, s := range segments {
		msgs[i] = chatMessage{Role: string(s.Role), Content: s.Content}
	}
	body, err := json.Marshal(chatRequest{Model: t.model, Messages: msgs, Temperature: t.temperature})
	if err != nil {
		return "", &attemptError{err: eris.Wrap(err, "marshal request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return "", &attemptError{err: eris.Wrap(err, "create request")}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.http.Do(req)
	if err != nil {
		return "", &attemptError{network: true, err: eris.Wrap(err, "send request")}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &attemptError{network: true, err: eris.Wrap(err, "read response")}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &attemptError{
			status:        resp.StatusCode,
			serverMessage: serverMessage(respBody),
			err:           eris.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	text, err := parseChatCompletion(respBody)
	if err != nil {
		return "", &attemptError{status: resp.StatusCode, serverMessage: serverMessage(respBody), err: err}
	}
	return text, nil
}

// choiceShape is the set of choice layouts the gateway understands.
type choiceShape int

const (
	shapeUnrecognized choiceShape = iota
	shapeChatMessage              // choices[0].message.content
	shapeLegacyText               // choices[0].text
)

type rawChoice struct {
	Message *struct {
		Content *string `json:"content"`
	} `json:"message"`
	Text *string `json:"text"`
}

func (c rawChoice) shape() choiceShape {
	switch {
	case c.Message != nil && c.Message.Content != nil:
		return shapeChatMessage
	case c.Text != nil:
		return shapeLegacyText
	}
	return shapeUnrecognized
}

// parseChatCompletion extracts the first choice's text from a 200 body.
func parseChatCompletion(body []byte) (string, error) {
	var envelope struct {
		Choices []rawChoice `json:"choices"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", eris.Wrapf(err, "invalid JSON response: %s", excerpt(body))
	}
	if len(envelope.Choices) == 0 {
		return "", eris.New("response has no choices")
	}

	choice := envelope.Choices[0]
	switch choice.shape() {
	case shapeChatMessage:
		return *choice.Message.Content, nil
	case shapeLegacyText:
		return *choice.Text, nil
	}
	return "", eris.New("unrecognized choice shape")
}

// serverMessage pulls a human-readable error out of a provider body:
// error as a string, error.message, then a top-level message.
func serverMessage(body []byte) string {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	switch e := doc["error"].(type) {
	case string:
		if e != "" {
			return e
		}
	case map[string]any:
		if m, ok := e["message"].(string); ok && m != "" {
			return m
		}
		b, _ := json.Marshal(e)
		return string(b)
	}
	if m, ok := doc["message"].(string); ok {
		return m
	}
	return ""
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return fmt.Sprintf("(%d bytes)", len(body))
	}
	return s
}

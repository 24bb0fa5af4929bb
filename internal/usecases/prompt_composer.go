package usecases

import (
	"fmt"
	"strings"

	"leadbot/internal/entities"
)

const (
	systemTemplate = "You are a helpful customer support assistant for %s. " +
		"Follow persona instructions: tone=%s; keep responses %s. " +
		"ONLY use facts from CONTEXT. If not found, respond: " +
		"'Sorry, I don't have that info right now. Would you like me to connect you to a human?'."

	sameLanguageInstruction = "Reply in the user's language (Hindi or Hinglish) and prefer simple Hindi words or Hinglish, keep tone same as persona."

	contextLabel = "CONTEXT:\n"
)

// ComposePrompt builds the ordered segments for one completion:
// persona system segment, optional context segment, then the user text.
func ComposePrompt(cfg entities.TenantConfig, tag entities.LanguageTag, snippets []string, userText string, topK int) []entities.Segment {
	cfg = cfg.WithDefaults()

	var sb strings.Builder
	fmt.Fprintf(&sb, systemTemplate, cfg.DisplayName, cfg.Persona.Tone, cfg.Persona.ResponseLength)
	if cfg.SystemPromptOverrides != "" {
		sb.WriteString("\n\n")
		sb.WriteString(cfg.SystemPromptOverrides)
	}
	if tag == entities.LangHI || tag == entities.LangHinglish {
		sb.WriteString("\n\n")
		sb.WriteString(sameLanguageInstruction)
	}

	segments := []entities.Segment{{Role: entities.RoleSystem, Content: sb.String()}}

	if topK > 0 && len(snippets) > topK {
		snippets = snippets[:topK]
	}
	if len(snippets) > 0 {
		segments = append(segments, entities.Segment{
			Role:    entities.RoleSystem,
			Content: contextLabel + strings.Join(snippets, "\n\n"),
		})
	}

	return append(segments, entities.Segment{Role: entities.RoleUser, Content: userText})
}

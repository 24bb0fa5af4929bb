package entities

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Segment is one role-tagged piece of a prompt.
type Segment struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LanguageTag is the coarse language classification used for prompting.
type LanguageTag string

const (
	LangEN       LanguageTag = "en"
	LangHI       LanguageTag = "hi"
	LangHinglish LanguageTag = "hinglish"
	LangOther    LanguageTag = "other"
)

type Timing struct {
	RetrievalSeconds  float64 `json:"retrieval_seconds"`
	CompletionSeconds float64 `json:"completion_seconds"`
	TotalSeconds      float64 `json:"total_seconds"`
}

// PipelineResult is the only output of the message pipeline.
type PipelineResult struct {
	TenantID string      `json:"tenant_id"`
	Language LanguageTag `json:"language"`
	Reply    string      `json:"reply"`
	Contexts []string    `json:"contexts"`
	Lead     *Lead       `json:"lead"`
	Timing   Timing      `json:"timing"`
}

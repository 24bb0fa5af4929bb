package entities

// LeadCandidate is what the extractor found in one message before quota
// enforcement and persistence.
type LeadCandidate struct {
	Phone  string
	Email  string
	Intent bool
}

// Lead is a qualified lead annotated with persistence and quota results.
// Fields other than Saved, Overage, CurrentCount and FreeLimit are fixed
// once the lead is constructed.
type Lead struct {
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Intent       bool   `json:"intent"`
	RawText      string `json:"raw_text"`
	Source       string `json:"source"`
	Overage      bool   `json:"overage"`
	Saved        bool   `json:"saved"`
	CurrentCount int    `json:"current_count"`
	FreeLimit    int    `json:"free_limit"`
}

// NewLead builds a lead from a candidate and the message it came from.
func NewLead(c LeadCandidate, rawText, source string) Lead {
	if source == "" {
		source = "unknown"
	}
	return Lead{
		Phone:   c.Phone,
		Email:   c.Email,
		Intent:  c.Intent,
		RawText: rawText,
		Source:  source,
	}
}

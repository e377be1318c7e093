package model

// Envelope is the uniform response wrapper used by every key endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RepoSummary is the shape returned by the summarizer. CoolFacts is never
// nil once it leaves the service layer.
type RepoSummary struct {
	Summary   string   `json:"summary"`
	CoolFacts []string `json:"cool_facts"`
}

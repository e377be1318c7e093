package handler

import (
	"net/http"

	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

// SummarizeHandler serves the repository summarizer. Callers authenticate
// with an API key on every request.
type SummarizeHandler struct {
	auth       *service.AuthService
	summarizer *service.Summarizer
	header     string
}

func NewSummarizeHandler(auth *service.AuthService, summarizer *service.Summarizer, header string) *SummarizeHandler {
	return &SummarizeHandler{auth: auth, summarizer: summarizer, header: header}
}

type summarizeRequest struct {
	RepositoryURL    string `json:"repositoryUrl"`
	GitHubURL        string `json:"githubUrl"`
	APIKeyCredential string `json:"apiKeyCredential"`
	APIKey           string `json:"apiKey"`
}

func (req summarizeRequest) repoURL() string {
	if req.RepositoryURL != "" {
		return req.RepositoryURL
	}
	return req.GitHubURL
}

// Summarize authenticates the caller, screens the URL and asks the model
// for a summary. The URL is only looked at once the key is accepted.
// POST /api/summarize
func (h *SummarizeHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	secret := credentialFrom(r, h.header, req.APIKeyCredential, req.APIKey)
	if _, err := h.auth.ValidateAPIKey(r.Context(), secret); err != nil {
		writeServiceError(w, r, err, "Invalid API key", "Internal server error")
		return
	}

	summary, err := h.summarizer.Summarize(r.Context(), req.repoURL())
	if err != nil {
		writeServiceError(w, r, err, "Not found", "Failed to summarize GitHub repository")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

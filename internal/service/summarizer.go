package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Niamh518/Dandi-curser-project/internal/llm"
	"github.com/Niamh518/Dandi-curser-project/internal/model"
)

const (
	// DefaultHostMarker is the substring a repository URL must contain.
	DefaultHostMarker = "github.com"

	// FallbackFact is the single fact reported when the model's answer is
	// not the requested JSON.
	FallbackFact = "Analysis completed successfully"

	summarySystemPrompt = `You are an expert at analyzing GitHub repositories.
Provide a concise summary and 2-3 interesting facts about the repository.
Format your response as JSON with 'summary' and 'cool_facts' fields.`

	summaryUserPrompt = "Please analyze this GitHub repository: "
)

// Messages shown to callers for rejected repository URLs.
const (
	MsgRepositoryURLRequired = "GitHub URL is required"
	MsgRepositoryURLInvalid  = "Please provide a valid GitHub URL"
)

// Summarizer asks a language model to describe a repository.
type Summarizer struct {
	provider   llm.Provider
	hostMarker string
}

func NewSummarizer(provider llm.Provider, hostMarker string) *Summarizer {
	if hostMarker == "" {
		hostMarker = DefaultHostMarker
	}
	return &Summarizer{provider: provider, hostMarker: hostMarker}
}

// CheckURL screens a repository URL before any model call. The check is a
// plain substring match on the configured host marker.
func (s *Summarizer) CheckURL(repoURL string) error {
	if strings.TrimSpace(repoURL) == "" {
		return invalid("repositoryUrl", MsgRepositoryURLRequired)
	}
	if !strings.Contains(repoURL, s.hostMarker) {
		return invalid("repositoryUrl", MsgRepositoryURLInvalid)
	}
	return nil
}

// Summarize screens repoURL and makes exactly one model call for it.
func (s *Summarizer) Summarize(ctx context.Context, repoURL string) (*model.RepoSummary, error) {
	if err := s.CheckURL(repoURL); err != nil {
		return nil, err
	}

	resp, err := s.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: summarySystemPrompt},
			{Role: llm.RoleUser, Content: summaryUserPrompt + repoURL},
		},
	})
	if err != nil {
		return nil, &UpstreamError{Provider: s.provider.Name(), Err: err}
	}

	summary := ParseSummary(resp.Content)
	return &summary, nil
}

// ParseSummary turns raw model output into a RepoSummary. A surrounding
// Markdown code fence is ignored. Output that is not a JSON object with a
// non-empty summary is returned verbatim as the summary with a single
// placeholder fact.
func ParseSummary(raw string) model.RepoSummary {
	var out model.RepoSummary
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil || strings.TrimSpace(out.Summary) == "" {
		return model.RepoSummary{
			Summary:   raw,
			CoolFacts: []string{FallbackFact},
		}
	}
	if out.CoolFacts == nil {
		out.CoolFacts = []string{}
	}
	return out
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string ("json") on the opening line.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

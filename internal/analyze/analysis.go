package analyze

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zachurban/housing-policy-monitor/internal/meeting"
	"github.com/zachurban/housing-policy-monitor/internal/services"
)

// Analysis is the structured housing-policy read on one meeting.
type Analysis struct {
	KeyTopics             []string `json:"key_topics"`
	HousingProposals      []string `json:"housing_proposals"`
	DevelopmentProjects   []string `json:"development_projects"`
	FundingAmounts        []string `json:"funding_amounts"`
	OverallSentiment      string   `json:"overall_sentiment"`
	ActionItems           []string `json:"action_items"`
	NotableQuotes         []string `json:"notable_quotes"`
	HousingRelevanceScore float64  `json:"housing_relevance_score"`
}

// DecodeAnalysis extracts the JSON object from a model reply, tolerating
// markdown code fences and prose around the payload.
func DecodeAnalysis(raw string) (*Analysis, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return nil, services.Wrap(services.ErrValidation, "analyze", "decode analysis", "reply contained no JSON object", nil)
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, services.Wrap(services.ErrValidation, "analyze", "decode analysis", "", err)
	}
	if analysis.HousingRelevanceScore < 0 {
		analysis.HousingRelevanceScore = 0
	}
	if analysis.HousingRelevanceScore > 1 {
		analysis.HousingRelevanceScore = 1
	}
	return &analysis, nil
}

func extractJSONObject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return ""
	}
	return trimmed[start : end+1]
}

// CountMentions sums occurrences of the housing keywords in the text.
func CountMentions(text string, keywords []string) int {
	lowered := strings.ToLower(text)
	total := 0
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		total += strings.Count(lowered, keyword)
	}
	return total
}

// Summary renders a human-readable markdown briefing for one meeting.
func (a *Analysis) Summary(m *meeting.Meeting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	fmt.Fprintf(&b, "**Jurisdiction:** %s  \n", m.Jurisdiction)
	if m.Date != "" {
		fmt.Fprintf(&b, "**Date:** %s  \n", m.Date)
	}
	fmt.Fprintf(&b, "**Housing relevance:** %.2f  \n", a.HousingRelevanceScore)
	if a.OverallSentiment != "" {
		fmt.Fprintf(&b, "**Sentiment toward housing development:** %s  \n", a.OverallSentiment)
	}
	b.WriteString("\n")

	writeSection(&b, "Key Topics", a.KeyTopics)
	writeSection(&b, "Housing Proposals", a.HousingProposals)
	writeSection(&b, "Development Projects", a.DevelopmentProjects)
	writeSection(&b, "Funding", a.FundingAmounts)
	writeSection(&b, "Action Items", a.ActionItems)

	if len(a.NotableQuotes) > 0 {
		b.WriteString("## Notable Quotes\n\n")
		for _, quote := range a.NotableQuotes {
			fmt.Fprintf(&b, "> %s\n\n", quote)
		}
	}
	return b.String()
}

func writeSection(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

package neutralize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// sourceRating is one outlet's neutrality score as returned by the model.
type sourceRating struct {
	SourceMedium string `json:"source_medium"`
	Rating       int    `json:"rating"`
}

// llmResponse is the contract the system prompt demands.
type llmResponse struct {
	NeutralTitle       string         `json:"neutral_title"`
	NeutralDescription string         `json:"neutral_description"`
	Category           string         `json:"category"`
	Relevance          int            `json:"relevance"`
	SourceRatings      []sourceRating `json:"source_ratings"`
}

// parseResponse decodes and sanity-checks the model output. Relevance and
// ratings are clamped into their documented ranges; missing title or
// description fails the group.
func parseResponse(raw string) (*llmResponse, error) {
	var resp llmResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	resp.NeutralTitle = strings.TrimSpace(resp.NeutralTitle)
	resp.NeutralDescription = strings.TrimSpace(resp.NeutralDescription)
	if resp.NeutralTitle == "" {
		return nil, fmt.Errorf("model response missing neutral_title")
	}
	if resp.NeutralDescription == "" {
		return nil, fmt.Errorf("model response missing neutral_description")
	}

	if resp.Relevance < 1 {
		resp.Relevance = 1
	}
	if resp.Relevance > 5 {
		resp.Relevance = 5
	}
	for i := range resp.SourceRatings {
		if resp.SourceRatings[i].Rating < 0 {
			resp.SourceRatings[i].Rating = 0
		}
		if resp.SourceRatings[i].Rating > 100 {
			resp.SourceRatings[i].Rating = 100
		}
	}
	return &resp, nil
}

// ratingsByOutlet indexes the scores by outlet tag, keeping the first
// entry when the model repeats an outlet.
func ratingsByOutlet(resp *llmResponse) map[string]int {
	out := make(map[string]int, len(resp.SourceRatings))
	for _, r := range resp.SourceRatings {
		tag := strings.TrimSpace(strings.ToLower(r.SourceMedium))
		if tag == "" {
			continue
		}
		if _, ok := out[tag]; !ok {
			out[tag] = r.Rating
		}
	}
	return out
}

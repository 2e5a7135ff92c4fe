package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/beaconhq/beacon/internal/extractor"
	"github.com/beaconhq/beacon/pkg/formatting"
)

const assessPrompt = `You are a credibility analyst for an anonymous incident-reporting service. You will receive the full intake conversation between a reporter and the intake assistant, plus descriptions of any evidence the reporter attached.

Produce a JSON object with exactly these fields:
{
  "incident_summary": "<neutral factual summary of the reported incident, 3-6 sentences>",
  "authority_summary": "<one paragraph for the investigating authority: what was alleged, how credible it appears, what to verify first>",
  "credibility_score": <integer 1-100>,
  "breakdown": {
    "completeness": <0-20, how fully what/where/when/who/story were answered>,
    "consistency": <0-15, internal coherence of the account>,
    "evidence": <0-25, strength and relevance of attached evidence>,
    "tone": <0-10, calm factual reporting scores highest>,
    "temporal": <0-10, proximity of the report to the incident>,
    "corroboration": <0-10, external patterns supporting the account>,
    "cooperation": <0-5, how responsively the reporter answered>,
    "penalties": <-15 to 0, deductions for vendetta indicators, unsupported accusations, or fabricated evidence>
  }
}

The credibility_score must equal a fair overall judgment, not a mechanical sum. If the conversation genuinely contains too little to assess, set incident_summary to exactly "insufficient information". Respond with the JSON object only.`

type assessor struct {
	client *genai.Client
	cfg    *extractor.Config
	logger *slog.Logger
}

// NewAssessor creates a Gemini-backed Assessor sharing the extractor's
// collaborator configuration.
func NewAssessor(ctx context.Context, cfg *extractor.Config, logger *slog.Logger) (Assessor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create assessor client: %w", err)
	}

	return &assessor{
		client: client,
		cfg:    cfg,
		logger: logger.With("system", "assessor"),
	}, nil
}

// rawAssessment mirrors the collaborator payload with the breakdown kept as a
// map so missing dimensions are detectable.
type rawAssessment struct {
	IncidentSummary  string         `json:"incident_summary"`
	AuthoritySummary string         `json:"authority_summary"`
	Score            int            `json:"credibility_score"`
	Breakdown        map[string]int `json:"breakdown"`
}

func (a *assessor) Assess(ctx context.Context, history []extractor.Message, evidenceNotes []string) (*Assessment, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.TimeoutDuration())
	defer cancel()

	prompt := buildAssessmentInput(history, evidenceNotes)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(assessPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.cfg.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		config,
	)
	if err != nil {
		return nil, fmt.Errorf("generate assessment: %w", err)
	}

	raw, err := formatting.Parse[rawAssessment](resp.Text())
	if err != nil {
		return nil, fmt.Errorf("parse assessment: %w", err)
	}

	breakdown, err := buildBreakdown(raw.Breakdown)
	if err != nil {
		return nil, err
	}

	return &Assessment{
		IncidentSummary:  raw.IncidentSummary,
		AuthoritySummary: raw.AuthoritySummary,
		Score:            raw.Score,
		Breakdown:        breakdown,
	}, nil
}

func buildAssessmentInput(history []extractor.Message, evidenceNotes []string) string {
	var b strings.Builder

	b.WriteString("CONVERSATION:\n")
	for _, msg := range history {
		fmt.Fprintf(&b, "[%s] %s\n", msg.Role, msg.Content)
	}

	b.WriteString("\nEVIDENCE:\n")
	if len(evidenceNotes) == 0 {
		b.WriteString("No evidence attached.\n")
	}
	for i, note := range evidenceNotes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, note)
	}

	return b.String()
}

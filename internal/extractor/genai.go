package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Client implements Conversational and Describer against the Gemini API.
type Client struct {
	client *genai.Client
	cfg    *Config
	logger *slog.Logger
}

// NewClient creates a Gemini-backed extractor client.
func NewClient(ctx context.Context, cfg *Config, logger *slog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create extractor client: %w", err)
	}

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger.With("system", "extractor"),
	}, nil
}

// Converse sends the full conversation history plus the confirmed fact
// snapshot and returns the parsed reply.
func (c *Client) Converse(ctx context.Context, history []Message, known map[string]string) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TimeoutDuration())
	defer cancel()

	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		var role genai.Role = genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(renderInstruction(known), genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("empty model response")
	}

	reply := ParseReply(raw)
	c.logger.Debug("extractor reply parsed",
		"facts", len(reply.Facts),
		"complete", reply.Complete,
	)
	return reply, nil
}

// renderInstruction appends the confirmed fact snapshot to the intake prompt.
// The stored history carries no fact blocks, so this is the model's only view
// of the merged state.
func renderInstruction(known map[string]string) string {
	if len(known) == 0 {
		return intakePrompt
	}

	snapshot, err := json.Marshal(known)
	if err != nil {
		return intakePrompt
	}

	return fmt.Sprintf(
		"%s\n\nCONFIRMED FACTS SO FAR (already recorded; do not ask for these again, only refine or correct):\n%s",
		intakePrompt, snapshot,
	)
}

// Describe sends the artifact bytes with a description prompt and returns the
// model's summary text.
func (c *Client) Describe(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TimeoutDuration())
	defer cancel()

	prompt := fmt.Sprintf("%s\n\nFilename: %s", describePrompt, filename)
	parts := []*genai.Part{
		genai.NewPartFromBytes(data, contentType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.DescribeModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("describe evidence %s: %w", filename, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty description for %s", filename)
	}
	return text, nil
}

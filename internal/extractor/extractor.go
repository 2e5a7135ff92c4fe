// Package extractor defines the language-model collaborator contracts for
// Beacon intake: a conversational extractor that drives the reporter dialogue
// and emits structured facts, and a describer that summarizes evidence
// artifacts. Implementations are expected to be stateless; callers pass full
// history on every turn.
package extractor

import "context"

// Sentinels the model is instructed to emit verbatim. The coordinator swaps
// them for the minted identifiers after submission succeeds.
const (
	CaseIDSentinel    = "CASE_ID_PLACEHOLDER"
	SecretKeySentinel = "SECRET_KEY_PLACEHOLDER"
)

// Message roles for conversation history passed to the extractor.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string
	Content string
}

// Reply is a parsed extractor response. Facts is nil when the response carried
// no fact payload. Complete reports whether the completion sentinel appeared,
// which signals that the disclosure is ready for submission.
type Reply struct {
	Message  string
	Facts    map[string]string
	Complete bool
}

// Conversational produces the next assistant reply for an intake conversation.
// Known carries the confirmed fact snapshot so the model works from merged
// state instead of re-deriving it from raw prose each turn.
type Conversational interface {
	Converse(ctx context.Context, history []Message, known map[string]string) (*Reply, error)
}

// Describer produces a short textual description of an evidence artifact for
// injection into the conversation context.
type Describer interface {
	Describe(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

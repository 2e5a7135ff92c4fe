package extractor

import (
	"regexp"
	"strings"

	"github.com/beaconhq/beacon/pkg/formatting"
)

var inlineFactsRegex = regexp.MustCompile(`\{\s*"what"\s*:[\s\S]*?\}`)

// ParseReply splits a raw model response into the reporter-visible message,
// the fact payload, and the completion signal. The fact block and any bare
// fact object are stripped from the visible message; the sentinels are left
// in place for the coordinator to substitute.
func ParseReply(raw string) *Reply {
	reply := &Reply{
		Complete: strings.Contains(raw, CaseIDSentinel),
	}

	if facts, err := formatting.Parse[map[string]string](raw); err == nil {
		reply.Facts = facts
	}

	message := formatting.StripFences(raw)
	message = inlineFactsRegex.ReplaceAllString(message, "")
	reply.Message = strings.TrimSpace(message)

	return reply
}

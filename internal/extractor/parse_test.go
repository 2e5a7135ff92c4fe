package extractor_test

import (
	"strings"
	"testing"

	"github.com/beaconhq/beacon/internal/extractor"
)

func TestParseReplyWithFactBlock(t *testing.T) {
	raw := "Thank you for sharing that. Where did this happen?\n\n" +
		"```json\n" +
		`{"what": "equipment theft", "where": "...", "when": "...", "who": "...", "evidence": "...", "story": "tools missing from the warehouse"}` +
		"\n```"

	reply := extractor.ParseReply(raw)

	if reply.Complete {
		t.Error("Complete = true, want false")
	}
	if reply.Message != "Thank you for sharing that. Where did this happen?" {
		t.Errorf("Message = %q, fact block not stripped", reply.Message)
	}
	if reply.Facts["what"] != "equipment theft" {
		t.Errorf("Facts[what] = %q, want %q", reply.Facts["what"], "equipment theft")
	}
	if reply.Facts["story"] != "tools missing from the warehouse" {
		t.Errorf("Facts[story] = %q, want story value", reply.Facts["story"])
	}
}

func TestParseReplyDetectsCompletion(t *testing.T) {
	raw := "Your report has been submitted. Your Case ID is " +
		extractor.CaseIDSentinel + " and your secret key is " +
		extractor.SecretKeySentinel + ". Keep both safe.\n\n" +
		"```json\n" +
		`{"what": "equipment theft"}` +
		"\n```"

	reply := extractor.ParseReply(raw)

	if !reply.Complete {
		t.Fatal("Complete = false, want true")
	}
	if !strings.Contains(reply.Message, extractor.CaseIDSentinel) {
		t.Error("case id sentinel stripped from message, coordinator cannot substitute")
	}
	if !strings.Contains(reply.Message, extractor.SecretKeySentinel) {
		t.Error("secret key sentinel stripped from message, coordinator cannot substitute")
	}
}

func TestParseReplyPlainMessage(t *testing.T) {
	raw := "Could you tell me a bit more about what happened?"

	reply := extractor.ParseReply(raw)

	if reply.Complete {
		t.Error("Complete = true, want false")
	}
	if reply.Message != raw {
		t.Errorf("Message = %q, want unchanged input", reply.Message)
	}
	if len(reply.Facts) != 0 {
		t.Errorf("Facts = %v, want empty", reply.Facts)
	}
}

func TestParseReplyStripsBareFactObject(t *testing.T) {
	raw := "Understood, thank you.\n\n" +
		`{"what": "theft", "where": "warehouse"}`

	reply := extractor.ParseReply(raw)

	if reply.Message != "Understood, thank you." {
		t.Errorf("Message = %q, bare fact object not stripped", reply.Message)
	}
}

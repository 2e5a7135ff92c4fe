package conversation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/internal/analysis"
	"github.com/beaconhq/beacon/internal/cases"
	"github.com/beaconhq/beacon/internal/conversation"
	"github.com/beaconhq/beacon/internal/evidence"
	"github.com/beaconhq/beacon/internal/extractor"
	"github.com/beaconhq/beacon/internal/facts"
	"github.com/beaconhq/beacon/internal/sessions"
	"github.com/beaconhq/beacon/pkg/lifecycle"
	"github.com/beaconhq/beacon/pkg/pagination"
)

type fakeSessions struct {
	session   *sessions.Session
	turns     []sessions.Turn
	saved     *sessions.SaveFactsCommand
	submitted bool
	caseID    string
}

func (f *fakeSessions) Handler() *sessions.Handler            { return nil }
func (f *fakeSessions) Start(lc *lifecycle.Coordinator) error { return nil }

func (f *fakeSessions) Create(ctx context.Context) (*sessions.Session, string, error) {
	return nil, "", errors.New("not implemented")
}

func (f *fakeSessions) Find(ctx context.Context, id uuid.UUID) (*sessions.Session, error) {
	if f.session == nil || f.session.ID != id {
		return nil, sessions.ErrNotFound
	}
	return f.session, nil
}

func (f *fakeSessions) Authenticate(ctx context.Context, id uuid.UUID, token string) (*sessions.Session, error) {
	return f.Find(ctx, id)
}

func (f *fakeSessions) AppendTurn(ctx context.Context, sessionID uuid.UUID, sender, content string) (*sessions.Turn, error) {
	turn := sessions.Turn{
		Seq:       int64(len(f.turns) + 1),
		ID:        uuid.New(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
	}
	f.turns = append(f.turns, turn)
	return &turn, nil
}

func (f *fakeSessions) Turns(ctx context.Context, sessionID uuid.UUID) ([]sessions.Turn, error) {
	return f.turns, nil
}

func (f *fakeSessions) SaveFacts(ctx context.Context, sessionID uuid.UUID, snapshot *sessions.SaveFactsCommand) error {
	f.saved = snapshot
	f.session.Facts = *snapshot.Facts
	return nil
}

func (f *fakeSessions) MarkSubmitted(ctx context.Context, sessionID uuid.UUID, caseID string) error {
	f.submitted = true
	f.caseID = caseID
	return nil
}

type fakeEvidence struct {
	items []evidence.Item
	data  map[uuid.UUID][]byte
}

func (f *fakeEvidence) Handler(auth sessions.System, maxUploadSize int64) *evidence.Handler {
	return nil
}
func (f *fakeEvidence) Start(lc *lifecycle.Coordinator) error { return nil }
func (f *fakeEvidence) Create(ctx context.Context, cmd evidence.CreateCommand) (*evidence.Item, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeEvidence) List(ctx context.Context, sessionID uuid.UUID) ([]evidence.Item, error) {
	return f.items, nil
}

func (f *fakeEvidence) Count(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return len(f.items), nil
}

func (f *fakeEvidence) Download(ctx context.Context, id uuid.UUID) (*evidence.Item, []byte, error) {
	for _, item := range f.items {
		if item.ID == id {
			return &item, f.data[id], nil
		}
	}
	return nil, nil, evidence.ErrNotFound
}

type fakeCases struct {
	submitResult *cases.SubmitResult
	submitErr    error
	submitCalls  int
}

func (f *fakeCases) Handler() *cases.Handler               { return nil }
func (f *fakeCases) Start(lc *lifecycle.Coordinator) error { return nil }

func (f *fakeCases) Submit(ctx context.Context, cmd cases.SubmitCommand) (*cases.SubmitResult, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitResult, nil
}

func (f *fakeCases) Find(ctx context.Context, caseID string) (*cases.Case, error) {
	return nil, cases.ErrNotFound
}

func (f *fakeCases) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[cases.Case], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCases) Verify(ctx context.Context, caseID, secretKey string) (*cases.Case, error) {
	return nil, cases.ErrInvalidCredentials
}

func (f *fakeCases) Track(ctx context.Context, caseID, secretKey string) (*cases.TrackView, error) {
	return nil, cases.ErrInvalidCredentials
}

func (f *fakeCases) SetStatus(ctx context.Context, caseID, status string) error { return nil }

func (f *fakeCases) AddUpdate(ctx context.Context, caseID, rawUpdate, publicUpdate, updatedBy string) (*cases.Update, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCases) Updates(ctx context.Context, caseID string) ([]cases.Update, error) {
	return nil, nil
}

func (f *fakeCases) AddMessage(ctx context.Context, caseID, senderRole, content string) (*cases.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCases) Messages(ctx context.Context, caseID string) ([]cases.Message, error) {
	return nil, nil
}

func (f *fakeCases) CompleteAnalysis(ctx context.Context, caseID string, result *cases.AnalysisResult) error {
	return nil
}

func (f *fakeCases) RecordAnalysisFailure(ctx context.Context, caseID, errMsg string) error {
	return nil
}

type fakeConversational struct {
	reply *extractor.Reply
	err   error
	calls int
	known map[string]string
}

func (f *fakeConversational) Converse(ctx context.Context, history []extractor.Message, known map[string]string) (*extractor.Reply, error) {
	f.calls++
	f.known = known
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

type fakeDescriber struct {
	desc  string
	err   error
	calls int
}

func (f *fakeDescriber) Describe(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.desc, nil
}

type fakeAssessor struct{}

func (f *fakeAssessor) Assess(ctx context.Context, history []extractor.Message, evidenceNotes []string) (*analysis.Assessment, error) {
	return nil, errors.New("not implemented")
}

type fixture struct {
	sessions   *fakeSessions
	evidence   *fakeEvidence
	cases      *fakeCases
	conv       *fakeConversational
	describer  *fakeDescriber
	dispatched int
	coord      *conversation.Coordinator
}

func newFixture(session *sessions.Session) *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		sessions:  &fakeSessions{session: session},
		evidence:  &fakeEvidence{data: map[uuid.UUID][]byte{}},
		cases:     &fakeCases{},
		conv:      &fakeConversational{},
		describer: &fakeDescriber{desc: "a photo of the damaged lock"},
	}

	worker := analysis.NewWorker(f.sessions, f.evidence, f.cases, &fakeAssessor{}, f.describer, logger)
	dispatch := analysis.DispatchFunc(func(fn func(ctx context.Context)) {
		f.dispatched++
	})

	f.coord = conversation.NewCoordinator(
		f.sessions, f.evidence, f.cases,
		f.conv, f.describer,
		worker, dispatch, logger,
	)
	return f
}

func activeSession() *sessions.Session {
	return &sessions.Session{
		ID:     uuid.New(),
		Active: true,
		Facts:  *facts.New(),
	}
}

func TestHandleTurnNormalFlow(t *testing.T) {
	session := activeSession()
	f := newFixture(session)
	f.conv.reply = &extractor.Reply{
		Message: "Where did this happen?",
		Facts:   map[string]string{"what": "equipment theft"},
	}

	result, err := f.coord.HandleTurn(context.Background(), session, "Someone stole tools from our site.")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if result.Submitted {
		t.Error("Submitted = true, want false")
	}
	if result.Reply != "Where did this happen?" {
		t.Errorf("Reply = %q, want extractor message", result.Reply)
	}

	if len(f.sessions.turns) != 2 {
		t.Fatalf("turns = %d, want reporter + assistant", len(f.sessions.turns))
	}
	if f.sessions.turns[0].Sender != sessions.SenderReporter {
		t.Errorf("first turn sender = %q, want reporter", f.sessions.turns[0].Sender)
	}
	if f.sessions.turns[1].Sender != sessions.SenderAssistant {
		t.Errorf("second turn sender = %q, want assistant", f.sessions.turns[1].Sender)
	}

	if f.sessions.saved == nil {
		t.Fatal("facts were not saved")
	}
	if f.sessions.saved.Facts.Get("what") != "equipment theft" {
		t.Errorf("saved what = %q, want merged fact", f.sessions.saved.Facts.Get("what"))
	}
	if f.sessions.saved.PriorVersion != 0 {
		t.Errorf("PriorVersion = %d, want 0", f.sessions.saved.PriorVersion)
	}
}

func TestHandleTurnSkipsSaveWhenFactsUnchanged(t *testing.T) {
	session := activeSession()
	session.Facts.Merge(map[string]string{"what": "equipment theft"})

	f := newFixture(session)
	f.conv.reply = &extractor.Reply{
		Message: "Tell me more.",
		Facts:   map[string]string{"what": "unknown"},
	}

	if _, err := f.coord.HandleTurn(context.Background(), session, "hmm"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if f.sessions.saved != nil {
		t.Error("facts saved despite shielded-only merge")
	}
	if session.Facts.Get("what") != "equipment theft" {
		t.Errorf("what = %q, confirmed fact was overwritten", session.Facts.Get("what"))
	}
}

func TestHandleTurnExtractorFailure(t *testing.T) {
	session := activeSession()
	f := newFixture(session)
	f.conv.err = errors.New("model unavailable")

	result, err := f.coord.HandleTurn(context.Background(), session, "Someone stole tools.")
	if err != nil {
		t.Fatalf("HandleTurn returned error, want retry reply: %v", err)
	}

	if result.Submitted {
		t.Error("Submitted = true, want false")
	}
	if !strings.Contains(result.Reply, "try sending that again") {
		t.Errorf("Reply = %q, want retry prompt", result.Reply)
	}

	// reporter turn must survive the failed extraction
	if len(f.sessions.turns) != 1 || f.sessions.turns[0].Sender != sessions.SenderReporter {
		t.Errorf("turns = %v, want only the persisted reporter turn", f.sessions.turns)
	}
}

func TestHandleTurnSubmitsOnCompletion(t *testing.T) {
	session := activeSession()
	f := newFixture(session)

	f.cases.submitResult = &cases.SubmitResult{
		Case:      &cases.Case{CaseID: "BCN100000000001"},
		SecretKey: "secret-key-value",
	}
	f.conv.reply = &extractor.Reply{
		Message: "Your Case ID is " + extractor.CaseIDSentinel +
			" and your secret key is " + extractor.SecretKeySentinel + ".",
		Complete: true,
	}

	result, err := f.coord.HandleTurn(context.Background(), session, "That is everything.")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if !result.Submitted {
		t.Fatal("Submitted = false, want true")
	}
	if result.CaseID == nil || *result.CaseID != "BCN100000000001" {
		t.Errorf("CaseID = %v, want BCN100000000001", result.CaseID)
	}

	if strings.Contains(result.Reply, extractor.CaseIDSentinel) ||
		strings.Contains(result.Reply, extractor.SecretKeySentinel) {
		t.Errorf("Reply = %q, sentinels not substituted", result.Reply)
	}
	if !strings.Contains(result.Reply, "BCN100000000001") {
		t.Errorf("Reply = %q, missing minted case id", result.Reply)
	}
	if !strings.Contains(result.Reply, "secret-key-value") {
		t.Errorf("Reply = %q, missing secret key", result.Reply)
	}

	if !f.sessions.submitted || f.sessions.caseID != "BCN100000000001" {
		t.Error("session was not marked submitted with the minted case id")
	}
	if f.dispatched != 1 {
		t.Errorf("dispatched = %d, want 1 analysis run", f.dispatched)
	}
}

func TestHandleTurnSubmitFailureKeepsSessionActive(t *testing.T) {
	session := activeSession()
	f := newFixture(session)

	f.cases.submitErr = errors.New("case store unavailable")
	f.conv.reply = &extractor.Reply{
		Message:  "Your Case ID is " + extractor.CaseIDSentinel + ".",
		Complete: true,
	}

	result, err := f.coord.HandleTurn(context.Background(), session, "That is everything.")
	if err != nil {
		t.Fatalf("HandleTurn returned error, want retry reply: %v", err)
	}

	if result.Submitted {
		t.Error("Submitted = true after failed submission")
	}
	if !strings.Contains(result.Reply, "try sending that again") {
		t.Errorf("Reply = %q, want retry prompt", result.Reply)
	}
	if f.sessions.submitted {
		t.Error("session marked submitted despite failed case insert")
	}
	if f.dispatched != 0 {
		t.Errorf("dispatched = %d, want 0", f.dispatched)
	}
}

func TestHandleTurnAlreadySubmitted(t *testing.T) {
	caseID := "BCN100000000007"
	session := activeSession()
	session.Active = false
	session.Submitted = true
	session.CaseID = &caseID

	f := newFixture(session)

	result, err := f.coord.HandleTurn(context.Background(), session, "hello again")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if !result.Submitted {
		t.Error("Submitted = false, want true")
	}
	if !strings.Contains(result.Reply, caseID) {
		t.Errorf("Reply = %q, missing case id", result.Reply)
	}
	if f.conv.calls != 0 {
		t.Errorf("extractor called %d times on a submitted session", f.conv.calls)
	}
	if len(f.sessions.turns) != 0 {
		t.Errorf("turns = %d, want none appended", len(f.sessions.turns))
	}
}

func TestHandleTurnClosedSession(t *testing.T) {
	session := activeSession()
	session.Active = false

	f := newFixture(session)

	_, err := f.coord.HandleTurn(context.Background(), session, "hello")
	if !errors.Is(err, sessions.ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestHandleTurnFoldsNewEvidence(t *testing.T) {
	session := activeSession()
	f := newFixture(session)

	itemID := uuid.New()
	f.evidence.items = []evidence.Item{{
		Seq:         1,
		ID:          itemID,
		SessionID:   session.ID,
		Filename:    "lock.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   2048,
	}}
	f.evidence.data[itemID] = []byte("jpeg-bytes")
	f.conv.reply = &extractor.Reply{Message: "Thanks for the photo."}

	if _, err := f.coord.HandleTurn(context.Background(), session, "I attached a photo."); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if f.describer.calls != 1 {
		t.Fatalf("describer calls = %d, want 1", f.describer.calls)
	}

	var note string
	for _, turn := range f.sessions.turns {
		if turn.Sender == sessions.SenderSystem {
			note = turn.Content
		}
	}
	if !strings.Contains(note, "lock.jpg") || !strings.Contains(note, "a photo of the damaged lock") {
		t.Errorf("system note = %q, want filename and description", note)
	}

	if f.sessions.saved == nil {
		t.Fatal("watermark advance was not saved")
	}
	if f.sessions.saved.Facts.EvidenceWatermark != 1 {
		t.Errorf("EvidenceWatermark = %d, want 1", f.sessions.saved.Facts.EvidenceWatermark)
	}
}

func TestHandleTurnPassesFactSnapshot(t *testing.T) {
	session := activeSession()
	session.Facts.Merge(map[string]string{"what": "equipment theft", "where": "the warehouse"})

	f := newFixture(session)
	f.conv.reply = &extractor.Reply{Message: "When did this happen?"}

	if _, err := f.coord.HandleTurn(context.Background(), session, "it keeps happening"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if f.conv.known["what"] != "equipment theft" {
		t.Errorf("known[what] = %q, want confirmed fact", f.conv.known["what"])
	}
	if f.conv.known["where"] != "the warehouse" {
		t.Errorf("known[where] = %q, want confirmed fact", f.conv.known["where"])
	}
}

func TestHandleTurnWatermarkSurvivesFailedExtraction(t *testing.T) {
	session := activeSession()
	f := newFixture(session)

	itemID := uuid.New()
	f.evidence.items = []evidence.Item{{
		Seq:         1,
		ID:          itemID,
		SessionID:   session.ID,
		Filename:    "lock.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   2048,
	}}
	f.evidence.data[itemID] = []byte("jpeg-bytes")
	f.conv.err = errors.New("model unavailable")

	if _, err := f.coord.HandleTurn(context.Background(), session, "photo attached"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	// the watermark advance must be durable despite the failed extraction
	if f.sessions.saved == nil || f.sessions.saved.Facts.EvidenceWatermark != 1 {
		t.Fatal("watermark not persisted before extraction")
	}
	if f.describer.calls != 1 {
		t.Fatalf("describer calls = %d, want 1", f.describer.calls)
	}

	f.conv.err = nil
	f.conv.reply = &extractor.Reply{Message: "Thanks for the photo."}

	if _, err := f.coord.HandleTurn(context.Background(), session, "trying again"); err != nil {
		t.Fatalf("retry HandleTurn failed: %v", err)
	}

	if f.describer.calls != 1 {
		t.Errorf("describer calls = %d after retry, artifact described twice", f.describer.calls)
	}

	var notes int
	for _, turn := range f.sessions.turns {
		if turn.Sender == sessions.SenderSystem {
			notes++
		}
	}
	if notes != 1 {
		t.Errorf("system notes = %d, want 1", notes)
	}
}

func TestHandleTurnEvidenceDescriptionFailureDegrades(t *testing.T) {
	session := activeSession()
	f := newFixture(session)

	itemID := uuid.New()
	f.evidence.items = []evidence.Item{{
		Seq:         1,
		ID:          itemID,
		SessionID:   session.ID,
		Filename:    "lock.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   2048,
	}}
	f.evidence.data[itemID] = []byte("jpeg-bytes")
	f.describer.err = errors.New("vision unavailable")
	f.conv.reply = &extractor.Reply{Message: "Thanks."}

	if _, err := f.coord.HandleTurn(context.Background(), session, "photo attached"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	var note string
	for _, turn := range f.sessions.turns {
		if turn.Sender == sessions.SenderSystem {
			note = turn.Content
		}
	}
	if !strings.Contains(note, "lock.jpg") {
		t.Errorf("system note = %q, want degraded file note", note)
	}
}

package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/searchive/searchive/internal/config"
	"github.com/searchive/searchive/internal/generate"
	"github.com/searchive/searchive/internal/models"
	"github.com/searchive/searchive/internal/storage"
)

type fakeSearcher struct {
	passages []models.ContextPassage
	lastIDs  []string
}

func (f *fakeSearcher) SearchPassages(ctx context.Context, documentIDs []string, query string, maxResults int) ([]models.ContextPassage, error) {
	f.lastIDs = documentIDs
	if len(f.passages) > maxResults {
		return f.passages[:maxResults], nil
	}
	return f.passages, nil
}

func testChatConfig() *config.ChatConfig {
	return &config.ChatConfig{HistoryLimit: 10, MaxPassages: 5, MaxContextChars: 4000, ExcerptChars: 500}
}

func newTestService(t *testing.T) (*Service, *storage.SQLiteStorage, *fakeSearcher, *generate.MockGenerator) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	searcher := &fakeSearcher{}
	gen := &generate.MockGenerator{Reply: "canned answer"}
	svc := NewService(store, searcher, gen, testChatConfig(), time.Minute)
	return svc, store, searcher, gen
}

func createDoc(t *testing.T, store *storage.SQLiteStorage, owner string) string {
	t.Helper()
	doc := &models.Document{ID: uuid.New().String(), OwnerID: owner, Filename: "f.txt", FileType: "txt"}
	if err := store.CreateDocument(context.Background(), doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	return doc.ID
}

func TestCreateConversationValidatesOwnership(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	mine := createDoc(t, store, "alice")
	theirs := createDoc(t, store, "bob")

	if _, err := svc.CreateConversation(ctx, "alice", "ok", []string{mine}); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if _, err := svc.CreateConversation(ctx, "alice", "bad", []string{theirs}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another owner's document, got %v", err)
	}
	if _, err := svc.CreateConversation(ctx, "alice", "bad", []string{"ghost"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown document, got %v", err)
	}
}

func TestSendMessagePersistsExchange(t *testing.T) {
	svc, store, searcher, gen := newTestService(t)
	ctx := context.Background()

	docID := createDoc(t, store, "alice")
	searcher.passages = []models.ContextPassage{{DocumentID: docID, Filename: "f.txt", Excerpt: "relevant text", Score: 1}}

	conv, err := svc.CreateConversation(ctx, "alice", "chat", []string{docID})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	exchange, err := svc.SendMessage(ctx, "alice", conv.ID, "what does it say?")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if exchange.UserMessage.Role != models.RoleUser || exchange.AssistantMessage.Role != models.RoleAssistant {
		t.Error("unexpected roles on exchange")
	}
	if exchange.AssistantMessage.Content != "canned answer" {
		t.Errorf("unexpected reply %q", exchange.AssistantMessage.Content)
	}
	if len(searcher.lastIDs) != 1 || searcher.lastIDs[0] != docID {
		t.Errorf("retrieval should be restricted to the conversation's documents, got %v", searcher.lastIDs)
	}
	if len(gen.LastRequest.Passages) != 1 {
		t.Errorf("generator should receive the retrieved passages, got %d", len(gen.LastRequest.Passages))
	}

	msgs, err := store.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[1].Role != models.RoleAssistant {
		t.Error("messages persisted out of order")
	}
}

func TestSendMessageGenerationFailurePersistsNothing(t *testing.T) {
	svc, store, _, gen := newTestService(t)
	ctx := context.Background()

	docID := createDoc(t, store, "alice")
	conv, err := svc.CreateConversation(ctx, "alice", "chat", []string{docID})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	gen.Err = generate.ErrUnavailable
	if _, err := svc.SendMessage(ctx, "alice", conv.ID, "hello"); !errors.Is(err, generate.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	msgs, err := store.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("failed generation must persist nothing, got %d messages", len(msgs))
	}
}

func TestSendMessageHistoryExcludesCurrent(t *testing.T) {
	svc, store, _, gen := newTestService(t)
	ctx := context.Background()

	docID := createDoc(t, store, "alice")
	conv, err := svc.CreateConversation(ctx, "alice", "chat", []string{docID})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	if _, err := svc.SendMessage(ctx, "alice", conv.ID, "first"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(gen.LastRequest.History) != 0 {
		t.Errorf("first message should see empty history, got %d", len(gen.LastRequest.History))
	}

	if _, err := svc.SendMessage(ctx, "alice", conv.ID, "second"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(gen.LastRequest.History) != 2 {
		t.Fatalf("second message should see the first exchange, got %d", len(gen.LastRequest.History))
	}
	if gen.LastRequest.History[0].Content != "first" {
		t.Errorf("unexpected history order: %q", gen.LastRequest.History[0].Content)
	}
	if gen.LastRequest.Question != "second" {
		t.Errorf("current question should not be part of history")
	}
}

func TestConversationHiddenFromNonOwner(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	docID := createDoc(t, store, "alice")
	conv, err := svc.CreateConversation(ctx, "alice", "chat", []string{docID})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	if _, err := svc.SendMessage(ctx, "bob", conv.ID, "hi"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-owner, got %v", err)
	}
	if _, err := svc.Messages(ctx, "bob", conv.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-owner transcript, got %v", err)
	}
	if err := svc.DeleteConversation(ctx, "bob", conv.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-owner delete, got %v", err)
	}
}

func TestFitContext(t *testing.T) {
	passages := []models.ContextPassage{
		{DocumentID: "a", Excerpt: strings.Repeat("x", 100), Score: 3},
		{DocumentID: "b", Excerpt: strings.Repeat("y", 100), Score: 2},
		{DocumentID: "c", Excerpt: strings.Repeat("z", 100), Score: 1},
	}

	got := fitContext(passages, 250)
	if len(got) != 2 {
		t.Errorf("expected lowest-ranked passage dropped, got %d", len(got))
	}

	got = fitContext(passages, 1000)
	if len(got) != 3 {
		t.Errorf("expected all passages kept, got %d", len(got))
	}

	// Even the top passage is dropped when it alone blows the budget; the
	// concatenated result may never exceed it.
	got = fitContext(passages, 50)
	if len(got) != 0 {
		t.Errorf("expected empty context for an over-budget top passage, got %d", len(got))
	}
	got = fitContext([]models.ContextPassage{{DocumentID: "a", Excerpt: strings.Repeat("x", 500), Score: 1}}, 300)
	if len(got) != 0 {
		t.Errorf("expected empty context, got %d passages", len(got))
	}

	for _, budget := range []int{50, 150, 250, 299} {
		total := 0
		for _, p := range fitContext(passages, budget) {
			total += len(p.Excerpt)
		}
		if total > budget {
			t.Errorf("budget %d: concatenated length %d exceeds it", budget, total)
		}
	}
}

package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/config"
	"github.com/searchive/searchive/internal/generate"
	"github.com/searchive/searchive/internal/models"
	"github.com/searchive/searchive/internal/storage"
)

// PassageSearcher retrieves relevant content passages from a set of documents.
type PassageSearcher interface {
	SearchPassages(ctx context.Context, documentIDs []string, query string, maxResults int) ([]models.ContextPassage, error)
}

// Service runs conversations: each one is pinned to a document set at creation
// and every message retrieves context from those documents only.
type Service struct {
	store      storage.Storage
	searcher   PassageSearcher
	generator  generate.Generator
	cfg        *config.ChatConfig
	genTimeout time.Duration
	logger     *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a chat service. genTimeout bounds each generation call.
func NewService(store storage.Storage, searcher PassageSearcher, generator generate.Generator, cfg *config.ChatConfig, genTimeout time.Duration, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		searcher:   searcher,
		generator:  generator,
		cfg:        cfg,
		genTimeout: genTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConversation starts a conversation over documentIDs. Every document
// must exist and belong to ownerID.
func (s *Service) CreateConversation(ctx context.Context, ownerID, title string, documentIDs []string) (*models.Conversation, error) {
	missing, err := s.store.MissingOwnedDocuments(ctx, ownerID, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("validate documents: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("documents %v: %w", missing, storage.ErrNotFound)
	}
	if title == "" {
		title = "New conversation"
	}
	conv := &models.Conversation{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Title:   title,
	}
	if err := s.store.CreateConversation(ctx, conv, documentIDs); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns ownerID's conversations, most recently active first.
func (s *Service) ListConversations(ctx context.Context, ownerID string) ([]*models.Conversation, error) {
	return s.store.ListConversations(ctx, ownerID)
}

// Messages returns the full transcript of an owned conversation.
func (s *Service) Messages(ctx context.Context, ownerID, conversationID string) ([]*models.Message, error) {
	if _, err := s.ownedConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

// DeleteConversation removes an owned conversation and its messages.
func (s *Service) DeleteConversation(ctx context.Context, ownerID, conversationID string) error {
	if _, err := s.ownedConversation(ctx, ownerID, conversationID); err != nil {
		return err
	}
	return s.store.DeleteConversation(ctx, conversationID)
}

// SendMessage runs one exchange: retrieve context from the conversation's
// documents, generate a reply, and persist both messages atomically. When
// generation fails nothing is persisted and the error wraps
// generate.ErrUnavailable.
func (s *Service) SendMessage(ctx context.Context, ownerID, conversationID, content string) (*models.ChatExchange, error) {
	if _, err := s.ownedConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}

	// History is read before the new message is stored, so the prompt window
	// ends at the previous exchange.
	history, err := s.store.RecentMessages(ctx, conversationID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	docIDs, err := s.store.ConversationDocumentIDs(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	passages, err := s.searcher.SearchPassages(ctx, docIDs, content, s.cfg.MaxPassages)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	passages = fitContext(passages, s.cfg.MaxContextChars)

	if s.logger != nil {
		s.logger.Debug("chat context built",
			zap.String("conversation_id", conversationID),
			zap.Int("passages", len(passages)),
			zap.Int("history", len(history)))
	}

	genCtx := ctx
	if s.genTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.genTimeout)
		defer cancel()
	}
	reply, err := s.generator.Generate(genCtx, &generate.Request{
		Passages: passages,
		History:  history,
		Question: content,
	})
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	now := time.Now().UTC()
	user := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           models.RoleUser,
		Content:        content,
		CreatedAt:      now,
	}
	assistant := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        reply,
		// Offset keeps the pair ordered when timestamps tie at clock resolution.
		CreatedAt: now.Add(time.Millisecond),
	}
	if err := s.store.AppendExchange(ctx, conversationID, user, assistant); err != nil {
		return nil, fmt.Errorf("persist exchange: %w", err)
	}
	return &models.ChatExchange{UserMessage: user, AssistantMessage: assistant}, nil
}

// ownedConversation loads a conversation and hides it from non-owners.
func (s *Service) ownedConversation(ctx context.Context, ownerID, conversationID string) (*models.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != ownerID {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, storage.ErrNotFound)
	}
	return conv, nil
}

// Package storage provides SQLite-backed metadata storage and the on-disk
// blob store for uploaded files.
package storage

import (
	"context"
	"errors"

	"github.com/searchive/searchive/internal/models"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Storage persists documents, tags, conversations, and messages.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, ownerID string, offset, limit int) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	CountDocuments(ctx context.Context) (int64, error)
	// MissingOwnedDocuments returns the subset of ids that do not exist or are
	// not owned by ownerID.
	MissingOwnedDocuments(ctx context.Context, ownerID string, ids []string) ([]string, error)

	FindTagsByNames(ctx context.Context, names []string) ([]*models.Tag, error)
	InsertTagsIgnoreDuplicates(ctx context.Context, names []string) error
	AttachTagsToDocument(ctx context.Context, documentID string, tagIDs []int64) error
	TagsForDocument(ctx context.Context, documentID string) ([]*models.Tag, error)
	CountTags(ctx context.Context) (int64, error)

	CreateConversation(ctx context.Context, conv *models.Conversation, documentIDs []string) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, ownerID string) ([]*models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	ConversationDocumentIDs(ctx context.Context, conversationID string) ([]string, error)

	// RecentMessages returns the last limit messages, oldest first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)
	// AppendExchange persists a user/assistant message pair atomically and
	// bumps the conversation's updated_at.
	AppendExchange(ctx context.Context, conversationID string, user, assistant *models.Message) error

	Close() error
}

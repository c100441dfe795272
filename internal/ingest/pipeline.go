// Package ingest runs the document ingestion pipeline: extract text, persist
// metadata and the raw file, index for search, and auto-tag.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/extract"
	"github.com/searchive/searchive/internal/extraction"
	"github.com/searchive/searchive/internal/index"
	"github.com/searchive/searchive/internal/models"
	"github.com/searchive/searchive/internal/storage"
	"github.com/searchive/searchive/internal/tags"
)

// Indexer is the lexical index surface the pipeline writes to.
type Indexer interface {
	Index(ctx context.Context, e *index.Entry) error
	Delete(ctx context.Context, documentID string) error
}

// Pipeline ingests and removes documents across storage, the blob store, the
// lexical index, and tags.
type Pipeline struct {
	store     storage.Storage
	files     *storage.FileStore
	indexer   Indexer
	extractor *extract.Extractor
	engine    *extraction.Engine
	tagger    *tags.Service
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(store storage.Storage, files *storage.FileStore, indexer Indexer, extractor *extract.Extractor, engine *extraction.Engine, tagger *tags.Service, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		files:     files,
		indexer:   indexer,
		extractor: extractor,
		engine:    engine,
		tagger:    tagger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upload ingests an uploaded file for ownerID and returns the created document
// with its tags. Extraction failure rejects the upload; keyword extraction
// failure does not, the document just carries no tags.
func (p *Pipeline) Upload(ctx context.Context, ownerID, filename string, content []byte) (*models.UploadResult, error) {
	return p.ingest(ctx, uuid.New().String(), ownerID, filename, content)
}

// IngestFile ingests a file from disk, keyed by its path so repeated events
// for the same path update one document.
func (p *Pipeline) IngestFile(ctx context.Context, ownerID, path string) (*models.UploadResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	docID := fileDocID(absPath)
	// Replace any previous version of this path.
	if _, err := p.store.GetDocument(ctx, docID); err == nil {
		if err := p.Delete(ctx, ownerID, docID); err != nil {
			return nil, fmt.Errorf("replace document: %w", err)
		}
	}
	return p.ingest(ctx, docID, ownerID, filepath.Base(absPath), content)
}

// RemoveFile deletes the document previously ingested from path, if any.
func (p *Pipeline) RemoveFile(ctx context.Context, ownerID, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	docID := fileDocID(absPath)
	if _, err := p.store.GetDocument(ctx, docID); err != nil {
		return nil
	}
	return p.Delete(ctx, ownerID, docID)
}

func (p *Pipeline) ingest(ctx context.Context, docID, ownerID, filename string, content []byte) (*models.UploadResult, error) {
	text, err := p.extractor.ExtractText(content, filename)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	doc := &models.Document{
		ID:        docID,
		OwnerID:   ownerID,
		Filename:  filename,
		FileType:  extract.FileType(filename),
		SizeBytes: int64(len(content)),
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if _, err := p.files.Save(ownerID, docID, filename, content); err != nil {
		_ = p.store.DeleteDocument(ctx, docID)
		return nil, fmt.Errorf("store file: %w", err)
	}
	if err := p.indexer.Index(ctx, &index.Entry{
		DocumentID: docID,
		OwnerID:    ownerID,
		Content:    text,
		Filename:   filename,
		FileType:   doc.FileType,
		UploadedAt: doc.CreatedAt,
	}); err != nil {
		_ = p.files.Delete(ownerID, docID)
		_ = p.store.DeleteDocument(ctx, docID)
		return nil, fmt.Errorf("index document: %w", err)
	}

	result := &models.UploadResult{Document: doc, Tags: []*models.Tag{}}
	keywords, method, err := p.engine.Extract(ctx, docID, text)
	if err != nil {
		// The document is searchable; losing auto-tags is not worth failing the upload.
		if p.logger != nil {
			p.logger.Warn("keyword extraction failed", zap.String("doc_id", docID), zap.Error(err))
		}
		return result, nil
	}
	result.ExtractionMethod = method

	attached, err := p.tagger.Attach(ctx, docID, keywords)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("tag attach failed", zap.String("doc_id", docID), zap.Error(err))
		}
		return result, nil
	}
	result.Tags = attached

	if p.logger != nil {
		p.logger.Debug("document ingested",
			zap.String("doc_id", docID),
			zap.String("filename", filename),
			zap.String("extraction_method", method),
			zap.Int("tags", len(attached)))
	}
	return result, nil
}

// Delete removes an owned document everywhere: index entry, stored file,
// metadata row, and tag associations.
func (p *Pipeline) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.OwnerID != ownerID {
		return fmt.Errorf("document %s: %w", documentID, storage.ErrNotFound)
	}
	if err := p.indexer.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("remove from index: %w", err)
	}
	if err := p.files.Delete(ownerID, documentID); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	if err := p.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("remove document: %w", err)
	}
	if p.logger != nil {
		p.logger.Debug("document deleted", zap.String("doc_id", documentID))
	}
	return nil
}

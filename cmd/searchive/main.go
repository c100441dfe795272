// Package main is the Searchive CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/chat"
	"github.com/searchive/searchive/internal/config"
	"github.com/searchive/searchive/internal/embedding"
	"github.com/searchive/searchive/internal/extract"
	"github.com/searchive/searchive/internal/extraction"
	"github.com/searchive/searchive/internal/generate"
	"github.com/searchive/searchive/internal/index"
	"github.com/searchive/searchive/internal/ingest"
	"github.com/searchive/searchive/internal/models"
	"github.com/searchive/searchive/internal/server"
	"github.com/searchive/searchive/internal/storage"
	"github.com/searchive/searchive/internal/tags"
	"github.com/searchive/searchive/internal/watcher"
	"github.com/searchive/searchive/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/searchive/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "searchive server" from the project dir uses the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "ingest":
		runIngest()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("searchive version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc *watcher.Watcher
	if len(cfg.Ingest.WatchDirectories) > 0 {
		pipeline := components.Pipeline
		owner := cfg.Ingest.OwnerID
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.New(
			cfg.Ingest.WatchDirectories,
			cfg.Ingest.Extensions,
			func(path string) {
				if _, err := pipeline.IngestFile(context.Background(), owner, path); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if err := pipeline.RemoveFile(context.Background(), owner, path); err != nil {
					logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Pipeline,
		components.Index,
		components.Storage,
		components.Files,
		components.Chat,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = open storage directly)`)
	user := fs.String("user", "local", "owner id to search as")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: searchive search [flags] <query>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("Usage: searchive search [flags] <query>")
		os.Exit(1)
	}

	var response *models.FilenameSearchResponse
	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids a bleve lock conflict).
		res, err := searchViaHTTP(*serverURL, *user, query, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		ctx := context.Background()
		hits, err := components.Index.SearchByFilename(ctx, *user, query, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = &models.FilenameSearchResponse{Query: query, Total: len(hits)}
		for _, hit := range hits {
			doc, err := components.Storage.GetDocument(ctx, hit.DocumentID)
			if err != nil {
				continue
			}
			response.Documents = append(response.Documents, &models.FilenameHit{Document: doc, Score: hit.Score})
		}
		response.Total = len(response.Documents)
		if response.Total == 0 {
			response.Suggestions, _ = components.Index.Suggest(query, 3)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		if response.Total == 0 {
			fmt.Printf("No results for %q\n", response.Query)
			if len(response.Suggestions) > 0 {
				fmt.Printf("Did you mean: %s\n", strings.Join(response.Suggestions, ", "))
			}
			return
		}
		for i, hit := range response.Documents {
			fmt.Printf("%d. %s (%.2f)  %s\n", i+1, hit.Document.Filename, hit.Score, hit.Document.ID)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL, user, query string, limit int) (*models.FilenameSearchResponse, error) {
	endpoint := fmt.Sprintf("%s/api/v1/documents/search?q=%s&limit=%d", serverURL, url.QueryEscape(query), limit)
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-User-ID", user)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.FilenameSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	owner := fs.String("user", "local", "owner id the documents belong to")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: searchive ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n := 0
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() {
				return walkErr
			}
			if !extensionAllowed(p, cfg.Ingest.Extensions) {
				return nil
			}
			if _, ingestErr := components.Pipeline.IngestFile(ctx, *owner, p); ingestErr != nil {
				logger.Warn("ingest failed", zap.String("path", p), zap.Error(ingestErr))
				return nil
			}
			n++
			return nil
		})
		if err != nil {
			fmt.Printf("Ingesting directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	result, err := components.Pipeline.IngestFile(ctx, *owner, path)
	if err != nil {
		fmt.Printf("Ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document ingested: %s (%s", result.Document.ID, result.ExtractionMethod)
	if len(result.Tags) > 0 {
		names := make([]string, len(result.Tags))
		for i, tag := range result.Tags {
			names[i] = tag.Name
		}
		fmt.Printf(", tags: %s", strings.Join(names, ", "))
	}
	fmt.Println(")")
}

func extensionAllowed(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	owner := fs.String("user", "local", "owner id the document belongs to")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: searchive delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Pipeline.Delete(context.Background(), *owner, docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	ctx := context.Background()
	docCount, err := components.Storage.CountDocuments(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
		os.Exit(1)
	}
	tagCount, err := components.Storage.CountTags(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count tags failed: %v\n", err)
		os.Exit(1)
	}
	indexed, err := components.Index.DocumentCount()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Index count failed: %v\n", err)
		os.Exit(1)
	}

	status := map[string]interface{}{
		"documents": docCount,
		"tags":      tagCount,
		"indexed":   indexed,
	}
	if diskBytes, diskErr := components.Files.DiskUsageBytes(); diskErr == nil {
		status["disk_usage_bytes"] = diskBytes
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:  %d\n", docCount)
		fmt.Printf("tags:       %d\n", tagCount)
		fmt.Printf("indexed:    %d\n", indexed)
		if v, ok := status["disk_usage_bytes"]; ok {
			fmt.Printf("disk_usage: %d bytes\n", v)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Files    *storage.FileStore
	Embedder embedding.Embedder
	Index    *index.BleveIndex
	Pipeline *ingest.Pipeline
	Chat     *chat.Service
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	files, err := storage.NewFileStore(cfg.Storage.FilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}

	idx, err := index.NewBleveIndex(cfg.Storage.IndexPath, index.WithExcerptChars(cfg.Chat.ExcerptChars))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize index: %w", err)
	}

	engine := extraction.NewEngine(idx, embedder, &cfg.Extraction)
	tagSvc := tags.NewService(store)

	pipelineOpts := []ingest.Option{}
	if debug && logger != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithLogger(logger))
	}
	pipeline := ingest.NewPipeline(store, files, idx, extract.NewExtractor(), engine, tagSvc, pipelineOpts...)

	generator, err := generate.NewOllamaGenerator(&cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	chatOpts := []chat.ServiceOption{}
	if debug && logger != nil {
		chatOpts = append(chatOpts, chat.WithLogger(logger))
	}
	genTimeout := time.Duration(cfg.Generation.TimeoutSeconds) * time.Second
	chatSvc := chat.NewService(store, idx, generator, &cfg.Chat, genTimeout, chatOpts...)

	return &Components{
		Storage:  store,
		Files:    files,
		Embedder: embedder,
		Index:    idx,
		Pipeline: pipeline,
		Chat:     chatSvc,
	}, nil
}

// newEmbedder builds the embedder named by the config. An ONNX model that fails to
// load falls back to the mock embedder so the rest of the system keeps working.
func newEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
	case "onnx":
		onnxEmbedder, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			if logger != nil {
				logger.Warn("onnx embedder unavailable, falling back to mock", zap.Error(err))
			}
			return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
		}
		return onnxEmbedder, nil
	default:
		embedder, err := embedding.NewOpenAIEmbedder(
			cfg.Embedding.BaseURL,
			cfg.Embedding.APIKey,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		return embedder, nil
	}
}

func printUsage() {
	fmt.Println(`searchive - document management with hybrid search, auto-tagging, and chat

Usage:
  searchive server [flags]           Start the HTTP server
  searchive search [flags] <query>   Search documents by filename
  searchive ingest [flags] <path>    Ingest a file or directory
  searchive delete [flags] <id>      Delete a document
  searchive status [flags]           Show storage and index status
  searchive version                  Show version
  searchive help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/searchive/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to open storage directly.
  --user string      Owner id to search as (default: local)
  --limit int        Number of results (default: 10)
  --output string    Output format: text or json (default: text)

Ingest Flags:
  --config string    Config file path
  --user string      Owner id the documents belong to (default: local)

Examples:
  searchive server
  searchive ingest ~/Documents/reports
  searchive search annual report
  searchive search --output json "budget 2024"
  searchive delete doc-123
  searchive status --output json`)
}

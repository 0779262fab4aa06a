// Package main is the Tonearm CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tonearm/tonearm/internal/catalog"
	"github.com/tonearm/tonearm/internal/cli"
	"github.com/tonearm/tonearm/internal/config"
	"github.com/tonearm/tonearm/internal/encoder"
	"github.com/tonearm/tonearm/internal/enrich"
	"github.com/tonearm/tonearm/internal/explain"
	"github.com/tonearm/tonearm/internal/ingest"
	"github.com/tonearm/tonearm/internal/models"
	"github.com/tonearm/tonearm/internal/recommend"
	"github.com/tonearm/tonearm/internal/server"
	"github.com/tonearm/tonearm/internal/storage"
	"github.com/tonearm/tonearm/internal/vector"
	"github.com/tonearm/tonearm/internal/watcher"
	"github.com/tonearm/tonearm/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tonearm/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so "tonearm server" from the project dir picks up the project's
// config. Returns the config and the path that was actually loaded.
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
	case "recommend":
		runRecommend()
	case "upload":
		runUpload()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tonearm version %s\n", version)
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Hot-reload the category map artifact; embeddings are re-encoded in
	// place when the map changes with the same dimensionality.
	watchSvc := watcher.NewWatcher(cfg.Encoder.CategoryMapPath, func(path string) {
		if err := components.ReloadCategoryMap(context.Background(), path); err != nil {
			logger.Warn("category map reload failed", zap.String("path", path), zap.Error(err))
		}
	}, logger)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Warn("category map watcher not started", zap.Error(err))
	} else {
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Engine,
		components.Ingestor,
		components.Enricher,
		components.Storage,
		components.Catalog,
		components.VectorIndex,
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
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	userID := fs.String("user", "", "user ID (required)")
	offset := fs.Int("offset", 0, "pagination offset")
	limit := fs.Int("limit", 10, "number of results")
	timeOfDay := fs.String("time-of-day", "", "listening context: morning, afternoon, evening, or night")
	mood := fs.String("mood", "", "listening mood")
	activity := fs.String("activity", "", "listening activity")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *userID == "" {
		fmt.Println("Usage: tonearm recommend --user <id> [flags]")
		fs.PrintDefaults()
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	req := &models.RecommendRequest{
		UserID:    *userID,
		Offset:    *offset,
		Limit:     *limit,
		TimeOfDay: *timeOfDay,
		Mood:      *mood,
		Activity:  *activity,
	}

	if *serverURL != "" {
		response, err := recommendViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteRecommendations(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct storage access (when server is not running).
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Engine.Recommend(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendations(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func recommendViaHTTP(serverURL string, req *models.RecommendRequest) (*models.RecommendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/recommendations", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	userID := fs.String("user", "", "user ID (required)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *userID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: tonearm upload --user <id> <records.json>")
		os.Exit(1)
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read records: %v\n", err)
		os.Exit(1)
	}

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}

	if *serverURL != "" {
		resp, err := http.Post(*serverURL+"/api/v1/users/"+*userID+"/interactions",
			"application/json", bytes.NewReader(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Upload failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var summary models.UploadSummary
		if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteUploadSummary(os.Stdout, &summary, format)
		return
	}

	var records []models.Interaction
	if err := json.Unmarshal(data, &records); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid records file: %v\n", err)
		os.Exit(1)
	}

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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	summary, err := components.Ingestor.Upload(context.Background(), *userID, records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteUploadSummary(os.Stdout, summary, format)
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Tracks           int64                  `json:"tracks"`
	Interactions     int64                  `json:"interactions"`
	VectorIndexSize  int                    `json:"vector_index_size"`
	CatalogIndexSize *uint64                `json:"catalog_index_size,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
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
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		trackCount, err := components.Storage.CountTracks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count tracks failed: %v\n", err)
			os.Exit(1)
		}
		interactionCount, err := components.Storage.CountInteractions(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count interactions failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Tracks:          trackCount,
			Interactions:    interactionCount,
			VectorIndexSize: components.VectorIndex.Size(),
			Config: map[string]interface{}{
				"embedding_dimensions": components.VectorIndex.Dimensions(),
				"database_path":        cfg.Storage.DatabasePath,
				"catalog_index_path":   cfg.Storage.CatalogIndexPath,
			},
		}
		if components.Catalog != nil {
			if n, err := components.Catalog.DocCount(); err == nil {
				status.CatalogIndexSize = &n
			}
		}
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
		fmt.Printf("tracks:             %d   # catalog size\n", status.Tracks)
		fmt.Printf("interactions:       %d   # stored interaction records\n", status.Interactions)
		fmt.Printf("vector_index_size:  %d   # count of track embeddings\n", status.VectorIndexSize)
		if status.CatalogIndexSize != nil {
			fmt.Printf("catalog_index_size: %d   # full-text indexed tracks\n", *status.CatalogIndexSize)
		}
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			for key, val := range status.Config {
				fmt.Printf("%s: %v\n", key, val)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	Encoder     *encoder.Encoder
	Aggregator  *encoder.Aggregator
	VectorIndex *vector.Index
	Catalog     *catalog.Index
	Engine      *recommend.Engine
	Ingestor    *ingest.Ingestor
	Enricher    *enrich.Enricher

	logger *zap.Logger
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
}

// ReloadCategoryMap swaps the encoder's category map and re-encodes every
// stored track embedding against it.
func (c *Components) ReloadCategoryMap(ctx context.Context, path string) error {
	categories, err := encoder.LoadCategoryMap(path)
	if err != nil {
		return err
	}
	if err := c.Encoder.Swap(categories); err != nil {
		return err
	}

	tracks, err := c.Storage.ListTracks(ctx, storage.TrackFilter{})
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(tracks))
	vectors := make([][]float64, 0, len(tracks))
	for _, track := range tracks {
		vec := c.Encoder.Encode(track)
		if err := c.Storage.PutTrackEmbedding(ctx, track.ID, vec); err != nil {
			return err
		}
		ids = append(ids, track.ID)
		vectors = append(vectors, vec)
	}
	if err := c.VectorIndex.Replace(ids, vectors); err != nil {
		return err
	}
	c.logger.Info("category map reloaded", zap.Int("tracks_reencoded", len(tracks)))
	return nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	categories, err := encoder.LoadCategoryMap(cfg.Encoder.CategoryMapPath)
	if err != nil {
		logger.Warn("category map not loaded, using built-in defaults",
			zap.String("path", cfg.Encoder.CategoryMapPath), zap.Error(err))
		categories = encoder.DefaultCategoryMap()
	}
	enc := encoder.NewEncoder(categories)
	agg := encoder.NewAggregator(enc)

	vectorIndex, err := vector.NewIndex(enc.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	embeddings, err := store.GetTrackEmbeddings(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	for _, emb := range embeddings {
		if err := vectorIndex.Add(emb.TrackID, emb.Vector); err != nil {
			logger.Warn("skipping stored embedding with stale dimensionality",
				zap.String("track_id", emb.TrackID), zap.Error(err))
		}
	}

	catalogIndex, err := catalog.NewIndex(cfg.Storage.CatalogIndexPath, 2.0)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog index: %w", err)
	}

	engine := recommend.NewEngine(store, vectorIndex, &cfg.Recommend, logger)
	ingestor := ingest.NewIngestor(store, enc, agg, vectorIndex, catalogIndex, logger)

	timeout := time.Duration(cfg.Enrich.TimeoutSeconds) * time.Second
	var generator explain.Generator
	if cfg.Enrich.ExplainBaseURL != "" {
		generator = explain.NewHTTPGenerator(cfg.Enrich.ExplainBaseURL, timeout, logger)
	}
	composer := explain.NewComposer(generator, logger)
	var lookup enrich.Lookup
	if cfg.Enrich.LookupBaseURL != "" {
		lookup = enrich.NewHTTPLookup(cfg.Enrich.LookupBaseURL, timeout, logger)
	}
	enricher := enrich.NewEnricher(lookup, composer, timeout, logger)

	return &Components{
		Storage:     store,
		Encoder:     enc,
		Aggregator:  agg,
		VectorIndex: vectorIndex,
		Catalog:     catalogIndex,
		Engine:      engine,
		Ingestor:    ingestor,
		Enricher:    enricher,
		logger:      logger,
	}, nil
}

func printUsage() {
	fmt.Println(`tonearm - Music recommendation engine

Usage:
  tonearm server [flags]              Start the HTTP server
  tonearm recommend [flags]           Get recommendations for a user
  tonearm upload [flags] <file.json>  Upload an interaction batch
  tonearm status [flags]              Show catalog/index status
  tonearm version                     Show version
  tonearm help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tonearm/config.yaml)
  --debug            Enable debug logging

Recommend Flags:
  --user string         User ID (required)
  --server string       Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --offset int          Pagination offset (default: 0)
  --limit int           Number of results (default: 10)
  --time-of-day string  Listening context: morning, afternoon, evening, night
  --mood string         Listening mood
  --activity string     Listening activity
  --output string       Output format: text or json (default: text)

Upload Flags:
  --user string      User ID (required)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  tonearm server
  tonearm recommend --user alice --time-of-day afternoon
  tonearm recommend --user alice --output json
  tonearm upload --user alice history.json
  tonearm status`)
}

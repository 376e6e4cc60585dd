package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	gcsstorage "cloud.google.com/go/storage"
	"connectrpc.com/connect"
	"github.com/castlemilk/grocerylens/backend/internal/auth"
	"github.com/castlemilk/grocerylens/backend/internal/config"
	"github.com/castlemilk/grocerylens/backend/internal/extraction"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/castlemilk/grocerylens/backend/internal/reconcile"
	"github.com/castlemilk/grocerylens/backend/internal/search"
	"github.com/castlemilk/grocerylens/backend/internal/service"
	"github.com/castlemilk/grocerylens/backend/internal/store"
	"github.com/rotisserie/eris"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zap.L().Sync() //nolint:errcheck

	ctx := context.Background()

	storeImpl, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		zap.L().Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	// Receipt images uploaded by the app live in GCS; without a bucket only
	// inline image data is accepted.
	var objects extraction.ObjectSource
	if cfg.Storage.Bucket != "" {
		gcs, err := gcsstorage.NewClient(ctx)
		if err != nil {
			zap.L().Fatal("failed to create storage client", zap.Error(err))
		}
		defer gcs.Close()
		objects = extraction.NewGCSObjects(gcs)
	}

	recognizer, err := newRecognizerChain(cfg)
	if err != nil {
		zap.L().Fatal("failed to configure recognizers", zap.Error(err))
	}
	extractor := extraction.NewService(extraction.NewImageLoader(objects, cfg.Storage.Bucket), recognizer)

	var enricher reconcile.Enricher
	if cfg.Enrichment.Enabled && cfg.Gemini.APIKey != "" {
		model := cfg.Enrichment.Model
		if model == "" {
			model = cfg.Gemini.Model
		}
		enricher = extraction.NewGeminiEnricher(extraction.EnricherConfig{
			Gemini: extraction.GeminiConfig{
				APIKey:  cfg.Gemini.APIKey,
				Model:   model,
				BaseURL: cfg.Gemini.BaseURL,
				Timeout: cfg.OCR.Timeout(),
			},
			RequestsPerSecond: cfg.Enrichment.RequestsPerSecond,
			Burst:             cfg.Enrichment.Burst,
		})
	} else {
		zap.L().Info("product name enrichment disabled")
	}
	engine := reconcile.NewEngine(storeImpl, enricher, reconcile.WithDenyList(receipt.BannerDenyList()))

	var opts []service.Option
	var indexer reconcile.Indexer
	if cfg.Algolia.AppID != "" {
		index, err := search.NewProductIndex(search.Config{
			AppID:     cfg.Algolia.AppID,
			APIKey:    cfg.Algolia.APIKey,
			IndexName: cfg.Algolia.IndexName,
		})
		if err != nil {
			zap.L().Fatal("failed to create product index", zap.Error(err))
		}
		indexer = index
		opts = append(opts, service.WithProductSearch(index))
	} else {
		zap.L().Info("algolia not configured, product search disabled")
	}
	learner := reconcile.NewLearner(storeImpl, indexer, cfg.Learning.Concurrency)

	drafts := service.NewDraftStore(cfg.Drafts.TTL())
	defer drafts.Stop()
	opts = append(opts, service.WithDrafts(drafts))

	receiptService := service.NewReceiptService(storeImpl, extractor, engine, learner, opts...)

	// Debug interceptor first so impersonation works ahead of token checks.
	interceptors := []connect.Interceptor{auth.DebugAuthInterceptor(cfg.Auth.Skip)}
	if cfg.Auth.Skip || cfg.Store.Driver == "memory" {
		zap.L().Warn("authentication disabled, requests run as dev user", zap.String("uid", devUser(cfg.Auth)))
		interceptors = append(interceptors, auth.LocalDevInterceptor(devUser(cfg.Auth)))
	} else {
		firebaseAuth, err := auth.NewFirebaseAuth(ctx, cfg.Store.ProjectID, cfg.Auth.CredentialsFile)
		if err != nil {
			zap.L().Fatal("failed to initialize firebase auth", zap.Error(err))
		}
		interceptors = append(interceptors, auth.AuthInterceptor(firebaseAuth))
	}

	path, handler := service.NewReceiptServiceHandler(
		receiptService,
		connect.WithInterceptors(interceptors...),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Content-Type",
			"User-Agent",
			"X-User-Agent",
			"X-Debug-Impersonate-User",
		},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	zap.L().Info("starting server",
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("ocr", cfg.OCR.Provider),
		zap.String("ocr_fallback", cfg.OCR.Fallback))
	if err := srv.ListenAndServe(); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}

func devUser(a config.AuthConfig) string {
	if a.DevUser != "" {
		return a.DevUser
	}
	return auth.DefaultDevUserID
}

// openStore connects the configured persistence backend and returns a
// closer for it.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	switch cfg.Driver {
	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, nil, eris.Wrap(err, "create firestore client")
		}
		return store.NewFirestoreStore(client), func() { client.Close() }, nil
	case "postgres":
		pool, err := store.OpenPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	default:
		zap.L().Info("using in-memory store for local development")
		return store.NewMemoryStore(), func() {}, nil
	}
}

// newRecognizerChain builds the configured OCR provider, wrapped in a
// fallback when a second provider is set.
func newRecognizerChain(cfg *config.Config) (extraction.Recognizer, error) {
	primary, err := newRecognizer(cfg, cfg.OCR.Provider)
	if err != nil {
		return nil, err
	}
	if cfg.OCR.Fallback == "" || cfg.OCR.Fallback == cfg.OCR.Provider {
		return primary, nil
	}
	fallback, err := newRecognizer(cfg, cfg.OCR.Fallback)
	if err != nil {
		return nil, err
	}
	return &extraction.FallbackRecognizer{Primary: primary, Fallback: fallback}, nil
}

func newRecognizer(cfg *config.Config, provider string) (extraction.Recognizer, error) {
	switch provider {
	case "remote":
		return extraction.NewRemoteRecognizer(cfg.OCR.RemoteURL, cfg.OCR.RemoteAPIKey, cfg.OCR.Timeout()), nil
	case "gemini":
		return extraction.NewGeminiVision(extraction.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			Timeout: cfg.OCR.Timeout(),
		}), nil
	case "anthropic":
		return extraction.NewClaudeVision(extraction.ClaudeConfig{
			APIKey:    cfg.Anthropic.APIKey,
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
			BaseURL:   cfg.Anthropic.BaseURL,
		}), nil
	default:
		return nil, eris.Errorf("unknown ocr provider %q", provider)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/genai"

	"github.com/neuralbudget/neural-budget/internal/api/handlers"
	"github.com/neuralbudget/neural-budget/internal/api/middleware"
	"github.com/neuralbudget/neural-budget/internal/chatbot"
	"github.com/neuralbudget/neural-budget/internal/config"
	"github.com/neuralbudget/neural-budget/internal/embedding"
	"github.com/neuralbudget/neural-budget/internal/generate"
	"github.com/neuralbudget/neural-budget/internal/insights"
	"github.com/neuralbudget/neural-budget/internal/logger"
	"github.com/neuralbudget/neural-budget/internal/store"
	"github.com/neuralbudget/neural-budget/internal/vectorindex"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to YAML config file")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Debug)

	ctx := context.Background()

	// Firestore holds the transaction data.
	txStore, err := store.NewFirestoreStore(ctx, cfg.Store.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Firestore store")
	}
	defer txStore.Close()

	// One genai client serves both embedding and generation. Credentials
	// come from the environment:
	//  - GEMINI_API_KEY for the Gemini Developer API
	//  - GOOGLE_GENAI_USE_VERTEXAI=True for Vertex AI
	aiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create genai client")
	}

	embedder := embedding.NewGeminiEmbedder(aiClient, cfg.AI.EmbeddingModel)

	index, err := vectorindex.LoadOrCreate(ctx, cfg.Chatbot.IndexPath, embedder, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open vector index")
	}

	generator := generate.New(generate.NewGeminiCaller(aiClient), cfg.AI, log)
	retriever := chatbot.NewRetriever(embedder, index)
	svc := chatbot.NewService(txStore, index, retriever, generator, cfg.Chatbot.TopK, log)
	insightsSvc := insights.NewService(txStore, generator, log)

	// Initialize handlers
	chatbotHandler := handlers.NewChatbotHandler(svc, log)
	transactionsHandler := handlers.NewTransactionsHandler(txStore, log)
	budgetsHandler := handlers.NewBudgetsHandler(txStore, log)
	insightsHandler := handlers.NewInsightsHandler(insightsSvc, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/chatbot", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatbotHandler.Ask(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
			if id == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Record ID is required")
				return
			}
			transactionsHandler.Delete(w, r, id)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/budgets", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			budgetsHandler.List(w, r)
		case http.MethodPost:
			budgetsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/budgets/analysis", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			budgetsHandler.Analysis(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/insights/analysis", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			insightsHandler.Analysis(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint stays outside Auth.
	health := http.NewServeMux()
	health.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	health.Handle("/api/", middleware.Auth(mux))

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(health),
			),
		),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // generation can take the full model timeout
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Flush the index so a restart does not lose embeddings.
	if err := index.Persist(); err != nil {
		log.Error().Err(err).Msg("Failed to persist vector index")
	}

	log.Info().Msg("Server exited")
}

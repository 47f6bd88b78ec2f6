package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"triagebot/internal/cache"
	"triagebot/internal/config"
	"triagebot/internal/engine"
	"triagebot/internal/engine/llmclass"
	"triagebot/internal/engine/rules"
	"triagebot/internal/engine/similar"
	"triagebot/internal/httpx"
	"triagebot/internal/index"
	"triagebot/internal/integrations/llm"
	"triagebot/internal/maintain"
	"triagebot/internal/notify"
	"triagebot/internal/server"
	"triagebot/internal/storage/sqlite"
)

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. LLMProvider=%s EmbeddingDims=%d SimilarityTopK=%d CorrectionLimit=%d CacheTTL=%s ExternalHTTPTimeout=%s",
		cfg.LLMProvider,
		cfg.EmbeddingDimensions,
		cfg.SimilarityTopK,
		cfg.CorrectionLimit,
		cfg.CacheTTL(),
		appliedHTTPTimeout,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()
	store := sqlite.NewStore(db)

	ruleSet := rules.Default()
	if cfg.RulesPath != "" {
		ruleSet, err = rules.Load(cfg.RulesPath)
		if err != nil {
			log.Fatalf("Failed to load rules from %s: %v", cfg.RulesPath, err)
		}
		log.Printf("Loaded rule overrides from %s", cfg.RulesPath)
	}

	embedder := llm.NewEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions, cfg.SearchTimeout())
	issueIndex, err := index.New(embedder)
	if err != nil {
		log.Fatalf("Failed to create similarity index: %v", err)
	}
	bootstrapIndex(store, issueIndex, cfg.IndexBootstrapLimit)
	searcher := similar.New(embedder, issueIndex, cfg.SimilarityTopK, cfg.SimilarityThreshold)

	resultCache := cache.New(cfg.CacheTTL())
	var classifier engine.Classifier
	if cfg.LLMEnabled() {
		completer, err := llm.NewCompleter(cfg.LLMProvider, cfg.AnthropicAPIKey, cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout())
		if err != nil {
			log.Fatalf("Failed to create LLM backend: %v", err)
		}
		classifier = llmclass.New(completer, resultCache)
	}

	eng := engine.New(ruleSet, classifier, searcher, store, engine.Options{
		CorrectionLimit: cfg.CorrectionLimit,
		LLMTimeout:      cfg.LLMTimeout(),
		SearchTimeout:   cfg.SearchTimeout(),
	})

	cronRunner, err := maintain.Start(maintain.Schedules{
		CacheSweep:   cfg.CacheSweepSchedule,
		IndexRebuild: cfg.IndexRebuildSchedule,
		HistoryLimit: cfg.IndexBootstrapLimit,
	}, resultCache, store, issueIndex)
	if err != nil {
		log.Fatalf("Failed to start schedulers: %v", err)
	}
	defer cronRunner.Stop()

	var notifier server.Notifier
	if cfg.SlackEnabled() {
		api := slack.New(cfg.SlackBotToken)
		notifier = notify.NewReviewer(api, cfg.SlackReviewChannel, cfg.ReviewThreshold)
		log.Printf("Review notifications enabled for channel %s (threshold %.2f)", cfg.SlackReviewChannel, cfg.ReviewThreshold)
	}

	srv := server.New(eng, store, notifier)
	log.Printf("Starting triage bot on %s...", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Handler()); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// bootstrapIndex seeds the similarity index from stored history so search
// works immediately after restart. An empty or failing load is not fatal.
func bootstrapIndex(store *sqlite.Store, issueIndex *index.Index, limit int) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	maintain.RebuildIndex(ctx, store, issueIndex, limit)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	yaml "go.yaml.in/yaml/v3"

	"github.com/pdiddy/claim-engine/internal/claims"
	"github.com/pdiddy/claim-engine/internal/enrich"
	"github.com/pdiddy/claim-engine/internal/llm"
	"github.com/pdiddy/claim-engine/internal/research"
	"github.com/pdiddy/claim-engine/internal/secrets"
	"github.com/pdiddy/claim-engine/internal/sources"
	"github.com/pdiddy/claim-engine/internal/store"
	"github.com/pdiddy/claim-engine/pkg/types"
)

const (
	defaultDBPath      = "claim-engine.db"
	defaultUserAgent   = "claim-engine/0.1"
	defaultHTTPTimeout = 30 * time.Second
)

// loadPipelineConfig assembles the full configuration: the YAML config file
// viper located, then environment variables, then .secrets/ files for any
// credential still unset.
func loadPipelineConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	secrets.Apply(&cfg, loadedSecrets)

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultDBPath
	}
	if cfg.Sources.UserAgent == "" {
		cfg.Sources.UserAgent = defaultUserAgent
	}
	return cfg, nil
}

func applyEnv(cfg *types.PipelineConfig) {
	setIfEmpty := func(dst *string, key string) {
		if *dst == "" {
			*dst = viper.GetString(key)
		}
	}
	setIfEmpty(&cfg.Claims.APIKey, "deepseek_api_key")
	setIfEmpty(&cfg.Research.APIKey, "deepseek_api_key")
	setIfEmpty(&cfg.Sources.OpenAlexAPIKey, "openalex_api_key")
	setIfEmpty(&cfg.Sources.SemanticScholarAPIKey, "semantic_scholar_api_key")
	setIfEmpty(&cfg.Sources.ContactEmail, "contact_email")
	setIfEmpty(&cfg.Enrich.UnpaywallEmail, "unpaywall_email")
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stderr"}
	return logCfg.Build()
}

func newHTTPClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

func openStore(cfg types.PipelineConfig) (*store.Store, error) {
	return store.NewStore(cfg.Store, cfg.Research.JobStaleAfter)
}

// storeFromFlags opens the store for commands that need nothing else wired.
func storeFromFlags(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadPipelineConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

func newFederated(cfg types.PipelineConfig, log *zap.Logger) *sources.Federated {
	client := newHTTPClient(cfg.Sources.HTTPConfig)
	providers := sources.DefaultProviders(cfg.Sources, client, log)
	return sources.NewFederated(providers, log)
}

func newEnricher(cfg types.PipelineConfig, log *zap.Logger) *enrich.Enricher {
	client := newHTTPClient(cfg.Enrich.HTTPConfig)
	return enrich.NewEnricher(client, cfg.Enrich, cfg.Sources, log)
}

// newClaimsBuilder wires the claim-card builder. Without an API key the
// heuristic judge and sentence-split extraction run instead of the model.
func newClaimsBuilder(cfg types.PipelineConfig, log *zap.Logger) *claims.Builder {
	b := &claims.Builder{
		Federated: newFederated(cfg, log),
		Enricher:  newEnricher(cfg, log),
		Judge:     claims.HeuristicJudge{},
		Extractor: &claims.Extractor{},
		Cfg:       cfg.Claims,
		EnrichCfg: cfg.Enrich,
		Log:       log,
	}
	if client := llm.NewClient(cfg.Claims.AIConfig); client != nil {
		b.Extractor.Backend = client
		if cfg.Claims.UseLLMJudge {
			b.Judge = &claims.LLMJudge{Backend: client}
			b.Model = client.Model()
		}
	}
	return b
}

// newPipeline wires the research pipeline over an open store.
func newPipeline(cfg types.PipelineConfig, st *store.Store, log *zap.Logger) *research.Pipeline {
	p := &research.Pipeline{
		Store:         st,
		Federated:     newFederated(cfg, log),
		Enricher:      newEnricher(cfg, log),
		Planner:       &research.Planner{},
		Extractor:     &research.Extractor{Model: cfg.Research.Model},
		Cfg:           cfg.Research,
		Log:           log,
		PerQueryLimit: cfg.Sources.PerQueryLimit,
	}
	if client := llm.NewClient(cfg.Research.AIConfig); client != nil {
		p.Planner.Backend = client
		p.Extractor.Backend = client
		p.Extractor.Model = client.Model()
	}
	return p
}

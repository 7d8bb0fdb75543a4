package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"trustaid/internal/audit"
	"trustaid/internal/config"
	"trustaid/internal/embedding"
	"trustaid/internal/llm"
	"trustaid/internal/logging"
	"trustaid/internal/navigator"
	"trustaid/internal/orchestrator"
	"trustaid/internal/retrieval"
	"trustaid/internal/store"
	"trustaid/internal/synthesis"
	"trustaid/internal/trustbot"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// Logger
	logger *zap.Logger

	// Core built once per invocation
	app *core
)

// core holds the wired component graph for one CLI invocation.
type core struct {
	cfg     *config.Config
	orch    *orchestrator.Orchestrator
	engine  *retrieval.Engine
	data    *store.DataStore
	vectors *store.SQLiteVectorStore
	auditor *audit.Auditor
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "trustaid",
	Short: "trustAId - evidence-grounded Q&A over government services and spend data",
	Long: `trustAId answers natural-language questions two ways:

Informational questions are answered from a retrieved document corpus
(semantic-vector backend when an API key is configured, TF-IDF otherwise)
with citations and a confidence level.

Analytic questions are answered by generating a guarded read-only SQL
query over the procurement dataset: every statement is validated against
a schema whitelist before it executes.

Low-confidence informational answers escalate once to the SQL path.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.Level); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		app, err = buildCore(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to build core: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.close()
		}
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// buildCore wires the component graph. Missing capabilities degrade: no API
// key means a lexical engine, template synthesis, and canned SQL only.
func buildCore(ctx context.Context, cfg *config.Config) (*core, error) {
	c := &core{cfg: cfg}

	var client llm.Client
	if cfg.Provider.APIKey != "" {
		gc, err := llm.NewGeminiClient(llm.GeminiConfig{
			APIKey:  cfg.Provider.APIKey,
			BaseURL: cfg.Provider.BaseURL,
			Model:   cfg.Provider.Model,
			Timeout: cfg.GetProviderTimeout(),
		})
		if err != nil {
			logger.Warn("generative client unavailable, continuing without", zap.Error(err))
		} else {
			client = gc
		}
	}

	var embedder embedding.Engine
	var vectors store.VectorStore
	forceLexical := cfg.Retrieval.Backend == "lexical"
	if !forceLexical && cfg.Provider.APIKey != "" {
		eng, err := embedding.NewEngine(embedding.Config{
			APIKey:   cfg.Provider.APIKey,
			Model:    cfg.Provider.EmbedModel,
			TaskType: "SEMANTIC_SIMILARITY",
		})
		if err != nil {
			logger.Warn("embedding engine unavailable, running lexical", zap.Error(err))
		} else {
			embedder = eng
			vs, err := store.NewSQLiteVectorStore(cfg.Store.VectorPath)
			if err != nil {
				logger.Warn("vector store unavailable, running lexical", zap.Error(err))
				embedder = nil
			} else {
				c.vectors = vs
				vectors = vs
			}
		}
	}

	docs, err := retrieval.LoadCorpus(cfg.Retrieval.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	c.engine = retrieval.NewEngine(retrieval.EngineConfig{
		Embedder:     embedder,
		Vectors:      vectors,
		Docs:         docs,
		TopK:         cfg.Retrieval.TopK,
		ForceLexical: forceLexical,
	})
	c.engine.EnsureReady(ctx)

	c.data, err = store.NewDataStore(cfg.Store.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open data store: %w", err)
	}

	c.auditor = audit.New(cfg.Audit.Path)

	nav := navigator.New(c.engine, synthesis.New(client))
	bot := trustbot.New(trustbot.NewGenerator(client, cfg.Demo), c.data)

	c.orch = orchestrator.New(orchestrator.Config{
		Navigator:  nav,
		Trustbot:   bot,
		Auditor:    c.auditor,
		Engine:     c.engine,
		Payments:   c.data,
		Generation: client != nil && !cfg.Demo,
	})
	return c, nil
}

func (c *core) close() {
	if c.data != nil {
		_ = c.data.Close()
	}
	if c.vectors != nil {
		_ = c.vectors.Close()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "trustaid.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaymind/conduit/internal/agentruntime"
	"github.com/relaymind/conduit/internal/config"
	"github.com/relaymind/conduit/internal/convtools"
	"github.com/relaymind/conduit/internal/cronjobs"
	"github.com/relaymind/conduit/internal/debugtools"
	"github.com/relaymind/conduit/internal/dispatcher"
	"github.com/relaymind/conduit/internal/evaltools"
	"github.com/relaymind/conduit/internal/guardrails"
	"github.com/relaymind/conduit/internal/hitl"
	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/messaging"
	"github.com/relaymind/conduit/internal/notestools"
	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/policyengine"
	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/internal/selfcodetools"
	"github.com/relaymind/conduit/internal/shellexec"
	"github.com/relaymind/conduit/internal/store/postgres"
	"github.com/relaymind/conduit/internal/store/sqlite"
	"github.com/relaymind/conduit/internal/store/sqlstore"
	"github.com/relaymind/conduit/internal/toolloop"
	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/internal/tracing"
	"github.com/relaymind/conduit/internal/webhook"
	"github.com/relaymind/conduit/pkg/models"
)

// selfCorrectionMaxAge bounds how long a self_correction memory (spec §4.5)
// stays active before the periodic GC deactivates it.
const selfCorrectionMaxAge = 30 * 24 * time.Hour

func buildServeCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the conduit server",
		Long:  "Start the webhook listener, background agent runtime, and cron scheduler.",
		Example: `  conduit serve --config conduit.yaml
  conduit serve -c conduit.yaml --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), resolveConfigPath(configPath), debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug-level logging")

	return cmd
}

// openStore opens the configured database backend. Both sqlite.Open and
// postgres.Open apply pending migrations before returning.
func openStore(cfg *config.Config) (*sqlstore.Store, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return sqlite.Open(cfg.Database.DSN)
	case "postgres":
		return postgres.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// buildLLMClient resolves cfg.LLM.DefaultProvider to a concrete client.
// Only anthropic and openai are wired (spec §2 DOMAIN STACK): a third
// backend would need its own provider-config block this struct doesn't
// carry.
func buildLLMClient(cfg *config.Config) (llmclient.Client, error) {
	provider := cfg.LLM.DefaultProvider
	pcfg, ok := cfg.LLM.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("no llm provider config for %q", provider)
	}
	switch provider {
	case "anthropic":
		return llmclient.NewAnthropicClient(llmclient.AnthropicConfig{
			APIKey:       pcfg.APIKey,
			BaseURL:      pcfg.BaseURL,
			DefaultModel: pcfg.DefaultModel,
		})
	case "openai":
		return llmclient.NewOpenAIClient(llmclient.OpenAIConfig{
			APIKey:         pcfg.APIKey,
			BaseURL:        pcfg.BaseURL,
			DefaultModel:   pcfg.DefaultModel,
			EmbeddingModel: cfg.Memory.EmbeddingModel,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", provider)
	}
}

// chainedAuditor fans a completed tool call out to both audit sinks: the
// hash-chained JSONL file (tamper evidence, spec invariant 9) and the
// database (queryable history). Mirrors tracing.Recorder's native+OTLP
// dual-sink shape.
type chainedAuditor struct {
	file *policyengine.AuditLog
	repo repository.ShellAuditRepository
}

func (a *chainedAuditor) Append(entry *models.CommandAuditEntry) error {
	if err := a.file.Append(entry); err != nil {
		return err
	}
	return a.repo.AppendAuditEntry(context.Background(), entry)
}

var _ toolloop.Auditor = (*chainedAuditor)(nil)

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel := cfg.Logging.Level
	if debug {
		logLevel = "debug"
	}
	log := obslog.New(obslog.Config{Level: logLevel, Format: cfg.Logging.Format, File: cfg.Logging.File})
	log.Info(ctx, "starting conduit", "version", version)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	var repo repository.Repository = store

	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.OTLPEndpoint
	}
	tracer, shutdownTracer := tracing.New(repo, log, tracing.Config{
		ServiceName: "conduit",
		Endpoint:    tracingEndpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})

	llm, err := buildLLMClient(cfg)
	if err != nil {
		return fmt.Errorf("build llm client: %w", err)
	}

	msg := messaging.NewHTTPClient(messaging.HTTPClientConfig{
		BaseURL: os.Getenv("CONDUIT_MESSAGING_BASE_URL"),
		Token:   os.Getenv("CONDUIT_MESSAGING_TOKEN"),
		Timeout: cfg.Messaging.SendTimeout,
	})

	gr := guardrails.New(guardrails.Config{
		Enabled:       cfg.Guardrails.Enabled,
		LLMChecks:     cfg.Guardrails.LLMChecks,
		LLMTimeout:    cfg.Guardrails.LLMTimeout,
		MaxReplyChars: cfg.Guardrails.MaxReplyChars,
	}, llm, tracer, log)

	hitlCoord := hitl.New(log)

	rules, err := policyengine.LoadRules(cfg.Shell.PolicyRulesPath)
	if err != nil {
		return fmt.Errorf("load policy rules: %w", err)
	}
	resolver := policyengine.NewResolver(rules)
	shellPolicy := shellexec.NewShellAwarePolicy(resolver, cfg.Agent.ShellAllowlist)

	fileAudit, err := policyengine.OpenAuditLog(cfg.Shell.AuditLogPath)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	auditor := &chainedAuditor{file: fileAudit, repo: repo}

	registry := toolrouter.NewRegistry()
	toolrouter.RegisterStaticCategories(registry)

	shellMgr := shellexec.NewManager(cfg.Shell.ProjectsRoot, cfg.Shell.MaxBackgroundProcs, log)
	writeEnabled := func() bool { return cfg.Agent.WriteEnabled }
	registry.Register(shellexec.NewRunCommandTool(shellMgr, writeEnabled))
	registry.Register(shellexec.NewManageProcessTool(shellMgr))

	registry.Register(convtools.NewGetRecentMessagesTool(repo))
	registry.Register(convtools.NewGetConversationSummaryTool(repo))
	registry.Register(convtools.NewSearchMemoriesTool(repo, llm, cfg.Memory.TopKFallback))

	registry.Register(notestools.NewSearchNotesTool(repo, llm, cfg.Memory.TopKFallback))
	registry.Register(notestools.NewCreateNoteTool(repo, llm))
	registry.Register(notestools.NewListNotesTool(repo))

	registry.Register(evaltools.NewGetDatasetStatsTool(repo))
	registry.Register(evaltools.NewAddDatasetEntryTool(repo))
	registry.Register(evaltools.NewListEvalEntriesTool(repo))
	registry.Register(evaltools.NewActivatePromptVersionTool(repo))

	registry.Register(debugtools.NewGetTraceTool(repo))
	registry.Register(debugtools.NewGetRecentTracesTool(repo))
	registry.Register(debugtools.NewGetLogsTool(cfg.Logging.File))

	registry.Register(selfcodetools.NewListSourceFilesTool(cfg.Shell.ProjectsRoot))
	registry.Register(selfcodetools.NewReadSourceFileTool(cfg.Shell.ProjectsRoot))
	registry.Register(selfcodetools.NewGrepSourceTool(cfg.Shell.ProjectsRoot))
	registry.Register(selfcodetools.NewWriteSourceFileTool(cfg.Shell.ProjectsRoot, writeEnabled))

	classifier := toolrouter.NewClassifier(llm)

	executor := toolloop.New(llm, registry, shellPolicy, auditor, hitlCoord, msg, tracer, log, toolloop.Options{
		MaxIterations:       cfg.Dispatcher.MaxToolIterations,
		CompactionThreshold: cfg.Dispatcher.CompactionThreshold,
	})

	sessionManager := agentruntime.NewManager(repo)
	bootstrapDir := filepath.Join(cfg.Agent.SessionsDir, "bootstrap")
	runner := agentruntime.NewRunner(llm, registry, executor, sessionManager, hitlCoord, msg, tracer, log, bootstrapDir, cfg.Agent.SessionsDir)

	dailyLogDir := filepath.Join(cfg.Eval.DatasetDir, "daily")
	disp := dispatcher.New(repo, llm, msg, tracer, log, gr, classifier, registry, executor, hitlCoord, sessionManager, cfg.Dispatcher, cfg.Memory, cfg.Eval, dailyLogDir)

	registry.Register(agentruntime.NewCreateSessionTool(sessionManager, runner, disp.TrackBackgroundTask))

	webhookServer := webhook.New(disp, log, cfg.Messaging.WebhookPath)

	cronSvc := cronjobs.NewService(repo)
	cronTrigger := func(ctx context.Context, job repository.CronJob) error {
		session, sessCtx, err := sessionManager.CreateSession(ctx, job.Handle, job.Objective, cfg.Agent.MaxIterations)
		if err != nil {
			return err
		}
		runner.Run(sessCtx, session)
		return nil
	}
	scheduler := cronjobs.NewScheduler(cronSvc, cronTrigger, cronjobs.SchedulerConfig{Logger: log})
	scheduler.Start(ctx)

	shellGCTicker := time.NewTicker(cfg.Shell.GCInterval)
	defer shellGCTicker.Stop()
	selfCorrectionTicker := time.NewTicker(time.Hour)
	defer selfCorrectionTicker.Stop()
	gcDone := make(chan struct{})
	go func() {
		defer close(gcDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-shellGCTicker.C:
				shellMgr.GC()
			case <-selfCorrectionTicker.C:
				if n, err := repo.PruneExpiredSelfCorrections(ctx, selfCorrectionMaxAge); err != nil {
					log.Error(ctx, "prune self-correction memories failed", "error", err)
				} else if n > 0 {
					log.Info(ctx, "pruned expired self-correction memories", "count", n)
				}
			}
		}
	}()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler: webhookServer,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		log.Info(ctx, "shutdown signal received")
	case err := <-serveErrCh:
		if err != nil {
			log.Error(ctx, "http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Dispatcher.InFlightDrainTimeout)
	defer cancel()

	if err := disp.Shutdown(cfg.Dispatcher.InFlightDrainTimeout); err != nil {
		log.Error(ctx, "dispatcher shutdown drain failed", "error", err)
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "cron scheduler stop failed", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error(ctx, "tracer shutdown failed", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "http server shutdown failed", "error", err)
	}
	if err := repo.Close(); err != nil {
		log.Error(ctx, "repository close failed", "error", err)
	}

	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/events"
	"github.com/joseph-ayodele/contract-analyzer/internal/export"
	"github.com/joseph-ayodele/contract-analyzer/internal/extract"
	"github.com/joseph-ayodele/contract-analyzer/internal/llm/openai"
	"github.com/joseph-ayodele/contract-analyzer/internal/locale"
	"github.com/joseph-ayodele/contract-analyzer/internal/ocr"
	"github.com/joseph-ayodele/contract-analyzer/internal/pipeline"
	repo "github.com/joseph-ayodele/contract-analyzer/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		file      = flag.String("file", "", "contract to analyze, .pdf or .docx (required)")
		dbPath    = flag.String("db", "", "SQLite file to keep the run in (optional, defaults to an in-memory database)")
		lang      = flag.String("lang", constants.LangEnglish, "output language: "+strings.Join(constants.SupportedLanguages, ", "))
		role      = flag.String("role", "", "your role in the contract, e.g. tenant")
		available = flag.String("available", "", "comma-separated referenced documents you also have")
		out       = flag.String("out", "", "output XLSX file path (optional)")
		md        = flag.String("md", "", "write the markdown report here instead of stdout (optional)")
	)
	flag.Parse()

	// Validate required flags
	if *file == "" {
		printError("Error: --file is required\n")
		os.Exit(1)
	}
	if constants.MapExtToFormat(filepath.Ext(*file)) == "" {
		printError("Error: --file must be a .pdf or .docx file\n")
		os.Exit(1)
	}
	if !constants.IsSupportedLanguage(*lang) {
		printError("Error: --lang must be one of %s\n", strings.Join(constants.SupportedLanguages, ", "))
		os.Exit(1)
	}
	location, err := filepath.Abs(*file)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()

	// Logs go to stderr so the report can be piped
	logger := common.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cfg.LLM.APIKey == "" {
		printError("Error: LLM_API_KEY env var is required\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	path := *dbPath
	if path == "" {
		path = ":memory:"
	}
	db, err := repo.OpenSQLite(ctx, path, logger)
	if err != nil {
		printError("Error: open database: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close(db, logger)
	if err := repo.Migrate(ctx, db.Driver); err != nil {
		printError("Error: migrate database: %v\n", err)
		os.Exit(1)
	}

	docsRepo := repo.NewDocumentRepository(db.Driver, logger)
	runsRepo := repo.NewAnalysisRunRepository(db.Driver, logger)
	deadlinesRepo := repo.NewDeadlineRepository(db.Driver, logger)
	channel := events.NewChannel(repo.NewEventRepository(db.Driver, logger), logger)

	llmCfg, err := openai.ConfigFor(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	llmCfg.Temperature, llmCfg.MaxTokens, llmCfg.Timeout = cfg.LLM.Temperature, cfg.LLM.MaxTokens, cfg.LLM.Timeout

	var fallback extract.OCR
	if cfg.OCR.Enabled {
		engine := ocr.NewEngine(ocr.Config{
			TesseractLang: cfg.OCR.TesseractLang,
			TessdataDir:   cfg.OCR.TessdataDir,
			MaxPages:      cfg.OCR.MaxPages,
			PageTimeout:   cfg.OCR.PageTimeout,
			TotalTimeout:  cfg.OCR.TotalTimeout,
		}, logger)
		if engine.Available() {
			fallback = extract.NewOCRAdapter(engine, logger)
		}
	}

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Runs:      runsRepo,
		Documents: docsRepo,
		Deadlines: deadlinesRepo,
		Events:    channel,
		Extractor: extract.NewExtractor(extract.DefaultConfig(), fallback, logger),
		Gateway:   openai.NewClient(llmCfg, logger),
		Catalog:   locale.Default(),
	}, pipeline.OptionsFrom(cfg.Pipeline, cfg.LLM), logger)

	now := time.Now().UTC()
	doc := &entity.Document{
		ID:        uuid.New(),
		Location:  location,
		Filename:  filepath.Base(location),
		Format:    constants.MapExtToFormat(filepath.Ext(location)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := docsRepo.Create(ctx, doc); err != nil {
		printError("Error: register document: %v\n", err)
		os.Exit(1)
	}
	run := entity.NewAnalysisRun(doc.ID, *lang, *role, splitList(*available))
	if err := runsRepo.Create(ctx, run); err != nil {
		printError("Error: create run: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	if err := orch.Run(ctx, run.ID); err != nil {
		printError("Error: analysis failed: %v\n", err)
		os.Exit(1)
	}

	final, err := runsRepo.Get(ctx, run.ID)
	if err != nil {
		printError("Error: load run: %v\n", err)
		os.Exit(1)
	}
	logger.Info("analysis finished",
		"run_id", final.ID,
		"status", final.Status,
		"tokens", final.TokensUsed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if final.Status != constants.RunStatusSucceeded {
		msg := "unknown error"
		if final.ErrorMessage != nil {
			msg = *final.ErrorMessage
		}
		printError("Analysis did not complete: %s\n", msg)
		os.Exit(3)
	}

	report := pipeline.RenderMarkdown(final.FormattedOutput, locale.Default())
	if *md != "" {
		if err := os.WriteFile(*md, []byte(report), 0o644); err != nil {
			printError("Error: write report: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Print(report)
	}

	if *out != "" {
		data, err := export.NewService(runsRepo, deadlinesRepo, logger).ExportRunXLSX(ctx, run.ID)
		if err != nil {
			printError("Error: export: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			printError("Error: write %s: %v\n", *out, err)
			os.Exit(1)
		}
		logger.Info("export written", "path", *out, "bytes", len(data))
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

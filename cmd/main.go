package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"contract-review/internal/chunker"
	"contract-review/internal/config"
	"contract-review/internal/dispatch"
	"contract-review/internal/doctree"
	"contract-review/internal/export"
	"contract-review/internal/helper"
	"contract-review/internal/importer"
	"contract-review/internal/llmservice"
	"contract-review/internal/patch"
	"contract-review/internal/review"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	filePath := flag.String("file", "", "Path to the contract file")
	out := flag.String("out", "findings.xlsx", "Path of the findings report")
	applyAll := flag.Bool("apply", false, "Apply every finding to the document")
	dryRun := flag.Bool("dry-run", false, "Chunk and score batches without calling the model")
	flag.Parse()

	if *filePath == "" {
		log.Fatal().Msg("Please provide a contract file using the -file flag")
	}

	reviewContract(context.Background(), *filePath, *out, *applyAll, *dryRun)
}

func reviewContract(ctx context.Context, filePath, out string, applyAll, dryRun bool) {
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Warn().Err(err).Msg("Config not found, using defaults")
		cfg = config.Default()
	}
	log.Debug().Interface("config", cfg.Review).Msg("Loaded config")

	doc, err := importer.Import(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error importing contract")
	}
	blocks := doc.Blocks()
	log.Info().Int("blocks", len(blocks)).Msg("Imported contract")

	if dryRun {
		jobs := chunker.Chunk(blocks, cfg.Review.BatchCharBudget)
		for i, j := range jobs {
			log.Info().
				Int("batch", i).
				Int("blocks", len(j.Blocks)).
				Int("chars", len(j.SerializedText)).
				Float64("relevance", dispatch.RelevanceScore(j, cfg.Review.RelevanceRules)).
				Msg("batch")
		}
		return
	}

	client, err := llmservice.NewClient(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing generation client")
	}

	session := review.NewSession(doc, cfg, client)
	sum, err := session.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error running review")
	}
	log.Info().
		Int("batches", sum.Batches).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Int("findings", len(sum.Findings)).
		Int("recovered", sum.Recovered).
		Msg("Review run finished")

	if applyAll {
		for _, f := range session.Findings() {
			err := session.Accept(f.TargetID)
			switch {
			case err == nil:
			case errors.Is(err, doctree.ErrBlockNotFound), errors.Is(err, patch.ErrNoText):
				// the block vanished or holds no text: nothing to patch
				log.Warn().Err(err).Str("id", f.TargetID).Msg("Skipping finding")
			default:
				log.Error().Err(err).Str("id", f.TargetID).Msg("Error applying finding")
			}
		}
	}

	if out != "" {
		if err := export.WriteFindings(out, session.Findings()); err != nil {
			log.Fatal().Err(err).Msg("Error writing findings report")
		}
	}

	helper.PrettyPrint(session.Findings())
}

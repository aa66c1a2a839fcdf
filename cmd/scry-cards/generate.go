package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/phrazzld/scry-cards/internal/chunking"
	"github.com/phrazzld/scry-cards/internal/config"
	"github.com/phrazzld/scry-cards/internal/domain"
	"github.com/phrazzld/scry-cards/internal/events"
	"github.com/phrazzld/scry-cards/internal/extract"
	"github.com/phrazzld/scry-cards/internal/generation"
	"github.com/phrazzld/scry-cards/internal/outline"
	"github.com/phrazzld/scry-cards/internal/pipeline"
	"github.com/phrazzld/scry-cards/internal/platform/logger"
	"github.com/phrazzld/scry-cards/internal/platform/provider"
	"github.com/phrazzld/scry-cards/internal/tokenizer"
	"github.com/urfave/cli/v3"
)

// errUsage is returned for invalid command-line input.
var errUsage = errors.New("invalid usage")

// generateRequest holds the parsed flags of the generate command.
type generateRequest struct {
	ConfigPath   string
	InputPath    string
	OutputPath   string
	CardTypes    []string
	Granularity  int
	Instructions string
	Subdecks     bool
	Images       []string
}

func runGenerate(ctx context.Context, cmd *cli.Command, stdout io.Writer) error {
	return generate(ctx, generateRequest{
		ConfigPath:   cmd.String("config"),
		InputPath:    cmd.String("input"),
		OutputPath:   cmd.String("output"),
		CardTypes:    cmd.StringSlice("card-type"),
		Granularity:  int(cmd.Int("granularity")),
		Instructions: cmd.String("instructions"),
		Subdecks:     cmd.Bool("subdecks"),
		Images:       cmd.StringSlice("image"),
	}, stdout)
}

func generate(ctx context.Context, req generateRequest, stdout io.Writer) error {
	cfg, err := config.LoadFile(req.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	images, err := parseImages(req.Images)
	if err != nil {
		return err
	}

	emitter := events.NewEmitter(log, events.NewLogHandler(log))
	progress := emitter.Func()

	progress.Report(ctx, events.Progress{
		Stage:   events.StageExtracting,
		Message: "Extracting text from " + req.InputPath,
	})
	content, err := extract.FromFile(ctx, req.InputPath)
	if err != nil {
		progress.Report(ctx, events.Progress{
			Stage:    events.StageError,
			Message:  err.Error(),
			Progress: events.ErrorPercent,
		})
		return fmt.Errorf("failed to read input: %w", err)
	}

	p, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}

	deck, err := p.GenerateDeck(ctx, domain.GenerationOptions{
		Content:            content,
		CardTypes:          parseCardTypes(req.CardTypes),
		Granularity:        req.Granularity,
		CustomInstructions: req.Instructions,
		CreateSubdecks:     req.Subdecks,
		Images:             images,
	}, progress)
	if err != nil {
		return err
	}

	return writeDeck(deck, req.OutputPath, stdout)
}

// buildPipeline wires the backend, generator, outliner and processor
// described by cfg.
func buildPipeline(ctx context.Context, cfg *config.Config, log *slog.Logger) (*pipeline.Pipeline, error) {
	profile, err := cfg.Pipeline.TierProfile()
	if err != nil {
		return nil, err
	}

	backend, err := provider.New(ctx, cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", cfg.LLM.Provider, err)
	}

	counter := tokenizer.New(log)

	gen, err := generation.NewFlashcardGenerator(backend, log, generation.GeneratorConfig{
		PromptTemplatePath: cfg.LLM.PromptTemplatePath,
		VerifyFacts:        cfg.Pipeline.VerifyFacts,
		ReviewThreshold:    cfg.Pipeline.ReviewThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	outliner, err := outline.New(backend, counter, outline.Config{
		MaxTokensPerPass: cfg.Pipeline.OutlineMaxTokensPerPass,
		OverlapTokens:    cfg.Pipeline.OverlapTokens,
		CacheTTL:         cfg.Pipeline.OutlineCacheTTL,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create outliner: %w", err)
	}

	processor, err := pipeline.NewProcessor(gen, counter, profile, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	log.InfoContext(ctx, "Pipeline configured",
		"provider", backend.Name(),
		"model", cfg.LLM.ModelName,
		"outline_model", cfg.LLM.OutlineModel(),
		"tier", profile.Name,
		"max_concurrency", profile.MaxConcurrency)

	return pipeline.New(counter, outliner, processor, pipeline.Config{
		SinglePassThreshold: cfg.Pipeline.SinglePassThreshold,
		Chunking: chunking.Options{
			MaxTokens:         cfg.Pipeline.MaxChunkTokens,
			OverlapTokens:     cfg.Pipeline.OverlapTokens,
			MatchHeadingsOnly: cfg.Pipeline.MatchHeadingsOnly,
		},
	}, log)
}

func parseCardTypes(values []string) []domain.CardType {
	var types []domain.CardType
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				types = append(types, domain.CardType(part))
			}
		}
	}
	return types
}

// parseImages parses "url" or "url#page" values. A fragment that is not a
// positive integer is kept as part of the URL.
func parseImages(values []string) ([]domain.ImageRef, error) {
	images := make([]domain.ImageRef, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		ref := domain.ImageRef{URL: v}
		if i := strings.LastIndex(v, "#"); i > 0 {
			if page, err := strconv.Atoi(v[i+1:]); err == nil {
				if page < 1 {
					return nil, fmt.Errorf("%w: invalid page number in image %q", errUsage, v)
				}
				ref = domain.ImageRef{URL: v[:i], PageNumber: &page}
			}
		}
		images = append(images, ref)
	}
	return images, nil
}

func writeDeck(deck *pipeline.Deck, path string, stdout io.Writer) error {
	data, err := json.MarshalIndent(deck, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deck: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write deck: %w", err)
	}
	return nil
}

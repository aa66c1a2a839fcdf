// Package main implements the scry-cards command, which turns study material
// into a deck of flashcards using a language model.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdout).Run(ctx, os.Args); err != nil {
		slog.Error("scry-cards failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func newCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "scry-cards",
		Usage: "Generate flashcard decks from documents",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate flashcards from a document",
				Flags: generateFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runGenerate(ctx, cmd, stdout)
				},
			},
		},
	}
}

func generateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file",
			Sources: cli.EnvVars("SCRY_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "Document to read (.txt, .md or .pdf)",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "card-type",
			Usage: "Card type to generate (qa, cloze, reverse); repeatable",
			Value: []string{"qa"},
		},
		&cli.IntFlag{
			Name:  "granularity",
			Usage: "Level of detail from 1 (essentials) to 7 (exhaustive)",
			Value: 5,
		},
		&cli.StringFlag{
			Name:  "instructions",
			Usage: "Extra instructions appended to the prompt",
		},
		&cli.BoolFlag{
			Name:  "subdecks",
			Usage: "Group cards into sub-decks by subtopic",
		},
		&cli.StringSliceFlag{
			Name:  "image",
			Usage: "Reference image as url or url#page; repeatable",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the deck JSON to this file instead of stdout",
		},
	}
}

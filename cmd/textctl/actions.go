package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/app"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/wordfreq"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// setup loads configuration and points logging at stderr so stdout carries
// only results.
func setup(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if c.Bool("quiet") {
		level = "error"
	}
	logger.SetupWriter(c.App.ErrWriter, level, "text")
	return cfg, nil
}

// readInput returns the text from --text or --file. fromFile reports the
// latter.
func readInput(c *cli.Context) (text string, fromFile bool, err error) {
	switch {
	case c.String("text") != "" && c.String("file") != "":
		return "", false, fmt.Errorf("use either --text or --file, not both")
	case c.String("file") != "":
		path := c.String("file")
		if !strings.HasSuffix(strings.ToLower(path), ".txt") {
			slog.Warn("input file does not have a .txt extension", "file", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", true, fmt.Errorf("reading %s: %w", path, err)
		}
		text, err := analysis.DecodeText(data)
		return text, true, err
	default:
		return c.String("text"), false, nil
	}
}

func wordsAction(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}
	text, _, err := readInput(c)
	if err != nil {
		return err
	}
	svc := analysis.New(cfg.Analysis, analysis.Deps{})
	top := c.Int("top")
	if top == 0 {
		top = math.MaxInt32
	}
	words, err := svc.Words(c.Context, text, top)
	if err != nil {
		return err
	}
	if words == nil {
		words = wordfreq.Frequencies{}
	}
	return write(c.App.Writer, c.String("format"), words)
}

func analyzeAction(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}
	text, fromFile, err := readInput(c)
	if err != nil {
		return err
	}

	scorer, _ := app.NewScorer(cfg.Sentiment)
	translator, _, err := app.NewTranslator(cfg.Translation, nil)
	if err != nil {
		return err
	}
	deps := analysis.Deps{Scorer: scorer}
	if translator != nil {
		deps.Translator = translator
	}
	if c.Bool("save") {
		store, err := app.OpenHistory(c.Context, cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			deps.History = store
		}
	}

	if fromFile {
		fmt.Fprintf(c.App.Writer, "# Vista previa del texto:\n# %s\n",
			strings.ReplaceAll(analysis.Preview(text, cfg.Analysis.PreviewRunes), "\n", "\n# "))
	}
	report, err := analysis.New(cfg.Analysis, deps).Analyze(c.Context, text)
	if err != nil {
		return err
	}
	return write(c.App.Writer, c.String("format"), report)
}

func historyAction(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}
	store, err := app.OpenHistory(c.Context, cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("history is disabled (driver %q)", cfg.History.Driver)
	}
	defer store.Close()
	records, err := store.List(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	return write(c.App.Writer, c.String("format"), records)
}

func keygenAction(c *cli.Context) error {
	raw, hash, err := apikey.Generate()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "key:    %s\nsha256: %s\n", raw, hash)
	return nil
}

func stopwordsAction(c *cli.Context) error {
	for _, w := range wordfreq.Stopwords() {
		fmt.Fprintln(c.App.Writer, w)
	}
	return nil
}

func write(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

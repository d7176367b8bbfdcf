/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/bhilidoc/internal"
	"github.com/valpere/bhilidoc/internal/config"
	"github.com/valpere/bhilidoc/internal/document"
	"github.com/valpere/bhilidoc/internal/pipeline"
	"github.com/valpere/bhilidoc/internal/store"
	"github.com/valpere/bhilidoc/internal/translator"
)

const (
	sourceDumpName     = "text.txt"
	translatedDumpName = "bhili_text.txt"
)

var inputFile string

var translateFlags = map[string]string{
	"lang":               "lang",
	"target":             "target",
	"service":            "service",
	"adivani.url":        "adivani-url",
	"adivani.user_id":    "user-id",
	"google.credentials": "credentials",
	"timeout":            "timeout",
	"concurrency":        "concurrency",
	"rps":                "rps",
	"output":             "output",
	"dump_dir":           "dump-dir",
	"journal":            "journal",
}

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a .docx or .pdf document into Bhili",
	Long: `Translate a document block by block and write a .docx result.

Each paragraph, table cell or PDF line is split into sentences, and every
sentence is sent to the translation service on its own. A sentence the
service cannot translate keeps its original text, so the run completes
even when the service is unreachable.

Intermediate block dumps (text.txt, bhili_text.txt) are written to
--dump-dir; pass --dump-dir "" to skip them.

Available services:
  - adivani   Aadivaani tribal language service (default)
  - google    Google Cloud Translation (requires credentials)`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(v, cmd.Flags(), translateFlags)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(v)
		if err := cfg.Validate(); err != nil {
			return err
		}

		svc, err := buildService(cfg)
		if err != nil {
			return err
		}
		if c, ok := svc.(io.Closer); ok {
			defer c.Close()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runTranslation(ctx, translationJob{
			input:  inputFile,
			cfg:    cfg,
			svc:    svc,
			log:    logger,
			stdout: cmd.OutOrStdout(),
		})
	},
}

type translationJob struct {
	input  string
	cfg    config.Config
	svc    translator.TranslationService
	log    *zap.Logger
	stdout io.Writer
}

// runTranslation runs extraction, translation and reconstruction for one
// document. Nothing is written to the output path unless every stage
// succeeds.
func runTranslation(ctx context.Context, job translationJob) (err error) {
	cfg, log := job.cfg, job.log

	format, err := document.DetectFormat(job.input)
	if err != nil {
		return err
	}
	if err := checkPaths(job.input, cfg.Output); err != nil {
		return err
	}

	log.Info("extracting blocks",
		zap.String("file", job.input),
		zap.Stringer("format", format),
		zap.String("source_lang", cfg.Lang),
		zap.String("target_lang", cfg.Target),
	)
	seq, err := document.Extract(ctx, job.input, format, log)
	if err != nil {
		return err
	}
	log.Info("blocks extracted", zap.Int("blocks", len(seq)))

	if err := writeDump(cfg.DumpDir, sourceDumpName, seq.Texts()); err != nil {
		return err
	}

	var journal *store.Store
	var runID string
	if cfg.Journal != "" {
		if journal, runID, err = startJournal(ctx, cfg, job.input, format, job.svc.Name()); err != nil {
			return err
		}
		defer journal.Close()
	}

	var blocks []pipeline.TranslatedBlock
	defer func() {
		if journal == nil {
			return
		}
		status := store.StatusCompleted
		if err != nil {
			status = store.StatusFailed
		}
		if jerr := finishJournal(context.WithoutCancel(ctx), journal, runID, status, blocks, err); jerr != nil {
			log.Warn("failed to update run journal", zap.String("run_id", runID), zap.Error(jerr))
		}
	}()

	client := translator.NewClient(job.svc, translator.ClientConfig{
		SourceLang: cfg.Lang,
		TargetLang: cfg.Target,
		RPS:        cfg.RPS,
		Burst:      max(1, cfg.Concurrency),
	}, log)

	sugar := log.Sugar()
	p := pipeline.New(client, pipeline.Config{
		Lang:        cfg.Lang,
		Concurrency: cfg.Concurrency,
		Progress: func(done, total int, b pipeline.TranslatedBlock) {
			sugar.Infof("Translating block %d/%d", done, total)
		},
	}, log)

	start := time.Now()
	blocks, err = p.Run(ctx, seq)
	if err != nil {
		return fmt.Errorf("translation aborted: %w", err)
	}
	texts := pipeline.Texts(blocks)

	if err := writeDump(cfg.DumpDir, translatedDumpName, texts); err != nil {
		return err
	}

	if err := reconstruct(job.input, format, cfg.Output, texts, seq.Texts()); err != nil {
		return err
	}

	stats := pipeline.Summarize(blocks)
	log.Info("translation finished",
		zap.Int("blocks", stats.Blocks),
		zap.Int("sentences", stats.Sentences),
		zap.Int("fallbacks", stats.Fallbacks),
		zap.Duration("elapsed", time.Since(start)),
	)
	if stats.Fallbacks > 0 {
		log.Warn("some sentences kept their original text", zap.Int("fallbacks", stats.Fallbacks))
	}

	fmt.Fprintf(job.stdout, "Translation saved to %s\n", cfg.Output)
	return nil
}

// reconstruct writes texts into output: a fresh document for paginated
// sources, an in-place rewrite of input otherwise. expect, when non-nil,
// holds the source text of every block for a per-unit alignment check.
func reconstruct(input string, format document.Format, output string, texts, expect []string) error {
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return document.WriteFile(output, func(w io.Writer) error {
		if format == document.FormatPaginated {
			return document.Build(w, texts)
		}
		return document.Rewrite(input, w, texts, document.RewriteOptions{Expect: expect})
	})
}

func writeDump(dir, name string, texts []string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	if err := document.WriteBlocks(filepath.Join(dir, name), texts); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func checkPaths(input, output string) error {
	in, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	if in == out {
		return errors.New("input file and output file cannot be the same")
	}
	return nil
}

func startJournal(ctx context.Context, cfg config.Config, input string, format document.Format, service string) (*store.Store, string, error) {
	if dir := filepath.Dir(cfg.Journal); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, "", fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	db, err := store.New(cfg.Journal)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open journal: %w", err)
	}
	runID, err := db.StartRun(ctx, internal.RunRequest{
		InputFile:  input,
		Format:     format.String(),
		SourceLang: cfg.Lang,
		TargetLang: cfg.Target,
		Service:    service,
		OutputFile: cfg.Output,
		Timestamp:  time.Now(),
	})
	if err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to start run: %w", err)
	}
	return db, runID, nil
}

func finishJournal(ctx context.Context, db *store.Store, runID, status string, blocks []pipeline.TranslatedBlock, runErr error) error {
	if len(blocks) > 0 {
		records := make([]store.BlockRecord, len(blocks))
		for i, b := range blocks {
			records[i] = store.BlockRecord{
				Index:          b.Index,
				Unit:           b.Unit,
				SourceText:     b.Source,
				TranslatedText: b.Text,
				Fallbacks:      b.Fallbacks(),
			}
		}
		if err := db.SaveBlocks(ctx, runID, records); err != nil {
			return err
		}
	}
	stats := pipeline.Summarize(blocks)
	return db.FinishRun(ctx, runID, status, store.RunStats{
		Blocks:    stats.Blocks,
		Sentences: stats.Sentences,
		Fallbacks: stats.Fallbacks,
	}, runErr)
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Input document, .docx or .pdf (required)")
	translateCmd.Flags().StringP("lang", "l", "", "Source language: hi or en (required)")
	translateCmd.Flags().StringP("output", "o", "bhili.docx", "Output .docx file")
	translateCmd.Flags().StringP("target", "t", translator.DefaultAdivaniTarget, "Target language")
	translateCmd.Flags().String("service", "adivani", "Translation service: adivani or google")
	translateCmd.Flags().String("adivani-url", translator.DefaultAdivaniURL, "Aadivaani translation endpoint")
	translateCmd.Flags().String("user-id", translator.DefaultAdivaniUserID, "Aadivaani user id")
	translateCmd.Flags().StringP("credentials", "c", "", "Path to Google Cloud credentials")
	translateCmd.Flags().Duration("timeout", translator.DefaultTimeout, "Per-request timeout")
	translateCmd.Flags().Int("concurrency", 1, "Blocks translated at once (1 = sequential)")
	translateCmd.Flags().Float64("rps", 0, "Maximum requests per second (0 = unlimited)")
	translateCmd.Flags().String("dump-dir", ".", "Directory for text.txt and bhili_text.txt")
	translateCmd.Flags().String("journal", "", "SQLite run journal path (empty disables)")

	translateCmd.MarkFlagRequired("file")
	translateCmd.MarkFlagRequired("lang")
}

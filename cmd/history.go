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
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/bhilidoc/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the run journal",
	Long: `List, inspect, and clear the SQLite journal of translation runs.

The journal is written by "translate --journal <path>" and records what was
sent and received for every block. It is never used to translate text.`,
}

func openJournal() (*store.Store, error) {
	path := v.GetString("journal")
	if path == "" {
		return nil, errors.New("no journal configured (use --journal or BHILIDOC_JOURNAL)")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return db, nil
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openJournal()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs in journal.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tLANG\tSERVICE\tBLOCKS\tFALLBACKS\tFILE")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s>%s\t%s\t%d\t%d\t%s\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Status,
				r.SourceLang, r.TargetLang, r.Service, r.Blocks, r.Fallbacks, r.InputFile)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its blocks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openJournal()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		run, err := db.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		blocks, err := db.RunBlocks(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to load blocks: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run:       %s\n", run.ID)
		fmt.Fprintf(out, "Input:     %s (%s)\n", run.InputFile, run.Format)
		fmt.Fprintf(out, "Output:    %s\n", run.OutputFile)
		fmt.Fprintf(out, "Languages: %s > %s via %s\n", run.SourceLang, run.TargetLang, run.Service)
		fmt.Fprintf(out, "Status:    %s\n", run.Status)
		if run.Error != "" {
			fmt.Fprintf(out, "Error:     %s\n", run.Error)
		}
		fmt.Fprintf(out, "Blocks:    %d (%d sentences, %d fallbacks)\n", run.Blocks, run.Sentences, run.Fallbacks)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\n#\tUNIT\tFALLBACKS\tSOURCE\tTRANSLATION")
		for _, b := range blocks {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", b.Index, b.Unit, b.Fallbacks, snippet(b.SourceText), snippet(b.TranslatedText))
		}
		return w.Flush()
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all runs from the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openJournal()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearRuns(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear journal: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d runs from journal.\n", n)
		return nil
	},
}

// snippet shortens text for table output without splitting a rune.
func snippet(text string) string {
	r := []rune(text)
	if len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return text
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().String("journal", "", "SQLite run journal path")
	// Cobra runs only the closest persistent hook, so the root one is chained.
	historyCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return v.BindPFlag("journal", historyCmd.PersistentFlags().Lookup("journal"))
	}
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list (0 = all)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
}

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
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/bhilidoc/internal/document"
)

var (
	rebuildFile   string
	rebuildBlocks string
	rebuildOutput string
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the output document from a translated block dump",
	Long: `Write a .docx from an edited or recovered block dump such as
bhili_text.txt.

For a .pdf original a new document is built with one paragraph per block.
For a .docx original every non-empty paragraph and table cell is replaced in
order; the number of blocks must match the number of non-empty units exactly
or nothing is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := document.DetectFormat(rebuildFile)
		if err != nil {
			return err
		}
		if err := checkPaths(rebuildFile, rebuildOutput); err != nil {
			return err
		}

		texts, err := document.ReadBlocks(rebuildBlocks)
		if err != nil {
			return fmt.Errorf("failed to read blocks: %w", err)
		}

		err = reconstruct(rebuildFile, format, rebuildOutput, texts, nil)
		var ae *document.AlignmentError
		if errors.As(err, &ae) {
			logger.Error("reconstruction aborted",
				zap.Int("original_blocks", ae.SourceUnits),
				zap.Int("translated_blocks", ae.TranslatedBlocks),
			)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Translation saved to %s\n", rebuildOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)

	rebuildCmd.Flags().StringVarP(&rebuildFile, "file", "f", "", "Original .docx or .pdf document (required)")
	rebuildCmd.Flags().StringVarP(&rebuildBlocks, "blocks", "b", translatedDumpName, "Translated block dump")
	rebuildCmd.Flags().StringVarP(&rebuildOutput, "output", "o", "bhili.docx", "Output .docx file")

	rebuildCmd.MarkFlagRequired("file")
}

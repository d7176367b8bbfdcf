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
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/bhilidoc/internal/document"
)

var (
	extractFile string
	extractOut  string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the text blocks of a document into a block dump",
	Long: `Extract the non-empty text blocks of a .docx or .pdf document and write
them one per line, in the order the translate command would send them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := document.DetectFormat(extractFile)
		if err != nil {
			return err
		}

		seq, err := document.Extract(context.Background(), extractFile, format, logger)
		if err != nil {
			return err
		}
		if err := document.WriteBlocks(extractOut, seq.Texts()); err != nil {
			return fmt.Errorf("failed to write blocks: %w", err)
		}

		logger.Debug("blocks extracted", zap.String("file", extractFile), zap.Int("blocks", len(seq)))
		fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d blocks to %s\n", len(seq), extractOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Input document, .docx or .pdf (required)")
	extractCmd.Flags().StringVar(&extractOut, "out", sourceDumpName, "Block dump to write")

	extractCmd.MarkFlagRequired("file")
}

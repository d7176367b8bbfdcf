package internal

import "time"

// RunRequest describes one document translation run as it is started.
type RunRequest struct {
	ID         string    `json:"id"`
	InputFile  string    `json:"input_file"`
	Format     string    `json:"format"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Service    string    `json:"service"`
	OutputFile string    `json:"output_file"`
	Timestamp  time.Time `json:"timestamp"`
}

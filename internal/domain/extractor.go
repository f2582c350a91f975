package domain

import "context"

// Extractor turns raw document text into an ordered question sequence.
// Warnings describe recoverable oddities and never imply failure.
type Extractor interface {
	Extract(ctx context.Context, rawText string) ([]Question, []string, error)
}

// ExtractionStrategy is one entry of the ordered extractor chain tried by the ingestion pipeline.
type ExtractionStrategy struct {
	Mode      ParseMode
	Progress  int
	Extractor Extractor
}

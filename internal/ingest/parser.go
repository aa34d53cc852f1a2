package ingest

import (
	"io"

	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

// Parser reads a monthly series from a source.
type Parser interface {
	Parse(r io.Reader) ([]model.SeriesPoint, error)
}

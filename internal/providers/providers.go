package providers

import (
	"context"
	"time"

	"github.com/lehigh-university-libraries/humandex/internal/models"
)

// Config represents the configuration for a generative model call
type Config struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Analyzer turns a captured image into a creature profile.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, tone models.Tone) (*models.AnalysisRecord, error)
}

// Synthesizer turns text into narration. The returned payload is base64
// encoded raw PCM; an empty payload with a nil error means the service
// answered without audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

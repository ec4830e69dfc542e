package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/humandex/internal/metrics"
	"github.com/lehigh-university-libraries/humandex/internal/models"
	"github.com/lehigh-university-libraries/humandex/internal/providers"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"
)

var (
	// ErrEmptyImage is returned before any network call when there is no image.
	ErrEmptyImage = errors.New("image is empty")
	// ErrAnalysisUnavailable covers call failures, timeouts and empty responses.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
	// ErrAnalysisMalformed means the response did not match the record shape.
	ErrAnalysisMalformed = errors.New("analysis response malformed")
)

// DefaultAnalysisModel is used when no model is configured.
const DefaultAnalysisModel = "gemini-2.5-flash"

// contentGenerator is the part of *genai.GenerativeModel the analyzer uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Analyzer turns a photo into an AnalysisRecord with one Gemini call.
type Analyzer struct {
	client  *genai.Client
	model   contentGenerator
	timeout time.Duration
	metrics *metrics.Metrics
}

var _ providers.Analyzer = (*Analyzer)(nil)

// NewAnalyzer creates a Gemini client for the configured model.
func NewAnalyzer(ctx context.Context, apiKey string, config providers.Config, m *metrics.Metrics) (*Analyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	if config.Model == "" {
		config.Model = DefaultAnalysisModel
	}
	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = analysisSchema

	return &Analyzer{
		client:  client,
		model:   model,
		timeout: config.Timeout,
		metrics: m,
	}, nil
}

// Close releases the underlying client.
func (a *Analyzer) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

// Analyze sends the image with the tone's prompt and returns the parsed record.
// There is no retry.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, tone models.Tone) (record *models.AnalysisRecord, err error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	if !tone.Valid() {
		tone = models.DefaultTone
	}

	ctx, span := metrics.StartSpan(ctx, "gemini.analyze",
		attribute.String("tone", string(tone)),
		attribute.Int("image_bytes", len(image)),
	)
	defer func() { metrics.EndSpan(span, err) }()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := a.generate(ctx, image, tone)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		a.metrics.RecordGatewayRequest("analysis", metrics.OutcomeUnavailable, elapsed)
		return nil, err
	}

	record, err = parseAnalysis(text)
	if err != nil {
		a.metrics.RecordGatewayRequest("analysis", metrics.OutcomeMalformed, elapsed)
		slog.Warn("Analysis response did not match schema", "err", err, "length", len(text))
		return nil, err
	}

	a.metrics.RecordGatewayRequest("analysis", metrics.OutcomeSuccess, elapsed)
	slog.Debug("Analysis complete", "species", record.SpeciesName, "tone", tone, "seconds", elapsed)
	return record, nil
}

func (a *Analyzer) generate(ctx context.Context, image []byte, tone models.Tone) (string, error) {
	resp, err := a.model.GenerateContent(ctx,
		genai.ImageData(imageFormat(image), image),
		genai.Text(buildAnalysisPrompt(tone)),
	)
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate content: %w", ErrAnalysisUnavailable, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned from Gemini", ErrAnalysisUnavailable)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content returned from Gemini", ErrAnalysisUnavailable)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: no text in Gemini response", ErrAnalysisUnavailable)
	}
	return sb.String(), nil
}

// imageFormat sniffs the image subtype genai.ImageData expects for the
// formats images.Validate accepts. Unknown data is sent as jpeg.
func imageFormat(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	default:
		return "jpeg"
	}
}

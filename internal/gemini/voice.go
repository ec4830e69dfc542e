package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/humandex/internal/metrics"
	"github.com/lehigh-university-libraries/humandex/internal/providers"
	"go.opentelemetry.io/otel/attribute"
)

// ErrVoiceUnavailable covers transport failures, non-200 responses and
// undecodable response bodies from the speech endpoint.
var ErrVoiceUnavailable = errors.New("voice unavailable")

const (
	// DefaultVoiceModel is the speech synthesis model.
	DefaultVoiceModel = "gemini-2.5-flash-preview-tts"
	// DefaultVoiceName is the prebuilt voice narration uses.
	DefaultVoiceName = "Fenrir"
	// DefaultBaseURL is the Gemini REST endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Voice synthesizes narration through the Gemini REST API. The Go SDK does
// not expose speech configuration, so the request is built by hand.
type Voice struct {
	baseURL    string
	apiKey     string
	model      string
	voiceName  string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
}

var _ providers.Synthesizer = (*Voice)(nil)

// VoiceOption customizes a Voice.
type VoiceOption func(*Voice)

// WithBaseURL points the voice gateway at another endpoint.
func WithBaseURL(u string) VoiceOption {
	return func(v *Voice) { v.baseURL = strings.TrimRight(u, "/") }
}

// WithVoiceName selects a prebuilt voice.
func WithVoiceName(name string) VoiceOption {
	return func(v *Voice) {
		if name != "" {
			v.voiceName = name
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) VoiceOption {
	return func(v *Voice) { v.httpClient = c }
}

// WithMetrics records gateway metrics.
func WithMetrics(m *metrics.Metrics) VoiceOption {
	return func(v *Voice) { v.metrics = m }
}

// NewVoice returns a voice gateway.
func NewVoice(apiKey string, config providers.Config, opts ...VoiceOption) *Voice {
	v := &Voice{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		model:      config.Model,
		voiceName:  DefaultVoiceName,
		timeout:    config.Timeout,
		httpClient: &http.Client{},
	}
	if v.model == "" {
		v.model = DefaultVoiceModel
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type speechRequest struct {
	Contents         []speechContent  `json:"contents"`
	GenerationConfig speechGeneration `json:"generationConfig"`
}

type speechContent struct {
	Parts []speechPart `json:"parts"`
}

type speechPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type speechGeneration struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type speechResponse struct {
	Candidates []struct {
		Content *speechContent `json:"content"`
	} `json:"candidates"`
}

// Synthesize reads text aloud and returns the base64 PCM payload exactly as
// the service sent it. An empty string with a nil error means the response
// carried no audio.
func (v *Voice) Synthesize(ctx context.Context, text string) (payload string, err error) {
	ctx, span := metrics.StartSpan(ctx, "gemini.synthesize",
		attribute.String("model", v.model),
		attribute.String("voice", v.voiceName),
		attribute.Int("text_length", len(text)),
	)
	defer func() { metrics.EndSpan(span, err) }()

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	start := time.Now()
	payload, err = v.synthesize(ctx, text)
	elapsed := time.Since(start).Seconds()

	switch {
	case err != nil:
		v.metrics.RecordGatewayRequest("voice", metrics.OutcomeUnavailable, elapsed)
	case payload == "":
		v.metrics.RecordGatewayRequest("voice", metrics.OutcomeAbsent, elapsed)
	default:
		v.metrics.RecordGatewayRequest("voice", metrics.OutcomeSuccess, elapsed)
	}
	return payload, err
}

func (v *Voice) synthesize(ctx context.Context, text string) (string, error) {
	body := speechRequest{
		Contents: []speechContent{{Parts: []speechPart{{Text: buildVoicePrompt(text)}}}},
		GenerationConfig: speechGeneration{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	body.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = v.voiceName

	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", v.baseURL, url.PathEscape(v.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create new request: %w", ErrVoiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to send request: %w", ErrVoiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: received non-200 status code: %d - %s", ErrVoiceUnavailable, resp.StatusCode, string(respBody))
	}

	var response speechResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("%w: failed to decode response body: %w", ErrVoiceUnavailable, err)
	}

	if len(response.Candidates) == 0 {
		slog.Debug("Voice response had no candidates")
		return "", nil
	}
	content := response.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0].InlineData == nil {
		slog.Debug("Voice response had no inline audio")
		return "", nil
	}

	return content.Parts[0].InlineData.Data, nil
}

package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/humandex/internal/models"
)

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	block bool
	calls int
	parts []genai.Part
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.parts = parts
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}}},
		},
	}
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestAnalyzeSuccess(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(validAnalysis)}
	a := &Analyzer{model: gen}

	record, err := a.Analyze(context.Background(), pngHeader, models.ToneFaithful)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if record.SpeciesName != "Caffeine Addict" {
		t.Errorf("Unexpected species: %s", record.SpeciesName)
	}

	if len(gen.parts) != 2 {
		t.Fatalf("Expected image and prompt parts, got %d", len(gen.parts))
	}
	blob, ok := gen.parts[0].(genai.Blob)
	if !ok {
		t.Fatalf("Expected first part to be a blob, got %T", gen.parts[0])
	}
	if blob.MIMEType != "image/png" {
		t.Errorf("Expected image/png, got %s", blob.MIMEType)
	}
	if prompt, ok := gen.parts[1].(genai.Text); !ok || string(prompt) != buildAnalysisPrompt(models.ToneFaithful) {
		t.Errorf("Expected faithful prompt as second part")
	}
}

func TestAnalyzeEmptyImage(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(validAnalysis)}
	a := &Analyzer{model: gen}

	if _, err := a.Analyze(context.Background(), nil, models.ToneSpicy); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("Expected no remote call, got %d", gen.calls)
	}
}

func TestAnalyzeUnknownToneFallsBackToSpicy(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(validAnalysis)}
	a := &Analyzer{model: gen}

	if _, err := a.Analyze(context.Background(), []byte("jpegish"), models.Tone("")); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if prompt, _ := gen.parts[1].(genai.Text); string(prompt) != buildAnalysisPrompt(models.ToneSpicy) {
		t.Error("Expected spicy prompt for empty tone")
	}
	if blob, _ := gen.parts[0].(genai.Blob); blob.MIMEType != "image/jpeg" {
		t.Errorf("Expected jpeg fallback, got %s", blob.MIMEType)
	}
}

func TestAnalyzeFailures(t *testing.T) {
	tests := []struct {
		name     string
		gen      *fakeGenerator
		expected error
	}{
		{"call error", &fakeGenerator{err: errors.New("503")}, ErrAnalysisUnavailable},
		{"no candidates", &fakeGenerator{resp: &genai.GenerateContentResponse{}}, ErrAnalysisUnavailable},
		{"nil content", &fakeGenerator{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}}, ErrAnalysisUnavailable},
		{"empty text", &fakeGenerator{resp: textResponse("   ")}, ErrAnalysisUnavailable},
		{"bad shape", &fakeGenerator{resp: textResponse(`{"speciesName":"A"}`)}, ErrAnalysisMalformed},
		{"prose", &fakeGenerator{resp: textResponse("I cannot analyze people.")}, ErrAnalysisMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Analyzer{model: tt.gen}
			record, err := a.Analyze(context.Background(), pngHeader, models.ToneNormal)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
			if record != nil {
				t.Errorf("Expected no record, got %+v", record)
			}
			if tt.gen.calls != 1 {
				t.Errorf("Expected exactly one call, got %d", tt.gen.calls)
			}
		})
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	a := &Analyzer{model: &fakeGenerator{block: true}, timeout: 20 * time.Millisecond}

	start := time.Now()
	_, err := a.Analyze(context.Background(), pngHeader, models.ToneSpicy)
	if !errors.Is(err, ErrAnalysisUnavailable) {
		t.Fatalf("Expected ErrAnalysisUnavailable, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Timeout was not applied")
	}
}

func TestImageFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"png", pngHeader, "png"},
		{"gif", []byte("GIF89a......"), "gif"},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10}, "jpeg"},
		{"unknown", []byte("hello"), "jpeg"},
		{"webp sent as jpeg", []byte("RIFF\x1a\x00\x00\x00WEBPVP8 "), "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := imageFormat(tt.data); got != tt.expected {
				t.Errorf("imageFormat() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Sink is where rendered narration ends up.
type Sink interface {
	Write(ctx context.Context, wav []byte) error
}

// SinkFactory opens the sink on first use.
type SinkFactory func() (Sink, error)

// Context is the process-wide playback context. The sink is opened lazily on
// the first Play and kept for the lifetime of the process. Each Play replaces
// the previous narration, so only the most recent one is audible.
type Context struct {
	playbackRate float64
	factory      SinkFactory

	mu     sync.Mutex
	sink   Sink
	latest []byte
}

// NewContext creates a playback context for SampleRate narration. Nothing is
// opened until Play.
func NewContext(playbackRate float64, factory SinkFactory) *Context {
	return &Context{
		playbackRate: playbackRate,
		factory:      factory,
	}
}

// Play decodes a base64 PCM payload and renders it to the sink.
func (c *Context) Play(ctx context.Context, payload string) error {
	raw, err := Decode(payload)
	if err != nil {
		return err
	}
	buf, err := DecodeForPlayback(raw, SampleRate)
	if err != nil {
		return err
	}
	wav, err := EncodeWAV(buf, c.playbackRate)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sink == nil {
		if c.factory == nil {
			return fmt.Errorf("audio context has no sink")
		}
		sink, err := c.factory()
		if err != nil {
			return fmt.Errorf("failed to open audio sink: %w", err)
		}
		c.sink = sink
	}

	c.latest = wav
	slog.Debug("Playing narration", "samples", len(buf.Samples), "duration", buf.Duration())
	return c.sink.Write(ctx, wav)
}

// Latest returns the most recently played WAV, if any.
func (c *Context) Latest() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return nil, false
	}
	return append([]byte(nil), c.latest...), true
}

// WAVFileSink writes each narration to the same file, replacing the last one.
type WAVFileSink struct {
	Path string
}

// NewWAVFileSink returns a factory for a sink writing to dir/narration.wav.
func NewWAVFileSink(dir string) SinkFactory {
	return func() (Sink, error) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		return &WAVFileSink{Path: filepath.Join(dir, "narration.wav")}, nil
	}
}

// Write replaces the file atomically.
func (s *WAVFileSink) Write(ctx context.Context, wav []byte) error {
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, wav, 0644); err != nil {
		return fmt.Errorf("failed to write narration: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("failed to replace narration: %w", err)
	}
	slog.Info("Narration written", "path", s.Path, "bytes", len(wav))
	return nil
}

// Package audio decodes synthesized narration and plays it through a single
// process-wide playback context.
//
// Narration arrives as base64 text wrapping headerless PCM: 24000 Hz, mono,
// 16-bit signed little-endian. Nothing in the payload describes that format,
// so it is fixed here rather than sniffed.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	// SampleRate is the rate agreed with the speech service.
	SampleRate = 24000
	// Channels is always mono.
	Channels = 1
	// BitsPerSample is always signed 16-bit.
	BitsPerSample = 16
)

var (
	// ErrPayloadMalformed is returned when the narration payload is not valid base64.
	ErrPayloadMalformed = errors.New("audio payload malformed")
	// ErrDecodeFailed is returned when PCM bytes cannot be framed into samples.
	ErrDecodeFailed = errors.New("audio decode failed")
)

// Buffer is a decoded, playable mono buffer.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32 // normalized to [-1, 1]
}

// Duration returns the play time of the buffer at its native rate.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Decode turns the base64 payload returned by the speech service into raw PCM bytes.
func Decode(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayloadMalformed, err)
	}
	return raw, nil
}

// DecodeForPlayback converts PCM16LE mono bytes into a normalized float buffer.
// Each sample is divided by 32768.
func DecodeForPlayback(raw []byte, sampleRate int) (*Buffer, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("%w: odd byte count %d in PCM data", ErrDecodeFailed, len(raw))
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrDecodeFailed, sampleRate)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float32(s) / 32768
	}

	return &Buffer{
		SampleRate: sampleRate,
		Channels:   Channels,
		Samples:    samples,
	}, nil
}

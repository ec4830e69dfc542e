package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// MaxImageBytes bounds how much image data is read from any source.
const MaxImageBytes = 20 << 20

// ErrInvalidImage is returned for data that is not a decodable still image.
var ErrInvalidImage = errors.New("not a supported image")

// Fetcher loads capture images from local files or http(s) URLs
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Info describes a validated image.
type Info struct {
	Format string
	Width  int
	Height int
}

// Validate checks that data decodes as a jpeg, png or gif image.
func Validate(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: zero dimensions", ErrInvalidImage)
	}
	return &Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Load reads an image from a path or an http(s) URL and validates it.
func (f *Fetcher) Load(ctx context.Context, source string) ([]byte, *Info, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = f.download(ctx, source)
	} else {
		data, err = readFile(source)
	}
	if err != nil {
		return nil, nil, err
	}

	info, err := Validate(data)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("Loaded image", "source", source, "format", info.Format, "width", info.Width, "height", info.Height)
	return data, info, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	return readLimited(file)
}

// download fetches an image URL into memory
func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	return readLimited(resp.Body)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", MaxImageBytes)
	}
	return data, nil
}

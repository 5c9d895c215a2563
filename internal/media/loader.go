// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media fetches track bytes over HTTP, for both progressive files
// and HLS playlists, and reports what it sees as a stream of callbacks the
// playback state machine turns into events.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Kind distinguishes the two playback backends.
type Kind string

const (
	// KindProgressive plays a plain file through the html audio element path.
	KindProgressive Kind = "html"
	// KindHLS plays a segmented stream through the MSE path.
	KindHLS Kind = "mse"
)

// KindForURL infers the backend from the track URL.
func KindForURL(rawURL string) Kind {
	u := strings.ToLower(rawURL)
	if strings.Contains(u, ".m3u8") {
		return KindHLS
	}
	return KindProgressive
}

var (
	// ErrNotFound marks a 404-class response: fatal, never retried, not
	// evidence of origin degradation.
	ErrNotFound = errors.New("media: track not found")
	// ErrDecode marks bytes the backend cannot decode.
	ErrDecode = errors.New("media: undecodable media")
	// ErrUpstream marks a non-404 4xx/5xx response. The origin answered but
	// cannot serve; it counts as a network-class failure.
	ErrUpstream = errors.New("media: upstream error")
)

// VariantInfo is one rendition advertised by an HLS master playlist.
type VariantInfo struct {
	BandwidthKbps int
	URI           string
	Name          string
}

// Events receives loader observations. Nil callbacks are skipped.
type Events struct {
	// OnMetadata reports the total size (progressive) or playlist duration
	// (HLS) once known. totalBytes is 0 when the origin does not say.
	OnMetadata func(durationSec float64, totalBytes int64)
	// OnVariants reports the parsed master-playlist ladder (HLS only).
	OnVariants func(variants []VariantInfo)
	// OnProgress reports load progress.
	OnProgress func(bytesLoaded, totalBytes int64, bufferedSec float64)
	// OnSample reports one throughput observation.
	OnSample func(bytes int64, elapsed time.Duration)
	// OnReady fires once enough is buffered for playback to begin.
	OnReady func()
	// OnFragment reports per-fragment outcomes (HLS only).
	OnFragment func(outcome FragmentOutcome)
	// OnComplete terminates the load; err is nil on success.
	OnComplete func(err error)
}

// FragmentOutcome is one fragment delivery result.
type FragmentOutcome string

const (
	FragmentLoaded  FragmentOutcome = "loaded"
	FragmentFailed  FragmentOutcome = "failed"
	FragmentRetried FragmentOutcome = "retried"
)

// Spec describes one load.
type Spec struct {
	URL  string
	Kind Kind
	// Level returns the desired ladder index, consulted at each fragment
	// boundary. Nil keeps the first variant.
	Level func() int
	// Throttle caps the byte rate (prefetch loads so the active stream is
	// never starved). Nil means unthrottled.
	Throttle *rate.Limiter
}

// Loader fetches a track and reports through Events until OnComplete.
type Loader interface {
	Load(ctx context.Context, spec Spec, ev Events)
}

const chunkSize = 64 * 1024

// HTTPLoader is the production Loader.
type HTTPLoader struct {
	Client *http.Client
	tracer trace.Tracer
}

// NewHTTPLoader creates a loader with sane timeouts.
func NewHTTPLoader(client *http.Client) *HTTPLoader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPLoader{
		Client: client,
		tracer: otel.Tracer("aurastream/media"),
	}
}

// Load implements Loader.
func (l *HTTPLoader) Load(ctx context.Context, spec Spec, ev Events) {
	ctx, span := l.tracer.Start(ctx, "media.load",
		trace.WithAttributes(
			attribute.String("media.kind", string(spec.Kind)),
			attribute.String("media.url", spec.URL),
		))
	defer span.End()

	var err error
	if spec.Kind == KindHLS {
		err = l.loadHLS(ctx, spec, ev)
	} else {
		err = l.loadProgressive(ctx, spec, ev)
	}
	if err != nil {
		span.RecordError(err)
	}
	if ev.OnComplete != nil {
		ev.OnComplete(err)
	}
}

func (l *HTTPLoader) loadProgressive(ctx context.Context, spec Spec, ev Events) error {
	resp, err := l.get(ctx, spec.URL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); !decodableContentType(ct) {
		return fmt.Errorf("%w: content-type %q", ErrDecode, ct)
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	if ev.OnMetadata != nil {
		ev.OnMetadata(0, total)
	}

	var loaded int64
	buf := make([]byte, chunkSize)
	ready := false
	for {
		start := time.Now()
		n, readErr := io.ReadFull(resp.Body, buf)
		if n > 0 {
			if err := l.throttle(ctx, spec, n); err != nil {
				return err
			}
			loaded += int64(n)
			if ev.OnSample != nil {
				ev.OnSample(int64(n), time.Since(start))
			}
			if ev.OnProgress != nil {
				ev.OnProgress(loaded, total, 0)
			}
			if !ready && ev.OnReady != nil {
				ready = true
				ev.OnReady()
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read track body: %w", readErr)
		}
	}
}

func (l *HTTPLoader) loadHLS(ctx context.Context, spec Spec, ev Events) error {
	master, err := l.fetchText(ctx, spec.URL)
	if err != nil {
		return err
	}

	variants := ParseMasterPlaylist(master)
	if len(variants) > 0 && ev.OnVariants != nil {
		ev.OnVariants(variants)
	}

	mediaURL := spec.URL
	if len(variants) > 0 {
		mediaURL = resolveRef(spec.URL, variants[selectVariant(spec, variants)].URI)
		master, err = l.fetchText(ctx, mediaURL)
		if err != nil {
			return err
		}
	}

	segments, duration := ParseMediaPlaylist(master)
	if ev.OnMetadata != nil {
		ev.OnMetadata(duration, 0)
	}
	if len(segments) == 0 {
		return fmt.Errorf("%w: playlist has no segments", ErrDecode)
	}

	var loaded int64
	buffered := 0.0
	ready := false
	for i, seg := range segments {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if spec.Level != nil && len(variants) > 0 {
			if want := spec.Level(); want >= 0 && want < len(variants) {
				next := resolveRef(spec.URL, variants[want].URI)
				if next != mediaURL {
					mediaURL = next
					// Re-fetch the playlist at the new level; segment
					// indices line up across renditions.
					body, err := l.fetchText(ctx, mediaURL)
					if err != nil {
						return err
					}
					segments, _ = ParseMediaPlaylist(body)
					if i >= len(segments) {
						break
					}
					seg = segments[i]
				}
			}
		}

		n, err := l.fetchFragment(ctx, spec, resolveRef(mediaURL, seg.URI), ev)
		if err != nil {
			if ev.OnFragment != nil {
				ev.OnFragment(FragmentFailed)
			}
			return err
		}
		if ev.OnFragment != nil {
			ev.OnFragment(FragmentLoaded)
		}
		loaded += n
		buffered += seg.Duration
		if ev.OnProgress != nil {
			ev.OnProgress(loaded, 0, buffered)
		}
		if !ready && ev.OnReady != nil {
			ready = true
			ev.OnReady()
		}
	}
	return nil
}

// fetchFragment downloads one segment, retrying once before giving up.
func (l *HTTPLoader) fetchFragment(ctx context.Context, spec Spec, fragURL string, ev Events) (int64, error) {
	n, err := l.fetchBytes(ctx, spec, fragURL, ev)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrNotFound) {
		return n, err
	}
	if ev.OnFragment != nil {
		ev.OnFragment(FragmentRetried)
	}
	return l.fetchBytes(ctx, spec, fragURL, ev)
}

func (l *HTTPLoader) fetchBytes(ctx context.Context, spec Spec, rawURL string, ev Events) (int64, error) {
	resp, err := l.get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	var total int64
	buf := make([]byte, chunkSize)
	for {
		start := time.Now()
		n, readErr := io.ReadFull(resp.Body, buf)
		if n > 0 {
			if err := l.throttle(ctx, spec, n); err != nil {
				return total, err
			}
			total += int64(n)
			if ev.OnSample != nil {
				ev.OnSample(int64(n), time.Since(start))
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return total, nil
		}
		if readErr != nil {
			return total, fmt.Errorf("read fragment: %w", readErr)
		}
	}
}

func (l *HTTPLoader) fetchText(ctx context.Context, rawURL string) (string, error) {
	resp, err := l.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read playlist: %w", err)
	}
	return string(body), nil
}

func (l *HTTPLoader) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	case resp.StatusCode >= 400:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d fetching %s", ErrUpstream, resp.StatusCode, rawURL)
	}
	return resp, nil
}

func (l *HTTPLoader) throttle(ctx context.Context, spec Spec, n int) error {
	if spec.Throttle == nil {
		return nil
	}
	return spec.Throttle.WaitN(ctx, n)
}

func selectVariant(spec Spec, variants []VariantInfo) int {
	if spec.Level == nil {
		return 0
	}
	if want := spec.Level(); want >= 0 && want < len(variants) {
		return want
	}
	return 0
}

func decodableContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	switch {
	case strings.HasPrefix(ct, "audio/"),
		strings.HasPrefix(ct, "application/octet-stream"),
		strings.HasPrefix(ct, "video/mp2t"),
		strings.Contains(ct, "mpegurl"):
		return true
	default:
		return false
	}
}

func resolveRef(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

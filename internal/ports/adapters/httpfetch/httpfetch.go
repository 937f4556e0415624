package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/reelcut/internal/ports"
)

const (
	defaultConcurrency = 4
	defaultTimeout     = 2 * time.Minute
	defaultMaxBytes    = 512 << 20
)

type Options struct {
	Concurrency   int
	Timeout       time.Duration
	MaxBytes      int64
	AllowedHosts  []string
	AllowInsecure bool
}

type Adapter struct {
	client        *http.Client
	limit         int
	maxBytes      int64
	allowed       map[string]struct{}
	allowInsecure bool
	log           zerolog.Logger
}

func New(client *http.Client, opts Options, log zerolog.Logger) *Adapter {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	return &Adapter{
		client:        client,
		limit:         opts.Concurrency,
		maxBytes:      opts.MaxBytes,
		allowed:       NormalizeAllowedHosts(opts.AllowedHosts),
		allowInsecure: opts.AllowInsecure,
		log:           log,
	}
}

// Fetch downloads every URL into dir as <kind>_<index><ext>. Downloads run
// concurrently; the first failure cancels the rest and fails the batch.
func (a *Adapter) Fetch(ctx context.Context, kind ports.AssetKind, urls []string, dir string) ([]string, error) {
	for i, u := range urls {
		if err := CheckURL(u, a.allowed, a.allowInsecure); err != nil {
			return nil, fmt.Errorf("%s %d: %w", kind, i, err)
		}
	}

	out := make([]string, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, u := range urls {
		g.Go(func() error {
			p, err := a.download(gctx, kind, i, u, dir)
			if err != nil {
				return fmt.Errorf("fetch %s %d: %w", kind, i, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Adapter) download(ctx context.Context, kind ports.AssetKind, idx int, rawURL, dir string) (string, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET %s: unexpected status %d", redact(rawURL), resp.StatusCode)
	}

	name := fmt.Sprintf("%s_%d%s", kind, idx, extension(kind, rawURL, resp.Header.Get("Content-Type")))
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, a.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if n > a.maxBytes {
		return "", fmt.Errorf("GET %s: body exceeds %d bytes", redact(rawURL), a.maxBytes)
	}
	if n == 0 {
		return "", errors.New("empty body")
	}

	a.log.Debug().
		Str("kind", string(kind)).
		Int("index", idx).
		Int64("bytes", n).
		Dur("took", time.Since(start)).
		Msg("asset fetched")
	return p, nil
}

var kindDefaults = map[ports.AssetKind]string{
	ports.AssetImage:     ".png",
	ports.AssetVoiceover: ".mp3",
	ports.AssetMusic:     ".mp3",
	ports.AssetVideo:     ".mp4",
}

var knownExt = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".gif": {}, ".bmp": {},
	".mp3": {}, ".wav": {}, ".m4a": {}, ".aac": {}, ".ogg": {}, ".flac": {},
	".mp4": {}, ".mov": {},
}

// extension picks the local file suffix: the URL path first, then the
// response Content-Type, then the kind default.
func extension(kind ports.AssetKind, rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if _, ok := knownExt[ext]; ok {
			return ext
		}
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "image/png":
			return ".png"
		case "image/jpeg":
			return ".jpg"
		case "image/webp":
			return ".webp"
		case "audio/mpeg", "audio/mp3":
			return ".mp3"
		case "audio/wav", "audio/x-wav", "audio/wave":
			return ".wav"
		case "audio/mp4", "audio/x-m4a":
			return ".m4a"
		case "audio/ogg":
			return ".ogg"
		case "video/mp4":
			return ".mp4"
		}
	}
	if ext, ok := kindDefaults[kind]; ok {
		return ext
	}
	return ".bin"
}

// redact drops the query string, which often carries signatures.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

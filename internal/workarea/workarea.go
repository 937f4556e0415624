package workarea

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Area is a private scratch directory for one finalize call.
type Area struct {
	dir string
	log zerolog.Logger
}

// New creates <root>/finalize-<UTC timestamp>-<random6>. An empty root uses
// the OS temp directory.
func New(root string, now time.Time, log zerolog.Logger) (*Area, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure work root: %w", err)
	}
	dir := filepath.Join(root, fmt.Sprintf("finalize-%s-%s", now.UTC().Format("20060102-150405Z"), randomSuffix()))
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create work area: %w", err)
	}
	return &Area{dir: dir, log: log}, nil
}

func (a *Area) Dir() string { return a.dir }

// Path joins name onto the area directory.
func (a *Area) Path(name string) string { return filepath.Join(a.dir, name) }

// Close removes the area and everything in it. Failures are logged, never
// returned, so cleanup cannot mask the outcome of the call.
func (a *Area) Close() {
	if a == nil || a.dir == "" {
		return
	}
	if err := os.RemoveAll(a.dir); err != nil {
		a.log.Warn().Err(err).Str("dir", a.dir).Msg("work area cleanup failed")
		return
	}
	a.log.Debug().Str("dir", a.dir).Msg("work area removed")
}

// Run creates an area, calls fn with it and removes the area afterwards,
// whether fn returns, fails, panics or sees its context canceled.
func Run(ctx context.Context, root string, log zerolog.Logger, fn func(ctx context.Context, a *Area) error) error {
	a, err := New(root, time.Now(), log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

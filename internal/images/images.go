// Package images is the thumbnail-acquisition collaborator. It resolves
// the tri-state permission synchronously and never blocks on UI itself.
package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/siblount/DazProductInstaller/internal/util"
)

// Mode is the caller's thumbnail decision.
type Mode int

const (
	ModeNo Mode = iota
	ModeYes
	// ModePrompt defers to a Decision callback supplied by the caller;
	// the answer must be produced synchronously.
	ModePrompt
)

// ParseMode maps a config string onto the tri-state.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "no", "false":
		return ModeNo, nil
	case "yes", "true":
		return ModeYes, nil
	case "prompt", "ask":
		return ModePrompt, nil
	default:
		return ModeNo, fmt.Errorf("unknown images mode: %q", s)
	}
}

// Decision answers a prompt for one archive. It must not block on UI
// owned by another thread; the surrounding application supplies it.
type Decision func(archiveFileName string) bool

// Serialize wraps a Decision so concurrent archive workers take turns.
// Interactive decisions share one stdin; interleaved prompts would steal
// each other's answers.
func Serialize(d Decision) Decision {
	var mu sync.Mutex
	return func(archiveFileName string) bool {
		mu.Lock()
		defer mu.Unlock()
		return d(archiveFileName)
	}
}

// Permitted resolves the tri-state for one archive.
func Permitted(mode Mode, decide Decision, archiveFileName string) bool {
	switch mode {
	case ModeYes:
		return true
	case ModePrompt:
		return decide != nil && decide(archiveFileName)
	default:
		return false
	}
}

// Fetcher downloads a product thumbnail and returns its local path.
type Fetcher interface {
	FetchThumbnail(ctx context.Context, archiveFileName string) (string, error)
}

// HTTP fetches thumbnails from a store endpoint, retrying transient
// failures with backoff.
type HTTP struct {
	BaseURL string
	Dir     string
	Client  *http.Client

	Retries int
	Backoff time.Duration
}

func NewHTTP(baseURL, dir string, retries int, backoff time.Duration) *HTTP {
	return &HTTP{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Dir:     dir,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Retries: retries,
		Backoff: backoff,
	}
}

func (h *HTTP) FetchThumbnail(ctx context.Context, archiveFileName string) (string, error) {
	if h.BaseURL == "" {
		return "", fmt.Errorf("no thumbnail endpoint configured")
	}
	base := archiveFileName
	if ext := util.Extension(base); ext != "" {
		base = base[:len(base)-len(ext)-1]
	}
	target := filepath.Join(h.Dir, base+".jpg")
	remote := h.BaseURL + "/" + url.PathEscape(base) + ".jpg"

	err := util.Retry(ctx, h.Retries, h.Backoff, func() error {
		return h.download(ctx, remote, target)
	})
	if err != nil {
		return "", err
	}
	return target, nil
}

func (h *HTTP) download(ctx context.Context, remote, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote, nil)
	if err != nil {
		return err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("thumbnail fetch returned %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create thumbnail dir: %w", err)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	return nil
}

package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
)

// DefaultRetries is the number of fetch attempts per file.
const DefaultRetries = 3

var errNotFound = errors.New("not found")

// Index records downloaded files in the blob cache.
type Index interface {
	Record(ctx context.Context, a *models.Artifact, path string) error
}

// Service fetches artifacts into the application directory.
type Service struct {
	root    string
	client  *resty.Client
	limiter *rate.Limiter
	retries int
	mirrors []string
	index   Index
	logger  *log.Logger
}

// NewService creates a download service rooted at root.
func NewService(root string, cfg shared.DownloadConfig, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	retries := cfg.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	client := resty.New()
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}

	return &Service{
		root:    root,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		retries: retries,
		mirrors: cfg.Mirrors,
		logger:  logger,
	}
}

// WithIndex records every persisted file in idx.
func (s *Service) WithIndex(idx Index) *Service {
	s.index = idx
	return s
}

// WithClient replaces the HTTP client.
func (s *Service) WithClient(c *resty.Client) *Service {
	s.client = c
	return s
}

func (s *Service) Root() string          { return s.root }
func (s *Service) Client() *resty.Client { return s.client }

// Download fetches the request's artifact.
//
// Inline content is written without a network call. [shared.ErrDownloadNotNeeded] and
// [shared.ErrAlreadyDownloaded] are returned before any request is made when the rules exclude the
// file or the file on disk already matches. A 404 moves on to the next mirror without consuming an
// attempt; other failures consume one until [shared.ErrDownloadFailed].
func (s *Service) Download(ctx context.Context, req *Request) error {
	if req == nil || req.Artifact == nil {
		return shared.ErrNoFile
	}

	a := req.Artifact
	dest := a.Path(s.root)

	if a.Content != nil {
		if err := shared.WriteFileAtomic(dest, a.Content, perm(a)); err != nil {
			return err
		}
		a.CurrentHash = shared.HashBytes(a.Content)
		s.record(ctx, a, dest)
		return nil
	}

	if !req.RulesValid() {
		return fmt.Errorf("%w: %s", shared.ErrDownloadNotNeeded, a.FileName())
	}

	hash, err := shared.HashFile(dest)
	switch {
	case err == nil:
		a.CurrentHash = hash
	case errors.Is(err, shared.ErrFileNotFound):
		a.CurrentHash = ""
	default:
		return err
	}

	if !req.NeedDownload(dest) {
		return fmt.Errorf("%w: %s", shared.ErrAlreadyDownloaded, a.FileName())
	}

	if a.URL == "" {
		return fmt.Errorf("%w: %s has no url", shared.ErrDownloadFailed, a.FileName())
	}

	mirrors := slices.Clone(req.Mirrors)
	if len(mirrors) == 0 {
		mirrors = slices.Clone(s.mirrors)
	}

	target := a.URL
	s.logger.Info("Downloading file", "file", a.FileName(), "url", target)

	var lastErr error
	for attempt := 0; attempt < s.retries; {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		hash, err := s.fetch(ctx, target, dest, a)
		if err == nil {
			a.CurrentHash = hash
			s.record(ctx, a, dest)
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if errors.Is(err, errNotFound) && len(mirrors) > 0 {
			next := swapMirror(target, mirrors[0])
			mirrors = mirrors[1:]
			s.logger.Warn("File not found, trying mirror", "file", a.FileName(), "url", next)
			target = next
			continue
		}

		attempt++
		s.logger.Error("Fetching file failed", "url", target, "attempts_left", s.retries-attempt, "error", err)
	}

	return fmt.Errorf("%w: %s after %d attempts: %w", shared.ErrDownloadFailed, a.FileName(), s.retries, lastErr)
}

// fetch streams target into dest through a temp file and returns the SHA-1 of the body.
func (s *Service) fetch(ctx context.Context, target, dest string, a *models.Artifact) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(target)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", errNotFound, target)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: %s returned %d", shared.ErrAPIRequest, target, resp.StatusCode())
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	h := sha1.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", a.FileName(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", a.FileName(), err)
	}

	hash := hex.EncodeToString(h.Sum(nil))
	if a.SHA1 != "" && !strings.EqualFold(hash, a.SHA1) {
		return "", &shared.HashMismatchError{Path: dest, Expected: a.SHA1, Actual: hash}
	}

	if err := os.Chmod(tmpPath, perm(a)); err != nil {
		return "", fmt.Errorf("failed to chmod %s: %w", a.FileName(), err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", a.FileName(), err)
	}
	return hash, nil
}

func (s *Service) record(ctx context.Context, a *models.Artifact, dest string) {
	if s.index == nil {
		return
	}
	if err := s.index.Record(ctx, a, dest); err != nil {
		s.logger.Warn("Failed to index file", "path", dest, "error", err)
	}
}

// GetBytes fetches a metadata document with the same retry budget as file downloads.
func (s *Service) GetBytes(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := s.client.R().SetContext(ctx).Get(target)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("request failed: %w", err)
		case resp.StatusCode() == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", shared.ErrArtifactNotFound, target)
		case resp.IsError():
			lastErr = fmt.Errorf("%w: %s returned %d", shared.ErrAPIRequest, target, resp.StatusCode())
		default:
			return resp.Body(), nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("Fetching url failed", "url", target, "attempts_left", s.retries-attempt, "error", lastErr)
	}
	return nil, fmt.Errorf("%w: %s: %w", shared.ErrDownloadFailed, target, lastErr)
}

// GetJSON fetches target and decodes it into v.
func (s *Service) GetJSON(ctx context.Context, target string, v any) error {
	data, err := s.GetBytes(ctx, target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrInvalidManifest, target, err)
	}
	return nil
}

func perm(a *models.Artifact) os.FileMode {
	if a.Executable {
		return 0755
	}
	return 0644
}

// swapMirror moves target onto mirror's host, prefixing mirror's path unless target already has it.
func swapMirror(target, mirror string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	m, err := url.Parse(mirror)
	if err != nil || m.Host == "" {
		return target
	}

	u.Scheme = m.Scheme
	u.Host = m.Host
	prefix := strings.TrimSuffix(m.Path, "/")
	if prefix != "" && !strings.HasPrefix(u.Path, prefix+"/") {
		u.Path = path.Join(prefix, u.Path)
	}
	return u.String()
}

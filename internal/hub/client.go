// Package hub talks to a Hugging Face compatible model hub: token login and
// single-file downloads of tokenizer assets.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"doctune/internal/common/fsutil"
	xlog "doctune/internal/log"
)

// TokenEnv is the environment variable consulted when no token flag is set.
const TokenEnv = "HF_TOKEN"

// ErrNoToken is returned by Login when no token is available.
var ErrNoToken = errors.New("no Hugging Face token provided")

// StatusError is a non-2xx hub response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hub %s: status %d: %s", e.Op, e.Status, e.Body)
}

// IsNotFound reports whether err is a hub 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// Options configures a Client.
type Options struct {
	Endpoint string
	// Home is HF_HOME; "~" is expanded.
	Home    string
	Timeout time.Duration
	// Token authenticates downloads of gated repositories.
	Token string
}

// Client is a small hub API client.
type Client struct {
	home  string
	token string
	http  *resty.Client
	log   zerolog.Logger
}

// ResolveToken returns flag if set, else $HF_TOKEN.
func ResolveToken(flag string) string {
	if t := strings.TrimSpace(flag); t != "" {
		return t
	}
	return strings.TrimSpace(os.Getenv(TokenEnv))
}

// New builds a Client. $HF_HOME overrides opts.Home.
func New(opts Options) (*Client, error) {
	home := opts.Home
	if v := os.Getenv("HF_HOME"); v != "" {
		home = v
	}
	home, err := fsutil.ExpandHome(home)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.Endpoint, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", "doctune")
	return &Client{home: home, token: opts.Token, http: rc, log: xlog.WithComponent("hub")}, nil
}

// Home is the resolved HF_HOME directory.
func (c *Client) Home() string { return c.home }

// TokenPath is where Login persists the token.
func (c *Client) TokenPath() string { return filepath.Join(c.home, "token") }

type whoami struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Login validates token against the hub and stores it under HF_HOME so
// child processes (the trainer) are authenticated too. It returns the
// account name.
func (c *Client) Login(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoToken
	}
	var who whoami
	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&who).
		Get("/api/whoami-v2")
	if err != nil {
		return "", fmt.Errorf("hub whoami: %w", err)
	}
	if !res.IsSuccess() {
		return "", &StatusError{Op: "whoami", Status: res.StatusCode(), Body: snippet(res.String())}
	}
	if err := os.MkdirAll(c.home, 0o700); err != nil {
		return "", fmt.Errorf("create hub home: %w", err)
	}
	err = fsutil.WriteFileAtomic(c.TokenPath(), 0o600, func(w io.Writer) error {
		_, err := io.WriteString(w, token)
		return err
	})
	if err != nil {
		return "", err
	}
	c.token = token
	c.log.Debug().Str("user", who.Name).Str("token_path", c.TokenPath()).Msg("token stored")
	return who.Name, nil
}

// CachePath is the local location of repo/file.
func (c *Client) CachePath(repo, file string) string {
	return filepath.Join(c.home, "doctune", filepath.FromSlash(repo), filepath.FromSlash(file))
}

// Download fetches file from the main revision of repo, reusing a cached
// copy when present, and returns the local path.
func (c *Client) Download(ctx context.Context, repo, file string) (string, error) {
	if repo == "" || file == "" {
		return "", errors.New("hub download: empty repo or file")
	}
	// a local model directory is used as-is
	if fsutil.IsDir(repo) {
		p := filepath.Join(repo, file)
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("hub download: %w", err)
		}
		return p, nil
	}
	dst := c.CachePath(repo, file)
	if fi, err := os.Stat(dst); err == nil && fi.Mode().IsRegular() {
		c.log.Debug().Str("repo", repo).Str("file", file).Msg("cache hit")
		return dst, nil
	}

	req := c.http.R().SetContext(ctx)
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	res, err := req.Get("/" + escapeRepo(repo) + "/resolve/main/" + url.PathEscape(file))
	if err != nil {
		return "", fmt.Errorf("hub download %s/%s: %w", repo, file, err)
	}
	if !res.IsSuccess() {
		return "", &StatusError{Op: "download " + repo + "/" + file, Status: res.StatusCode(), Body: snippet(res.String())}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	body := res.Body()
	err = fsutil.WriteFileAtomic(dst, 0o644, func(w io.Writer) error {
		_, err := w.Write(body)
		return err
	})
	if err != nil {
		return "", err
	}
	c.log.Info().Str("repo", repo).Str("file", file).Int("bytes", len(body)).Msg("downloaded")
	return dst, nil
}

func escapeRepo(repo string) string {
	parts := strings.Split(repo, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}

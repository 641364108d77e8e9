package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/skillindex/pkg/buildinfo"
	"github.com/matzehuels/skillindex/pkg/cache"
	"github.com/matzehuels/skillindex/pkg/httputil"
	"github.com/matzehuels/skillindex/pkg/integrations"
)

const (
	// DefaultAPIURL is the public GitHub REST API.
	DefaultAPIURL = "https://api.github.com"

	// DefaultRawURL serves raw file contents by owner/repo/branch/path.
	DefaultRawURL = "https://raw.githubusercontent.com"

	// DefaultSearchDelay is the minimum gap between search calls.
	DefaultSearchDelay = 150 * time.Millisecond

	// DefaultCacheTTL is how long repository metadata is cached across runs.
	DefaultCacheTTL = time.Hour

	// MaxPerPage is the largest page size the search API accepts.
	MaxPerPage = 100
)

// Options configures a Client. Zero values select the defaults above.
type Options struct {
	APIURL      string
	RawURL      string
	Credentials *CredentialManager // nil means unauthenticated
	Cache       cache.Cache        // repository metadata cache; nil disables caching
	CacheTTL    time.Duration
	SearchDelay time.Duration // negative disables pacing
}

// Client is the GitHub gateway used by discovery and validation.
// Every request carries the credential manager's current auth headers and
// the skillindex User-Agent. Calls are never retried.
type Client struct {
	*integrations.Client
	apiURL string
	rawURL string
	pacer  *httputil.Pacer
	creds  *CredentialManager
}

// NewClient creates a GitHub client.
func NewClient(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.RawURL == "" {
		opts.RawURL = DefaultRawURL
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	switch {
	case opts.SearchDelay == 0:
		opts.SearchDelay = DefaultSearchDelay
	case opts.SearchDelay < 0:
		opts.SearchDelay = 0
	}

	c := &Client{
		Client: integrations.NewClient(opts.Cache, "github:", opts.CacheTTL, map[string]string{
			"Accept":               "application/vnd.github+json",
			"User-Agent":           buildinfo.UserAgent(),
			"X-GitHub-Api-Version": "2022-11-28",
		}),
		apiURL: strings.TrimSuffix(opts.APIURL, "/"),
		rawURL: strings.TrimSuffix(opts.RawURL, "/"),
		pacer:  httputil.NewPacer(opts.SearchDelay),
		creds:  opts.Credentials,
	}
	if c.creds != nil {
		c.SetAuth(c.creds.AuthHeaders)
	}
	return c
}

// Credentials returns the credential manager, or nil.
func (c *Client) Credentials() *CredentialManager { return c.creds }

// SearchRepositories returns one page of repositories tagged with topic,
// sorted by stars descending. It waits on the search pacer first.
func (c *Client) SearchRepositories(ctx context.Context, topic string, page, perPage int) (*SearchResult, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	perPage = min(max(perPage, 1), MaxPerPage)
	url := fmt.Sprintf("%s/search/repositories?q=%s&sort=stars&order=desc&per_page=%d&page=%d",
		c.apiURL, integrations.URLEncode("topic:"+topic), perPage, max(page, 1))

	var res SearchResult
	if err := c.Get(ctx, url, &res); err != nil {
		return nil, fmt.Errorf("search topic %q page %d: %w", topic, page, err)
	}
	return &res, nil
}

// GetRepository fetches repository metadata. Results are cached for the
// configured TTL unless refresh is true.
func (c *Client) GetRepository(ctx context.Context, owner, repo string, refresh bool) (*Repository, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}
	var r Repository
	err := c.Cached(ctx, "repo:"+owner+"/"+repo, refresh, &r, func() error {
		return c.Get(ctx, fmt.Sprintf("%s/repos/%s/%s", c.apiURL, owner, repo), &r)
	})
	if err != nil {
		return nil, fmt.Errorf("github repo %s/%s: %w", owner, repo, err)
	}
	return &r, nil
}

// ListContents lists files and directories at path ("" for the root).
func (c *Client) ListContents(ctx context.Context, owner, repo, path string) ([]ContentItem, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/repos/%s/%s/contents", c.apiURL, owner, repo)
	if path = strings.Trim(path, "/"); path != "" {
		url += "/" + integrations.PathEscape(path)
	}
	var items []ContentItem
	if err := c.Get(ctx, url, &items); err != nil {
		return nil, fmt.Errorf("list %s/%s/%s: %w", owner, repo, path, err)
	}
	return items, nil
}

// FetchRaw fetches a file's raw contents from the raw content host.
func (c *Client) FetchRaw(ctx context.Context, owner, repo, branch, path string) (string, error) {
	url := c.RawURL(owner, repo, branch, path)
	text, err := c.GetText(ctx, url, map[string]string{"Accept": "text/plain"})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return text, nil
}

// RawURL builds the raw content URL for a file.
func (c *Client) RawURL(owner, repo, branch, path string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", c.rawURL, owner, repo,
		integrations.PathEscape(branch), integrations.PathEscape(strings.Trim(path, "/")))
}

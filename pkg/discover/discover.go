// Package discover finds skill candidates on GitHub.
//
// Discovery runs two phases in a fixed order and shares one set of seen
// canonical URLs between them:
//
//  1. Trusted publishers: each publisher repository's root and skills/
//     directories are listed, and every package directory is validated.
//  2. Topic search: repositories tagged with each topic are paged through,
//     sorted by stars.
//
// Because publishers run first, a repository reachable both ways keeps its
// publisher (verified) form. A single MaxRepos budget bounds both phases.
package discover

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/skillindex/pkg/descriptor"
	"github.com/matzehuels/skillindex/pkg/errors"
	"github.com/matzehuels/skillindex/pkg/integrations"
	"github.com/matzehuels/skillindex/pkg/integrations/github"
	"github.com/matzehuels/skillindex/pkg/observability"
	"github.com/matzehuels/skillindex/pkg/skill"
)

const (
	DefaultMaxPages = 3
	MaxPagesLimit   = 10
	DefaultMaxRepos = 50
	DefaultPerPage  = 30

	SourcePublisher = "publisher"
	SourceTopic     = "topic"
)

// DefaultTopics are searched when a run names none.
var DefaultTopics = []string{"claude-skills", "claude-code-skills", "agent-skills"}

// skipDirs are directory names that never hold a skill package.
var skipDirs = map[string]bool{
	".github":      true,
	".git":         true,
	"docs":         true,
	"scripts":      true,
	"node_modules": true,
	"examples":     true,
	"test":         true,
	"tests":        true,
	"assets":       true,
	"template":     true,
	"templates":    true,
}

// GitHub is the subset of *github.Client used for discovery.
type GitHub interface {
	SearchRepositories(ctx context.Context, topic string, page, perPage int) (*github.SearchResult, error)
	GetRepository(ctx context.Context, owner, repo string, refresh bool) (*github.Repository, error)
	ListContents(ctx context.Context, owner, repo, path string) ([]github.ContentItem, error)
}

// Validator checks a descriptor. *descriptor.Validator implements it.
type Validator interface {
	Validate(ctx context.Context, owner, repo, branch, dir string) descriptor.Result
}

// Options configures one discovery pass.
type Options struct {
	Topics     []string
	Publishers []skill.Publisher
	MaxPages   int // per topic, capped at MaxPagesLimit
	MaxRepos   int // across both phases
	PerPage    int
}

func (o *Options) applyDefaults() {
	if len(o.Topics) == 0 {
		o.Topics = DefaultTopics
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	o.MaxPages = min(o.MaxPages, MaxPagesLimit)
	if o.MaxRepos <= 0 {
		o.MaxRepos = DefaultMaxRepos
	}
	if o.PerPage <= 0 {
		o.PerPage = DefaultPerPage
	}
}

// Result is the output of one discovery pass.
type Result struct {
	Candidates []*skill.Candidate
	// Found is the largest total_count reported by any single topic search,
	// not the sum across topics. Overlapping topics would otherwise be
	// double counted; it still undercounts when topics are disjoint.
	Found  int
	Errors []string
}

// Discoverer runs discovery passes. A Discoverer holds no per-run state;
// the dedup set is allocated by each Discover call.
type Discoverer struct {
	gh        GitHub
	validator Validator
	logger    *log.Logger
}

// New creates a Discoverer. A nil logger discards output.
func New(gh GitHub, v Validator, logger *log.Logger) *Discoverer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Discoverer{gh: gh, validator: v, logger: logger}
}

// run holds the state of one Discover call.
type run struct {
	*Discoverer
	opts Options
	seen map[string]bool
	// claimed holds publisher repository roots; topic search never adds
	// them, even when the publisher scan itself failed.
	claimed map[string]bool
	result  Result
}

// Discover runs the publisher phase and then the topic phase. Errors
// affecting a single publisher, topic or directory are collected in
// Result.Errors; only context cancellation is returned as an error.
func (d *Discoverer) Discover(ctx context.Context, opts Options) (*Result, error) {
	opts.applyDefaults()
	r := &run{Discoverer: d, opts: opts, seen: make(map[string]bool), claimed: make(map[string]bool)}
	for _, p := range opts.Publishers {
		r.claimed[seenKey(RepoURL(p.Owner, p.Repo))] = true
	}

	for _, p := range opts.Publishers {
		if r.full() {
			break
		}
		r.scanPublisher(ctx, p)
		if err := ctx.Err(); err != nil {
			return &r.result, err
		}
	}
	for _, topic := range opts.Topics {
		if r.full() {
			d.logger.Debug("candidate budget reached", "max_repos", opts.MaxRepos)
			break
		}
		r.searchTopic(ctx, topic)
		if err := ctx.Err(); err != nil {
			return &r.result, err
		}
	}
	return &r.result, nil
}

func (r *run) full() bool { return len(r.result.Candidates) >= r.opts.MaxRepos }

func (r *run) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Warn(msg)
	r.result.Errors = append(r.result.Errors, msg)
}

// add records c unless its URL was already seen or the budget is spent.
func (r *run) add(ctx context.Context, c *skill.Candidate, source string) bool {
	key := seenKey(c.URL)
	if r.full() || r.seen[key] || (source == SourceTopic && r.claimed[key]) {
		return false
	}
	r.seen[key] = true
	r.result.Candidates = append(r.result.Candidates, c)
	observability.Discovery().OnCandidate(ctx, c.URL, source, true, "")
	return true
}

func (r *run) scanPublisher(ctx context.Context, p skill.Publisher) {
	repo, err := r.gh.GetRepository(ctx, p.Owner, p.Repo, false)
	if err != nil {
		r.errorf("publisher %s: %v", p.FullName(), err)
		return
	}
	branch := repo.DefaultBranch
	if branch == "" {
		branch = "main"
	}
	rootURL := RepoURL(p.Owner, p.Repo)

	newCandidate := func(dir, url string) *skill.Candidate {
		return &skill.Candidate{
			Owner:         p.Owner,
			Repo:          p.Repo,
			FullName:      repo.FullName,
			Description:   repo.Description,
			URL:           url,
			Stars:         repo.Stars,
			Forks:         repo.Forks,
			Topics:        repo.Topics,
			DefaultBranch: branch,
			UpdatedAt:     repo.UpdatedAt,
			Path:          dir,
			Publisher:     &p,
		}
	}

	if res := r.validator.Validate(ctx, p.Owner, p.Repo, branch, ""); res.Found {
		c := newCandidate("", rootURL)
		apply(c, res)
		r.add(ctx, c, SourcePublisher)
	}

	for _, base := range []string{"", "skills"} {
		if r.full() {
			return
		}
		items, err := r.gh.ListContents(ctx, p.Owner, p.Repo, base)
		if err != nil {
			if base != "" && stderrors.Is(err, integrations.ErrNotFound) {
				continue
			}
			r.errorf("publisher %s: list %q: %v", p.FullName(), base, err)
			continue
		}
		for _, item := range items {
			if r.full() {
				return
			}
			if !item.IsDir() || skipDir(base, item.Name) || p.Excludes(item.Name) {
				continue
			}
			dir := path.Join(base, item.Name)
			url := TreeURL(p.Owner, p.Repo, branch, dir)
			if r.seen[seenKey(url)] {
				continue
			}
			res := r.validator.Validate(ctx, p.Owner, p.Repo, branch, dir)
			if !res.Found {
				observability.Discovery().OnCandidate(ctx, url, SourcePublisher, false, strings.Join(res.Errors, "; "))
				continue
			}
			c := newCandidate(dir, url)
			apply(c, res)
			r.add(ctx, c, SourcePublisher)
		}
	}
}

func (r *run) searchTopic(ctx context.Context, topic string) {
	if err := errors.ValidateTopic(topic); err != nil {
		r.errorf("topic %q: %s", topic, errors.UserMessage(err))
		return
	}
	for page := 1; page <= r.opts.MaxPages; page++ {
		if r.full() {
			return
		}
		res, err := r.gh.SearchRepositories(ctx, topic, page, r.opts.PerPage)
		if err != nil {
			observability.Discovery().OnTopicPage(ctx, topic, page, 0, err)
			var rl *errors.RateLimitedError
			if stderrors.As(err, &rl) {
				r.errorf("topic %s: %v", topic, rl)
			} else {
				r.errorf("topic %s page %d: %v", topic, page, err)
			}
			return
		}
		observability.Discovery().OnTopicPage(ctx, topic, page, len(res.Items), nil)
		r.result.Found = max(r.result.Found, res.TotalCount)

		for i := range res.Items {
			item := &res.Items[i]
			owner := item.Owner.Login
			if owner == "" {
				owner, _, _ = strings.Cut(item.FullName, "/")
			}
			r.add(ctx, &skill.Candidate{
				Owner:         owner,
				Repo:          item.Name,
				FullName:      item.FullName,
				Description:   item.Description,
				URL:           CanonicalURL(item),
				Stars:         item.Stars,
				Forks:         item.Forks,
				Topics:        item.Topics,
				DefaultBranch: item.DefaultBranch,
				UpdatedAt:     item.UpdatedAt,
			}, SourceTopic)
		}
		if len(res.Items) < r.opts.PerPage {
			return
		}
	}
}

// apply copies a validation result onto a candidate.
func apply(c *skill.Candidate, res descriptor.Result) {
	c.Installable = res.Valid
	if res.Valid {
		c.Metadata = res.Metadata
	}
}

func skipDir(base, name string) bool {
	if strings.HasPrefix(name, ".") || skipDirs[strings.ToLower(name)] {
		return true
	}
	// skills/ at the root is enumerated separately.
	return base == "" && name == "skills"
}

// seenKey folds case: GitHub owner and repository names are case-insensitive.
func seenKey(url string) string { return strings.ToLower(url) }

// RepoURL returns the canonical URL of a repository.
func RepoURL(owner, repo string) string {
	return "https://github.com/" + owner + "/" + repo
}

// TreeURL returns the synthetic canonical URL of a package directory.
func TreeURL(owner, repo, branch, dir string) string {
	return RepoURL(owner, repo) + "/tree/" + branch + "/" + strings.Trim(dir, "/")
}

// CanonicalURL returns the canonical URL of a search result.
func CanonicalURL(r *github.Repository) string {
	if u := integrations.NormalizeRepoURL(r.HTMLURL); u != "" {
		return u
	}
	return "https://github.com/" + r.FullName
}

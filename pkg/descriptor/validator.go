package descriptor

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	skerrors "github.com/matzehuels/skillindex/pkg/errors"
	"github.com/matzehuels/skillindex/pkg/integrations"
	"github.com/matzehuels/skillindex/pkg/skill"
)

const (
	// FileName is the descriptor file every skill package must contain.
	FileName = "SKILL.md"

	// DefaultMinContentLength is the minimum descriptor length in characters.
	DefaultMinContentLength = 100

	// MinDescriptionLength applies to the frontmatter description in strict mode.
	MinDescriptionLength = 20
)

var headingRe = regexp.MustCompile(`(?m)^#{1,6}[ \t]+\S`)

// Fetcher fetches raw file contents. *github.Client implements it.
type Fetcher interface {
	FetchRaw(ctx context.Context, owner, repo, branch, path string) (string, error)
}

// Options configures validation.
type Options struct {
	MinContentLength int  // <= 0 selects DefaultMinContentLength
	Strict           bool // frontmatter mandatory with name and description
}

// DefaultOptions returns strict validation with the default minimum length.
func DefaultOptions() Options {
	return Options{MinContentLength: DefaultMinContentLength, Strict: true}
}

// Result is the outcome of validating one descriptor.
type Result struct {
	Found    bool // the descriptor was fetched
	Valid    bool
	Errors   []string
	Warnings []string        // frontmatter problems ignored in non-strict mode
	Metadata *skill.Metadata // nil when no usable frontmatter was found
}

type cacheKey struct{ owner, repo, branch, path string }

// Validator checks descriptors and memoizes results per run.
// It is safe for concurrent use.
type Validator struct {
	fetch Fetcher
	opts  Options

	mu    sync.Mutex
	cache map[cacheKey]Result
}

// NewValidator creates a Validator with an empty result cache.
func NewValidator(f Fetcher, opts Options) *Validator {
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = DefaultMinContentLength
	}
	return &Validator{fetch: f, opts: opts, cache: make(map[cacheKey]Result)}
}

// Validate fetches <dir>/SKILL.md from the given branch and checks it.
// dir is "" for the repository root. A fetch failure yields an invalid
// result, never an error.
func (v *Validator) Validate(ctx context.Context, owner, repo, branch, dir string) Result {
	dir = strings.Trim(dir, "/")
	key := cacheKey{owner, repo, branch, dir}

	v.mu.Lock()
	if r, ok := v.cache[key]; ok {
		v.mu.Unlock()
		return r
	}
	v.mu.Unlock()

	r := v.validate(ctx, owner, repo, branch, dir)

	v.mu.Lock()
	v.cache[key] = r
	v.mu.Unlock()
	return r
}

func (v *Validator) validate(ctx context.Context, owner, repo, branch, dir string) Result {
	if dir != "" {
		if err := skerrors.ValidatePath(dir); err != nil {
			return invalid(skerrors.UserMessage(err))
		}
	}
	content, err := v.fetch.FetchRaw(ctx, owner, repo, branch, path.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return invalid(FileName + " not found")
		}
		return invalid(fmt.Sprintf("fetch failed: %v", err))
	}
	return v.Check(content)
}

// Check runs the gates on descriptor content without fetching.
func (v *Validator) Check(content string) Result {
	return Check(content, v.opts)
}

// Check runs the validation gates on content.
func Check(content string, opts Options) Result {
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = DefaultMinContentLength
	}
	if strings.TrimSpace(content) == "" {
		r := invalid("descriptor is empty")
		r.Found = true
		return r
	}

	r := Result{Found: true}
	if n := utf8.RuneCountInString(content); n < opts.MinContentLength {
		r.Errors = append(r.Errors, fmt.Sprintf("content too short (%d < %d characters)", n, opts.MinContentLength))
	}
	if !headingRe.MatchString(content) {
		r.Errors = append(r.Errors, "missing heading")
	}

	fm, _, found, err := ParseFrontmatter(content)
	switch {
	case err != nil && opts.Strict:
		r.Errors = append(r.Errors, "invalid frontmatter: "+err.Error())
	case err != nil:
		r.Warnings = append(r.Warnings, "invalid frontmatter: "+err.Error())
	case !found && opts.Strict:
		r.Errors = append(r.Errors, "missing frontmatter")
	case found:
		meta := metadataFrom(fm)
		if opts.Strict {
			r.Errors = append(r.Errors, checkMetadata(meta)...)
		}
		if meta.Name != "" || meta.Description != "" {
			r.Metadata = meta
		}
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func checkMetadata(m *skill.Metadata) []string {
	var errs []string
	if m.Name == "" {
		errs = append(errs, "frontmatter missing name")
	}
	switch n := utf8.RuneCountInString(m.Description); {
	case n == 0:
		errs = append(errs, "frontmatter missing description")
	case n < MinDescriptionLength:
		errs = append(errs, fmt.Sprintf("description too short (%d < %d characters)", n, MinDescriptionLength))
	}
	return errs
}

func metadataFrom(fm Frontmatter) *skill.Metadata {
	return &skill.Metadata{
		Name:        strings.TrimSpace(fm.String("name")),
		Description: strings.TrimSpace(fm.String("description")),
		Author:      strings.TrimSpace(fm.String("author")),
		Triggers:    fm.List("triggers"),
	}
}

func invalid(msg string) Result {
	return Result{Errors: []string{msg}}
}

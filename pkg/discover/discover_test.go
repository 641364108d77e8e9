package discover

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/matzehuels/skillindex/pkg/descriptor"
	"github.com/matzehuels/skillindex/pkg/errors"
	"github.com/matzehuels/skillindex/pkg/integrations"
	"github.com/matzehuels/skillindex/pkg/integrations/github"
	"github.com/matzehuels/skillindex/pkg/skill"
)

// fakeGitHub serves canned repositories, listings and search pages.
type fakeGitHub struct {
	repos    map[string]*github.Repository     // "owner/repo"
	contents map[string][]github.ContentItem   // "owner/repo/path"
	pages    map[string][]*github.SearchResult // topic -> pages (1-based index-1)
	errs     map[string]error                  // "topic:page" -> error
	searches []string
}

func (f *fakeGitHub) SearchRepositories(_ context.Context, topic string, page, perPage int) (*github.SearchResult, error) {
	f.searches = append(f.searches, fmt.Sprintf("%s:%d", topic, page))
	if err := f.errs[fmt.Sprintf("%s:%d", topic, page)]; err != nil {
		return nil, err
	}
	pages := f.pages[topic]
	if page > len(pages) {
		return &github.SearchResult{}, nil
	}
	return pages[page-1], nil
}

func (f *fakeGitHub) GetRepository(_ context.Context, owner, repo string, _ bool) (*github.Repository, error) {
	if r, ok := f.repos[owner+"/"+repo]; ok {
		return r, nil
	}
	return nil, integrations.ErrNotFound
}

func (f *fakeGitHub) ListContents(_ context.Context, owner, repo, path string) ([]github.ContentItem, error) {
	items, ok := f.contents[owner+"/"+repo+"/"+path]
	if !ok {
		return nil, integrations.ErrNotFound
	}
	return items, nil
}

// fakeValidator reports descriptors present at the listed "owner/repo/dir" keys.
type fakeValidator struct {
	valid map[string]bool
	calls []string
}

func (v *fakeValidator) Validate(_ context.Context, owner, repo, _, dir string) descriptor.Result {
	key := owner + "/" + repo + "/" + dir
	v.calls = append(v.calls, key)
	valid, ok := v.valid[key]
	if !ok {
		return descriptor.Result{Errors: []string{"SKILL.md not found"}}
	}
	r := descriptor.Result{Found: true, Valid: valid}
	if valid {
		r.Metadata = &skill.Metadata{Name: dir, Description: "a sufficiently long description"}
	} else {
		r.Errors = []string{"missing heading"}
	}
	return r
}

func dirs(names ...string) []github.ContentItem {
	items := make([]github.ContentItem, 0, len(names))
	for _, n := range names {
		items = append(items, github.ContentItem{Name: n, Type: "dir"})
	}
	return items
}

func searchPage(total int, fullNames ...string) *github.SearchResult {
	res := &github.SearchResult{TotalCount: total}
	for _, fn := range fullNames {
		owner, name, _ := strings.Cut(fn, "/")
		res.Items = append(res.Items, github.Repository{
			Name:     name,
			FullName: fn,
			Owner:    github.Owner{Login: owner},
			HTMLURL:  "https://github.com/" + fn,
			Stars:    10,
		})
	}
	return res
}

func repoNames(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s/repo-%d", prefix, i)
	}
	return out
}

var anthropics = skill.Publisher{Owner: "anthropics", Repo: "skills", BaseScore: 0.95, Exclude: []string{"spec"}}

func publisherFixture() (*fakeGitHub, *fakeValidator) {
	gh := &fakeGitHub{
		repos: map[string]*github.Repository{
			"anthropics/skills": {Name: "skills", FullName: "anthropics/skills", DefaultBranch: "main", Stars: 3},
		},
		contents: map[string][]github.ContentItem{
			"anthropics/skills/": append(dirs("docx", ".github", "docs", "skills", "spec", "node_modules"),
				github.ContentItem{Name: "README.md", Type: "file"}),
			"anthropics/skills/skills": dirs("pdf", "xlsx", "templates"),
		},
		pages: map[string][]*github.SearchResult{},
	}
	v := &fakeValidator{valid: map[string]bool{
		"anthropics/skills/":            true,
		"anthropics/skills/docx":        true,
		"anthropics/skills/skills/pdf":  true,
		"anthropics/skills/skills/xlsx": false,
	}}
	return gh, v
}

func urls(cs []*skill.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.URL
	}
	return out
}

func TestDiscoverPublisherScan(t *testing.T) {
	gh, v := publisherFixture()
	d := New(gh, v, nil)

	res, err := d.Discover(context.Background(), Options{
		Publishers: []skill.Publisher{anthropics},
		Topics:     []string{"claude-skills"},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"https://github.com/anthropics/skills",
		"https://github.com/anthropics/skills/tree/main/docx",
		"https://github.com/anthropics/skills/tree/main/skills/pdf",
		"https://github.com/anthropics/skills/tree/main/skills/xlsx",
	}
	got := urls(res.Candidates)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("candidates =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}

	for _, c := range res.Candidates {
		if c.Publisher == nil || c.Publisher.BaseScore != 0.95 {
			t.Errorf("%s: publisher not attached", c.URL)
		}
	}
	if xlsx := res.Candidates[3]; xlsx.Installable || xlsx.Metadata != nil {
		t.Errorf("invalid package should not be installable: %+v", xlsx)
	}
	if pdf := res.Candidates[2]; !pdf.Installable || pdf.Path != "skills/pdf" {
		t.Errorf("pdf candidate = %+v", pdf)
	}

	for _, call := range v.calls {
		for _, skipped := range []string{"/.github", "/docs", "/spec", "/node_modules", "/templates", "skills/skills"} {
			if strings.HasSuffix(call, skipped) {
				t.Errorf("validated skipped directory %q", call)
			}
		}
	}
}

func TestDiscoverPublisherWinsDedup(t *testing.T) {
	gh, v := publisherFixture()
	gh.pages["claude-skills"] = []*github.SearchResult{
		searchPage(2, "anthropics/skills", "someone/pdf-skill"),
	}
	// Case differences still dedup.
	gh.pages["agent-skills"] = []*github.SearchResult{
		searchPage(1, "Anthropics/Skills"),
	}

	d := New(gh, v, nil)
	res, err := d.Discover(context.Background(), Options{
		Publishers: []skill.Publisher{anthropics},
		Topics:     []string{"claude-skills", "agent-skills"},
	})
	if err != nil {
		t.Fatal(err)
	}

	count := 0
	for _, c := range res.Candidates {
		if strings.EqualFold(c.URL, "https://github.com/anthropics/skills") {
			count++
			if c.Publisher == nil {
				t.Error("repository found by both phases should keep its publisher form")
			}
		}
	}
	if count != 1 {
		t.Errorf("anthropics/skills appears %d times, want 1", count)
	}
	if last := res.Candidates[len(res.Candidates)-1]; last.URL != "https://github.com/someone/pdf-skill" || last.Publisher != nil {
		t.Errorf("last candidate = %+v", last)
	}
}

func TestDiscoverPublisherRootWithoutDescriptorIsClaimed(t *testing.T) {
	gh, v := publisherFixture()
	delete(v.valid, "anthropics/skills/")
	gh.pages["claude-skills"] = []*github.SearchResult{searchPage(1, "anthropics/skills")}

	res, err := New(gh, v, nil).Discover(context.Background(), Options{
		Publishers: []skill.Publisher{anthropics},
		Topics:     []string{"claude-skills"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range res.Candidates {
		if c.URL == "https://github.com/anthropics/skills" {
			t.Errorf("publisher root without a descriptor was re-added by topic search: %+v", c)
		}
	}
}

func TestDiscoverPublisherRootClaimedWhenMetadataFails(t *testing.T) {
	gh, v := publisherFixture()
	delete(gh.repos, "anthropics/skills")
	gh.pages["claude-skills"] = []*github.SearchResult{searchPage(2, "anthropics/skills", "jane/tester")}

	res, err := New(gh, v, nil).Discover(context.Background(), Options{
		Publishers: []skill.Publisher{anthropics},
		Topics:     []string{"claude-skills"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "publisher anthropics/skills") {
		t.Errorf("Errors = %v, want one publisher error", res.Errors)
	}
	var urls []string
	for _, c := range res.Candidates {
		urls = append(urls, c.URL)
	}
	if len(urls) != 1 || urls[0] != "https://github.com/jane/tester" {
		t.Errorf("candidates = %v, want only jane/tester", urls)
	}
}

func TestDiscoverMaxReposIsHardCeiling(t *testing.T) {
	for _, maxRepos := range []int{1, 2, 3, 5, 17, 30, 31, 50} {
		t.Run(fmt.Sprint(maxRepos), func(t *testing.T) {
			gh, v := publisherFixture()
			gh.pages["claude-skills"] = []*github.SearchResult{
				searchPage(100, repoNames("a", 30)...),
				searchPage(100, repoNames("b", 30)...),
			}
			gh.pages["agent-skills"] = []*github.SearchResult{
				searchPage(100, repoNames("c", 30)...),
			}

			res, err := New(gh, v, nil).Discover(context.Background(), Options{
				Publishers: []skill.Publisher{anthropics},
				Topics:     []string{"claude-skills", "agent-skills"},
				MaxRepos:   maxRepos,
				MaxPages:   10,
			})
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Candidates) > maxRepos {
				t.Errorf("got %d candidates, budget %d", len(res.Candidates), maxRepos)
			}
			if len(res.Candidates) != min(maxRepos, 4+90) {
				t.Errorf("got %d candidates, want budget filled (%d)", len(res.Candidates), min(maxRepos, 94))
			}
		})
	}
}

func TestDiscoverTopicPaging(t *testing.T) {
	gh := &fakeGitHub{pages: map[string][]*github.SearchResult{
		"claude-skills": {
			searchPage(45, repoNames("a", 30)...),
			searchPage(45, repoNames("b", 15)...),
			searchPage(45, repoNames("c", 30)...),
		},
	}}

	res, err := New(gh, &fakeValidator{}, nil).Discover(context.Background(), Options{
		Topics:   []string{"claude-skills"},
		MaxPages: 5,
		MaxRepos: 1000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(gh.searches, ",") != "claude-skills:1,claude-skills:2" {
		t.Errorf("searches = %v, want paging to stop after the short page", gh.searches)
	}
	if len(res.Candidates) != 45 {
		t.Errorf("candidates = %d, want 45", len(res.Candidates))
	}
	if res.Found != 45 {
		t.Errorf("Found = %d, want 45", res.Found)
	}
}

func TestDiscoverMaxPagesCapped(t *testing.T) {
	pages := make([]*github.SearchResult, 15)
	for i := range pages {
		pages[i] = searchPage(1000, repoNames(fmt.Sprintf("p%d", i), 30)...)
	}
	gh := &fakeGitHub{pages: map[string][]*github.SearchResult{"t": pages}}

	_, err := New(gh, &fakeValidator{}, nil).Discover(context.Background(), Options{
		Topics:   []string{"t"},
		MaxPages: 50,
		MaxRepos: 10000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(gh.searches) != MaxPagesLimit {
		t.Errorf("searched %d pages, want %d", len(gh.searches), MaxPagesLimit)
	}
}

func TestDiscoverRateLimitStopsTopicOnly(t *testing.T) {
	gh := &fakeGitHub{
		pages: map[string][]*github.SearchResult{
			"first":  {searchPage(80, repoNames("a", 30)...), searchPage(80, repoNames("b", 30)...)},
			"second": {searchPage(12, repoNames("c", 12)...)},
		},
		errs: map[string]error{
			"first:2": &errors.RateLimitedError{Remaining: 0},
		},
	}

	res, err := New(gh, &fakeValidator{}, nil).Discover(context.Background(), Options{
		Topics:   []string{"first", "second"},
		MaxPages: 3,
		MaxRepos: 1000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(gh.searches, ",") != "first:1,first:2,second:1" {
		t.Errorf("searches = %v", gh.searches)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "rate limited") {
		t.Errorf("errors = %v, want one rate limit error", res.Errors)
	}
	if len(res.Candidates) != 42 {
		t.Errorf("candidates = %d, want 42", len(res.Candidates))
	}
	if res.Found != 80 {
		t.Errorf("Found = %d, want max single-topic total 80", res.Found)
	}
}

func TestDiscoverPublisherErrorsAreCollected(t *testing.T) {
	gh, v := publisherFixture()
	missing := skill.Publisher{Owner: "gone", Repo: "away", BaseScore: 0.5}

	res, err := New(gh, v, nil).Discover(context.Background(), Options{
		Publishers: []skill.Publisher{missing, anthropics},
		Topics:     []string{"claude-skills"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "gone/away") {
		t.Errorf("errors = %v", res.Errors)
	}
	if len(res.Candidates) != 4 {
		t.Errorf("candidates = %d, want the other publisher's 4", len(res.Candidates))
	}
}

func TestDiscoverInvalidTopic(t *testing.T) {
	gh := &fakeGitHub{}
	res, err := New(gh, &fakeValidator{}, nil).Discover(context.Background(), Options{
		Topics: []string{"Bad Topic"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(gh.searches) != 0 || len(res.Errors) != 1 {
		t.Errorf("invalid topic should be reported without searching: searches %v errors %v", gh.searches, res.Errors)
	}
}

func TestDiscoverContextCanceled(t *testing.T) {
	gh, v := publisherFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(gh, v, nil).Discover(ctx, Options{
		Publishers: []skill.Publisher{anthropics},
		Topics:     []string{"claude-skills"},
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestURLs(t *testing.T) {
	if got := TreeURL("o", "r", "main", "/skills/pdf/"); got != "https://github.com/o/r/tree/main/skills/pdf" {
		t.Errorf("TreeURL() = %q", got)
	}
	if got := CanonicalURL(&github.Repository{FullName: "o/r"}); got != "https://github.com/o/r" {
		t.Errorf("CanonicalURL() without html_url = %q", got)
	}
	if got := CanonicalURL(&github.Repository{HTMLURL: "https://github.com/o/r.git"}); got != "https://github.com/o/r" {
		t.Errorf("CanonicalURL() = %q", got)
	}
}

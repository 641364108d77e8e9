// Package skill defines the data types shared by discovery, validation,
// scoring and persistence.
package skill

import (
	"strings"
	"time"
)

// Tier is the trust classification of a skill's provenance.
type Tier string

const (
	TierVerified     Tier = "verified"
	TierCommunity    Tier = "community"
	TierExperimental Tier = "experimental"
	TierUnknown      Tier = "unknown"
)

// Category is one of the fixed catalog categories.
type Category string

const (
	CategorySecurity      Category = "security"
	CategoryTesting       Category = "testing"
	CategoryDevOps        Category = "devops"
	CategoryDocumentation Category = "documentation"
	CategoryProductivity  Category = "productivity"
	CategoryDevelopment   Category = "development"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategorySecurity, CategoryTesting, CategoryDevOps,
	CategoryDocumentation, CategoryProductivity, CategoryDevelopment,
}

// Metadata is the structured subset extracted from a descriptor's
// frontmatter block.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Author      string   `json:"author,omitempty"`
	Triggers    []string `json:"triggers,omitempty"`
}

// Publisher is a curated allow-list entry. Every package found in a
// publisher's repository is indexed as verified with BaseScore.
type Publisher struct {
	Owner     string   `json:"owner" toml:"owner"`
	Repo      string   `json:"repo" toml:"repo"`
	BaseScore float64  `json:"base_score" toml:"base_score"`
	Exclude   []string `json:"exclude,omitempty" toml:"exclude"`
}

// FullName returns "owner/repo".
func (p Publisher) FullName() string { return p.Owner + "/" + p.Repo }

// Excludes reports whether dir is on the publisher's exclusion list.
func (p Publisher) Excludes(dir string) bool {
	for _, e := range p.Exclude {
		if strings.EqualFold(e, dir) {
			return true
		}
	}
	return false
}

// Candidate is a repository, or a package directory inside one, found
// during discovery. It lives for one run only.
type Candidate struct {
	Owner         string
	Repo          string
	FullName      string
	Description   string
	URL           string // canonical; unique key of the resulting record
	Stars         int
	Forks         int
	Topics        []string
	DefaultBranch string
	UpdatedAt     time.Time
	Path          string // package subdirectory, "" for the repository root

	Installable bool       // set after validation
	Metadata    *Metadata  // nil unless validation succeeded with frontmatter
	Publisher   *Publisher // non-nil for trusted-publisher candidates
}

// Record is the persisted form of an indexed skill, keyed by RepoURL.
type Record struct {
	Name          string     `json:"name" bson:"name"`
	Description   string     `json:"description" bson:"description"`
	Author        string     `json:"author" bson:"author"`
	RepoURL       string     `json:"repo_url" bson:"repo_url"`
	QualityScore  float64    `json:"quality_score" bson:"quality_score"`
	TrustTier     Tier       `json:"trust_tier" bson:"trust_tier"`
	Tags          []string   `json:"tags" bson:"tags"`
	Categories    []Category `json:"categories" bson:"categories"`
	Stars         int        `json:"stars" bson:"stars"`
	Installable   bool       `json:"installable" bson:"installable"`
	LastIndexedAt time.Time  `json:"last_indexed_at" bson:"last_indexed_at"`
}

// AuditEntry summarizes one completed, non-dry run.
type AuditEntry struct {
	ID                string           `json:"id" bson:"_id"`
	RunID             string           `json:"run_id" bson:"run_id"`
	Topics            []string         `json:"topics" bson:"topics"`
	Found             int              `json:"found" bson:"found"`
	Indexed           int              `json:"indexed" bson:"indexed"`
	Updated           int              `json:"updated" bson:"updated"`
	Failed            int              `json:"failed" bson:"failed"`
	ScoreDistribution map[string]int   `json:"score_distribution" bson:"score_distribution"`
	CategoryCounts    map[Category]int `json:"category_counts" bson:"category_counts"`
	CreatedAt         time.Time        `json:"created_at" bson:"created_at"`
}

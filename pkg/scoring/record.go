package scoring

import (
	"strings"
	"time"

	"github.com/matzehuels/skillindex/pkg/skill"
)

// NormalizeTag lower-cases a tag and replaces whitespace runs with hyphens.
func NormalizeTag(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// Tags returns repository topics followed by descriptor triggers,
// normalized and deduplicated in first-seen order.
func Tags(topics, triggers []string) []string {
	seen := make(map[string]bool, len(topics)+len(triggers))
	out := make([]string, 0, len(topics)+len(triggers))
	for _, list := range [][]string{topics, triggers} {
		for _, t := range list {
			n := NormalizeTag(t)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// BuildRecord converts a validated candidate into a record. Descriptor
// metadata takes precedence over repository metadata. Categories are left
// empty; the reconciler assigns them only for records that have none.
func BuildRecord(c *skill.Candidate, f Formula, now time.Time) skill.Record {
	score, tier := Score(c, f)

	name, desc, author := c.Repo, c.Description, c.Owner
	if c.Path != "" {
		name = lastSegment(c.Path)
	}
	var triggers []string
	if m := c.Metadata; m != nil {
		if m.Name != "" {
			name = m.Name
		}
		if m.Description != "" {
			desc = m.Description
		}
		if m.Author != "" {
			author = m.Author
		}
		triggers = m.Triggers
	}

	return skill.Record{
		Name:          name,
		Description:   desc,
		Author:        author,
		RepoURL:       c.URL,
		QualityScore:  score,
		TrustTier:     tier,
		Tags:          Tags(c.Topics, triggers),
		Stars:         c.Stars,
		Installable:   c.Installable,
		LastIndexedAt: now.UTC(),
	}
}

// Bucket names a score range for run statistics: high (>= 0.7),
// medium (>= 0.4) or low.
func Bucket(score float64) string {
	switch {
	case score >= 0.7:
		return "high"
	case score >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

func lastSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

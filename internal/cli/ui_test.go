package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/skillindex/pkg/pipeline"
	"github.com/matzehuels/skillindex/pkg/skill"
)

func TestFormatCategoryCounts(t *testing.T) {
	got := formatCategoryCounts(map[skill.Category]int{
		skill.CategoryDevelopment: 4,
		skill.CategorySecurity:    1,
		skill.CategoryTesting:     2,
	})

	last := -1
	for _, name := range []string{"security=", "testing=", "development="} {
		i := strings.Index(got, name)
		if i < 0 {
			t.Fatalf("%q missing from %q", name, got)
		}
		if i < last {
			t.Errorf("%q out of display order in %q", name, got)
		}
		last = i
	}
	if strings.Contains(got, "devops") {
		t.Errorf("zero categories should be omitted: %q", got)
	}
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	printRunSummary(&buf, &pipeline.Result{
		RunID:   "0123456789abcdef",
		DryRun:  true,
		Topics:  []string{"claude-skills"},
		Indexed: 3,
		Errors:  []string{"topic claude-skills: rate limited"},
		Stats: pipeline.Stats{
			CategoryCounts: map[skill.Category]int{skill.CategoryTesting: 1},
		},
	})

	out := buf.String()
	for _, s := range []string{"01234567", "dry run", "claude-skills", "testing=", "1 errors", "rate limited"} {
		if !strings.Contains(out, s) {
			t.Errorf("summary missing %q:\n%s", s, out)
		}
	}
}

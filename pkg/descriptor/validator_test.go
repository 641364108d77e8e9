package descriptor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/matzehuels/skillindex/pkg/integrations"
)

// fakeFetcher serves descriptors from a map keyed by "owner/repo/branch/path".
type fakeFetcher struct {
	files map[string]string
	err   error
	calls map[string]int
}

func (f *fakeFetcher) FetchRaw(_ context.Context, owner, repo, branch, path string) (string, error) {
	key := fmt.Sprintf("%s/%s/%s/%s", owner, repo, branch, path)
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[key]++
	if f.err != nil {
		return "", f.err
	}
	content, ok := f.files[key]
	if !ok {
		return "", fmt.Errorf("fetch %s: %w", key, integrations.ErrNotFound)
	}
	return content, nil
}

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestCheckSingleCharacter(t *testing.T) {
	r := Check("x", DefaultOptions())
	if r.Valid {
		t.Fatal("single character descriptor should be invalid")
	}
	for _, want := range []string{"too short", "missing heading", "missing frontmatter"} {
		if !containsError(r.Errors, want) {
			t.Errorf("errors %v missing %q", r.Errors, want)
		}
	}
}

func TestCheckMinimalValidDescriptor(t *testing.T) {
	content := "---\nname: foo\ndescription: this description has twenty chars\n---\n# Foo\nbody"

	// The descriptor is shorter than the default minimum length.
	r := Check(content, Options{MinContentLength: 10, Strict: true})
	if !r.Valid {
		t.Fatalf("descriptor should be valid, errors: %v", r.Errors)
	}
	if r.Metadata == nil || r.Metadata.Name != "foo" {
		t.Fatalf("metadata = %+v, want name foo", r.Metadata)
	}

	r = Check(content, DefaultOptions())
	if r.Valid || !containsError(r.Errors, "too short") {
		t.Errorf("with the default minimum the descriptor is too short: %+v", r)
	}
}

func TestCheckMetadataRoundTrip(t *testing.T) {
	padding := "\n\n" + strings.Repeat("Detailed usage instructions. ", 5)
	cases := []struct{ name, description string }{
		{"pdf", "Fill and merge PDF documents quickly"},
		{"docx-editor", "Edits Word documents: tracked changes, comments"},
		{"a", strings.Repeat("d", MinDescriptionLength)},
		{"Unicode Näme", "Beschreibung mit Umlauten äöü und mehr"},
		{"with-hash", "Handles C# projects and #tags in text"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			content := fmt.Sprintf("---\nname: %s\ndescription: %s\n---\n# %s%s", c.name, c.description, c.name, padding)
			r := Check(content, DefaultOptions())
			if !r.Valid {
				t.Fatalf("errors: %v", r.Errors)
			}
			if r.Metadata.Name != c.name || r.Metadata.Description != c.description {
				t.Errorf("metadata = %q / %q, want %q / %q",
					r.Metadata.Name, r.Metadata.Description, c.name, c.description)
			}
		})
	}
}

func TestCheckGates(t *testing.T) {
	long := strings.Repeat("Body text. ", 15)

	tests := []struct {
		name      string
		content   string
		opts      Options
		wantValid bool
		wantErrs  []string
		wantMeta  bool
	}{
		{
			name:     "empty",
			content:  "  \n\t",
			opts:     DefaultOptions(),
			wantErrs: []string{"empty"},
		},
		{
			name:     "strict missing name",
			content:  "---\ndescription: a long enough description here\n---\n# T\n" + long,
			opts:     DefaultOptions(),
			wantErrs: []string{"missing name"},
			wantMeta: true,
		},
		{
			name:     "strict short description",
			content:  "---\nname: x\ndescription: too brief\n---\n# T\n" + long,
			opts:     DefaultOptions(),
			wantErrs: []string{"description too short"},
			wantMeta: true,
		},
		{
			name:     "strict malformed frontmatter",
			content:  "---\nname x\n---\n# T\n" + long,
			opts:     DefaultOptions(),
			wantErrs: []string{"invalid frontmatter"},
		},
		{
			name:     "heading needs text",
			content:  "---\nname: x\ndescription: a long enough description here\n---\n#\n##nospace\n" + long,
			opts:     DefaultOptions(),
			wantErrs: []string{"missing heading"},
			wantMeta: true,
		},
		{
			name:      "lenient without frontmatter",
			content:   "# Title\n" + long,
			opts:      Options{Strict: false},
			wantValid: true,
		},
		{
			name:      "lenient extracts metadata",
			content:   "---\nname: x\ndescription: short\n---\n# T\n" + long,
			opts:      Options{Strict: false},
			wantValid: true,
			wantMeta:  true,
		},
		{
			name:      "lenient ignores malformed frontmatter",
			content:   "---\nname x\n---\n# T\n" + long,
			opts:      Options{Strict: false},
			wantValid: true,
		},
		{
			name:     "lenient still checks heading and length",
			content:  "no heading",
			opts:     Options{Strict: false},
			wantErrs: []string{"too short", "missing heading"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Check(tt.content, tt.opts)
			if r.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors %v)", r.Valid, tt.wantValid, r.Errors)
			}
			for _, want := range tt.wantErrs {
				if !containsError(r.Errors, want) {
					t.Errorf("errors %v missing %q", r.Errors, want)
				}
			}
			if (r.Metadata != nil) != tt.wantMeta {
				t.Errorf("Metadata = %+v, wantMeta %v", r.Metadata, tt.wantMeta)
			}
		})
	}
}

func TestCheckAccumulatesErrors(t *testing.T) {
	r := Check("---\nname: x\n---\nno heading", DefaultOptions())
	for _, want := range []string{"too short", "missing heading", "missing description"} {
		if !containsError(r.Errors, want) {
			t.Errorf("errors %v missing %q", r.Errors, want)
		}
	}
}

func TestValidatorFetchesAndCaches(t *testing.T) {
	good := "---\nname: pdf\ndescription: Fill and merge PDF documents\n---\n# PDF\n" + strings.Repeat("x", 100)
	f := &fakeFetcher{files: map[string]string{
		"o/r/main/skills/pdf/SKILL.md": good,
		"o/r/main/SKILL.md":            good,
	}}
	v := NewValidator(f, DefaultOptions())
	ctx := context.Background()

	for range 3 {
		if r := v.Validate(ctx, "o", "r", "main", "skills/pdf"); !r.Valid {
			t.Fatalf("errors: %v", r.Errors)
		}
	}
	if n := f.calls["o/r/main/skills/pdf/SKILL.md"]; n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}

	if r := v.Validate(ctx, "o", "r", "main", ""); !r.Valid {
		t.Errorf("root descriptor errors: %v", r.Errors)
	}
	// Trailing slashes map to the same cache entry.
	v.Validate(ctx, "o", "r", "main", "/skills/pdf/")
	if n := f.calls["o/r/main/skills/pdf/SKILL.md"]; n != 1 {
		t.Errorf("fetches after slash variant = %d, want 1", n)
	}

	// A fresh validator does not share results.
	NewValidator(f, DefaultOptions()).Validate(ctx, "o", "r", "main", "skills/pdf")
	if n := f.calls["o/r/main/skills/pdf/SKILL.md"]; n != 2 {
		t.Errorf("fetches with new validator = %d, want 2", n)
	}
}

func TestValidatorFetchFailures(t *testing.T) {
	ctx := context.Background()

	v := NewValidator(&fakeFetcher{}, DefaultOptions())
	r := v.Validate(ctx, "o", "r", "main", "missing")
	if r.Valid || r.Found || !containsError(r.Errors, "not found") {
		t.Errorf("missing descriptor: %+v", r)
	}

	v = NewValidator(&fakeFetcher{err: errors.New("connection reset")}, DefaultOptions())
	r = v.Validate(ctx, "o", "r", "main", "")
	if r.Valid || !containsError(r.Errors, "fetch failed") {
		t.Errorf("network failure: %+v", r)
	}

	f := &fakeFetcher{}
	r = NewValidator(f, DefaultOptions()).Validate(ctx, "o", "r", "main", "../../etc")
	if r.Valid || len(f.calls) != 0 {
		t.Errorf("path traversal should be rejected without fetching: %+v", r)
	}
}

func TestNewValidatorDefaultsMinLength(t *testing.T) {
	v := NewValidator(&fakeFetcher{}, Options{Strict: true})
	r := v.Check("---\nname: short\ndescription: this description has twenty chars\n---\n# Short\n")
	want := fmt.Sprintf("< %d characters", DefaultMinContentLength)
	if r.Valid || len(r.Errors) != 1 || !strings.Contains(r.Errors[0], want) {
		t.Errorf("Check() = %+v, want only a too-short error mentioning %q", r, want)
	}
}

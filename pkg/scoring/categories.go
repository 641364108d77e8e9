package scoring

import (
	"strings"

	"github.com/matzehuels/skillindex/pkg/skill"
)

// categoryKeywords maps each category to substrings searched for in tags
// and the description.
var categoryKeywords = []struct {
	category skill.Category
	keywords []string
}{
	{skill.CategorySecurity, []string{"security", "vulnerab", "audit", "auth", "secret", "pentest", "owasp", "cve", "encrypt", "compliance"}},
	{skill.CategoryTesting, []string{"test", "qa", "e2e", "playwright", "jest", "pytest", "coverage", "tdd", "selenium"}},
	{skill.CategoryDevOps, []string{"devops", "docker", "kubernetes", "k8s", "deploy", "terraform", "ci/cd", "ci-cd", "infrastructure", "helm", "aws", "cloud", "monitoring"}},
	{skill.CategoryDocumentation, []string{"documentation", "docs", "docx", "readme", "markdown", "technical-writing", "changelog", "wiki", "pdf"}},
	{skill.CategoryProductivity, []string{"productivity", "workflow", "automation", "spreadsheet", "excel", "xlsx", "slides", "pptx", "calendar", "email", "notes", "task"}},
	{skill.CategoryDevelopment, []string{"code", "coding", "develop", "programming", "refactor", "debug", "api", "frontend", "backend", "github", "typescript", "python", "golang", "rust", "react"}},
}

// Categorize returns every category whose keywords occur in the tags or the
// description, in the fixed category order. The result may be empty.
func Categorize(tags []string, description string) []skill.Category {
	haystack := strings.ToLower(strings.Join(tags, " ") + " " + description)
	var out []skill.Category
	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(haystack, kw) {
				out = append(out, ck.category)
				break
			}
		}
	}
	return out
}

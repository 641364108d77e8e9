// Package descriptor validates SKILL.md descriptor files.
//
// A descriptor is a markdown file with a leading frontmatter block:
//
//	---
//	name: pdf-tools
//	description: Fill, merge and extract text from PDF files
//	triggers: [fill a pdf form, merge pdfs]
//	---
//	# PDF tools
//	...
//
// [Validator] fetches the descriptor for a repository path and runs the
// quality gates. Every gate that fails adds an error; only a failed fetch
// or an empty body stops evaluation early:
//
//  1. content is non-empty
//  2. content is at least MinContentLength characters
//  3. at least one markdown heading line
//  4. frontmatter parses; in strict mode it must exist and carry a
//     non-empty name and a description of at least 20 characters
//
// Results are memoized per (owner, repo, branch, path) for the lifetime of
// the Validator. Create one Validator per run.
package descriptor

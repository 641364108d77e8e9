package github

import (
	"regexp"
	"strings"

	"github.com/matzehuels/skillindex/pkg/errors"
)

var (
	// Logins: 1-39 alphanumerics or hyphens, no leading hyphen.
	ownerRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)
	// Repository names: 1-100 alphanumerics, hyphens, underscores or dots.
	repoRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)
)

// ValidateRepoRef checks an owner and repository name before they are
// interpolated into API paths.
func ValidateRepoRef(owner, repo string) error {
	switch {
	case owner == "":
		return errors.New(errors.ErrCodeInvalidInput, "owner is required")
	case !ownerRe.MatchString(owner):
		return errors.New(errors.ErrCodeInvalidInput, "invalid owner %q", owner)
	case repo == "":
		return errors.New(errors.ErrCodeInvalidInput, "repo is required")
	case !repoRe.MatchString(repo) || repo == "." || repo == "..":
		return errors.New(errors.ErrCodeInvalidInput, "invalid repo %q", repo)
	}
	return nil
}

// ParsePackageRef splits "owner/repo[/dir]". dir is "" for the repository
// root and is checked with errors.ValidatePath otherwise.
func ParsePackageRef(ref string) (owner, repo, dir string, err error) {
	parts := strings.SplitN(strings.Trim(ref, "/"), "/", 3)
	if len(parts) < 2 {
		return "", "", "", errors.New(errors.ErrCodeInvalidInput, "invalid reference %q: use owner/repo[/path]", ref)
	}
	if err := ValidateRepoRef(parts[0], parts[1]); err != nil {
		return "", "", "", err
	}
	if len(parts) == 3 {
		dir = strings.Trim(parts[2], "/")
		if err := errors.ValidatePath(dir); err != nil {
			return "", "", "", err
		}
	}
	return parts[0], parts[1], dir, nil
}

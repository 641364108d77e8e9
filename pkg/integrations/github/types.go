package github

import "time"

// Owner is the account that owns a repository.
type Owner struct {
	Login string `json:"login"`
}

// Repository is the subset of GitHub's repository object the indexer uses.
// It is returned by both the search and the repository endpoints.
type Repository struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         Owner     `json:"owner"`
	Description   string    `json:"description"`
	HTMLURL       string    `json:"html_url"`
	DefaultBranch string    `json:"default_branch"`
	Stars         int       `json:"stargazers_count"`
	Forks         int       `json:"forks_count"`
	Topics        []string  `json:"topics"`
	UpdatedAt     time.Time `json:"updated_at"`
	Archived      bool      `json:"archived"`
	Fork          bool      `json:"fork"`
}

// SearchResult is one page of repository search results.
type SearchResult struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []Repository `json:"items"`
}

// ContentItem represents an item in a repository directory listing.
type ContentItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "file", "dir", "symlink" or "submodule"
	Size int    `json:"size"`
}

// IsDir reports whether the item is a directory.
func (c ContentItem) IsDir() bool { return c.Type == "dir" }

// installationToken is the response of the installation token exchange.
type installationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

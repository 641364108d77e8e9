//go:build integration

package github

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestSearch_Integration(t *testing.T) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		t.Skip("GITHUB_TOKEN not set, skipping integration test")
	}

	client := NewClient(Options{
		Credentials: NewCredentialManager(CredentialConfig{StaticToken: token}),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := client.SearchRepositories(ctx, "claude-skills", 1, 5)
	if err != nil {
		t.Fatalf("SearchRepositories() error: %v", err)
	}
	if res.TotalCount == 0 {
		t.Error("expected at least one repository tagged claude-skills")
	}

	tests := []struct {
		name    string
		owner   string
		repo    string
		wantErr bool
	}{
		{"anthropics/skills", "anthropics", "skills", false},
		{"nonexistent", "nonexistent-owner-12345", "nonexistent-repo", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := client.GetRepository(ctx, tt.owner, tt.repo, true)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetRepository(%q, %q) error = %v, wantErr %v", tt.owner, tt.repo, err, tt.wantErr)
				return
			}
			if !tt.wantErr && repo.DefaultBranch == "" {
				t.Error("DefaultBranch should not be empty")
			}
		})
	}
}

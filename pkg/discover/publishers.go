package discover

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/matzehuels/skillindex/pkg/integrations/github"
	"github.com/matzehuels/skillindex/pkg/skill"
)

//go:embed publishers.toml
var defaultPublishers []byte

// PublishersConfigName is the config file looked up under the XDG config dirs.
const PublishersConfigName = "skillindex/publishers.toml"

type publishersFile struct {
	Publisher []skill.Publisher `toml:"publisher"`
}

// PublisherSource reports where a publisher list was loaded from.
type PublisherSource string

const SourceEmbedded PublisherSource = "embedded"

// DefaultPublishers returns the built-in trusted publishers.
func DefaultPublishers() []skill.Publisher {
	pubs, err := ParsePublishers(defaultPublishers)
	if err != nil {
		panic("discover: invalid embedded publishers.toml: " + err.Error())
	}
	return pubs
}

// LoadPublishers loads the trusted-publisher list. An explicit path wins;
// otherwise the XDG config file is used if present; otherwise the embedded
// default.
func LoadPublishers(path string) ([]skill.Publisher, PublisherSource, error) {
	if path == "" {
		if found, err := xdg.SearchConfigFile(PublishersConfigName); err == nil {
			path = found
		}
	}
	if path == "" {
		return DefaultPublishers(), SourceEmbedded, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read publishers: %w", err)
	}
	pubs, err := ParsePublishers(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return pubs, PublisherSource(path), nil
}

// ParsePublishers decodes and validates a publishers TOML document.
// Unknown keys, invalid repository names, scores outside [0,1] and
// duplicate entries are errors.
func ParsePublishers(data []byte) ([]skill.Publisher, error) {
	var f publishersFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parse publishers: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse publishers: unknown key %q", undecoded[0].String())
	}

	seen := make(map[string]bool, len(f.Publisher))
	for i := range f.Publisher {
		p := &f.Publisher[i]
		if err := github.ValidateRepoRef(p.Owner, p.Repo); err != nil {
			return nil, fmt.Errorf("publisher %d: %w", i+1, err)
		}
		if p.BaseScore < 0 || p.BaseScore > 1 {
			return nil, fmt.Errorf("publisher %s: base_score %v outside [0,1]", p.FullName(), p.BaseScore)
		}
		key := strings.ToLower(p.FullName())
		if seen[key] {
			return nil, fmt.Errorf("publisher %s listed twice", p.FullName())
		}
		seen[key] = true
		for _, e := range p.Exclude {
			if strings.TrimSpace(e) == "" || strings.Contains(e, "/") {
				return nil, fmt.Errorf("publisher %s: invalid exclude %q", p.FullName(), e)
			}
		}
	}
	return f.Publisher, nil
}

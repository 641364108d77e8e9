package scoring

import (
	"math"
	"strings"

	"github.com/matzehuels/skillindex/pkg/skill"
)

// Formula selects how stars and forks map to score components.
type Formula int

const (
	// Linear: min(stars/10, 50) and min(forks/5, 25).
	Linear Formula = iota
	// Logarithmic: min(log10(stars+1)*15, 50) and min(log10(forks+1)*10, 25).
	Logarithmic
)

func (f Formula) String() string {
	if f == Logarithmic {
		return "logarithmic"
	}
	return "linear"
}

const (
	maxStarComponent = 50.0
	maxForkComponent = 25.0
	baseComponent    = 25.0

	communityStars    = 50
	experimentalStars = 5
)

// Quality returns the popularity score in [0, 1].
func Quality(stars, forks int, f Formula) float64 {
	s, k := float64(max(stars, 0)), float64(max(forks, 0))
	var starC, forkC float64
	switch f {
	case Logarithmic:
		starC = math.Min(math.Log10(s+1)*15, maxStarComponent)
		forkC = math.Min(math.Log10(k+1)*10, maxForkComponent)
	default:
		starC = math.Min(s/10, maxStarComponent)
		forkC = math.Min(k/5, maxForkComponent)
	}
	return clamp01((starC + forkC + baseComponent) / 100)
}

// TierFor classifies a non-publisher candidate by topics and stars.
func TierFor(stars int, topics []string) skill.Tier {
	switch {
	case hasOfficialTopic(topics):
		return skill.TierVerified
	case stars >= communityStars:
		return skill.TierCommunity
	case stars >= experimentalStars:
		return skill.TierExperimental
	default:
		return skill.TierUnknown
	}
}

// hasOfficialTopic matches "official" and any "<vendor>-official" topic.
func hasOfficialTopic(topics []string) bool {
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "official" || strings.HasSuffix(t, "-official") {
			return true
		}
	}
	return false
}

// Score returns the quality score and tier for a candidate. Publisher
// candidates take the publisher's base score and are always verified.
func Score(c *skill.Candidate, f Formula) (float64, skill.Tier) {
	if c.Publisher != nil {
		return clamp01(c.Publisher.BaseScore), skill.TierVerified
	}
	return Quality(c.Stars, c.Forks, f), TierFor(c.Stars, c.Topics)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

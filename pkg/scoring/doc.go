// Package scoring turns discovery signals and descriptor metadata into a
// trust tier, a quality score, tags and categories.
//
// Every function here is pure. The scoring formula is an explicit
// parameter so both variants can be tested side by side; callers that want
// a runtime switch read it from configuration on each call.
package scoring

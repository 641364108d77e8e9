// Package integrations provides the HTTP gateway used to talk to GitHub.
//
// # Overview
//
// The [Client] type wraps net/http with the behaviour every outbound call
// needs:
//
//   - default headers (User-Agent, Accept) plus credentials from a [HeaderFunc]
//   - mapping of non-2xx responses to typed errors from pkg/errors
//   - optional JSON response caching through [cache.Cache]
//   - request/response events through pkg/observability
//
// It never retries. A 403 whose rate-limit headers show the quota is
// exhausted returns *errors.RateLimitedError so the caller can decide to
// stop paging; a 404 matches [ErrNotFound].
//
// The GitHub-specific client (search, repository metadata, contents
// listing, raw descriptor fetch, installation token exchange) lives in the
// [github] subpackage.
//
// [github]: github.com/matzehuels/skillindex/pkg/integrations/github
// [cache.Cache]: github.com/matzehuels/skillindex/pkg/cache.Cache
package integrations

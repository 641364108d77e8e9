// Package github is the GitHub gateway for the skill indexer.
//
// # Overview
//
// [Client] wraps the shared [integrations.Client] with the GitHub calls the
// indexer needs:
//
//   - [Client.SearchRepositories]: topic search sorted by stars, paced
//   - [Client.GetRepository]: repository metadata, cached across runs
//   - [Client.ListContents]: directory listing
//   - [Client.FetchRaw]: raw file contents (descriptor files)
//
// # Authentication
//
// [CredentialManager] supplies the Authorization header for every call.
// With GitHub App credentials it signs an RS256 assertion, exchanges it for
// an installation token and caches that token until five minutes before it
// expires. Without app credentials, or if the exchange fails, it falls back
// to a static token; with neither, requests go out unauthenticated and are
// subject to the lower anonymous rate limit.
//
// The app private key may be PEM, PEM with literal "\n" escapes, or bare
// base64; see [NormalizePrivateKey]. PKCS#1 keys are wrapped into PKCS#8
// before import.
//
// # Rate limits
//
// Calls are never retried. A 403 with exhausted rate-limit headers returns
// *errors.RateLimitedError; callers stop paging the affected topic.
//
// [integrations.Client]: github.com/matzehuels/skillindex/pkg/integrations.Client
package github

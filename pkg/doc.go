// Package pkg holds the libraries of skillindex, a batch indexer for agent
// skill packages published on GitHub.
//
// # Overview
//
// A run moves candidates through four stages:
//
//	trusted publishers + topic search   [discover]
//	         ↓
//	    SKILL.md gates                  [descriptor]
//	         ↓
//	    score, tier, tags               [scoring]
//	         ↓
//	    batched upsert + audit          [reconcile] → [store]
//
// [pipeline] wires the stages behind one Runner. Supporting packages:
//
//   - [integrations/github]: GitHub REST gateway with App or token credentials
//   - [cache]: repository metadata cache (file, redis, null)
//   - [config]: environment configuration
//   - [errors]: coded errors and input validation
//   - [httputil]: retry and search pacing
//   - [observability]: run, discovery, cache and HTTP hooks
//   - [skill]: shared domain types
package pkg

// Package httputil provides request pacing and retry helpers shared by the
// GitHub client and the store backends.
//
// # Overview
//
//   - [Pacer]: enforces a fixed minimum interval between successive calls
//   - [Backoff]: retry transient failures with exponential backoff
//
// # Pacing
//
// GitHub's secondary ("abuse") rate limits trigger on bursts of search
// calls even when the primary quota is not exhausted. The indexer issues all
// calls sequentially and waits on a [Pacer] before each search request:
//
//	p := httputil.NewPacer(150 * time.Millisecond)
//	for page := 1; page <= maxPages; page++ {
//	    if err := p.Wait(ctx); err != nil {
//	        return err
//	    }
//	    // ... search request ...
//	}
//
// A zero delay disables pacing.
//
// # Retry
//
// [Backoff.Retry] only retries errors wrapped in [RetryableError]. The GitHub
// gateway never retries on its own (the discoverer decides what to do with
// a failed page); retries are used for connecting to stores, where a
// database that is still starting up is a transient condition:
//
//	b := httputil.Backoff{Attempts: 3, Delay: 500 * time.Millisecond, MaxDelay: 2 * time.Second}
//	err := b.Retry(ctx, func(attempt int) error {
//	    if err := pool.Ping(ctx); err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    return nil
//	})
package httputil

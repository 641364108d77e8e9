package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Logging implements every hook interface by writing debug-level log lines.
// Run completion is logged at info level.
type Logging struct {
	logger *log.Logger
}

// NewLogging creates logging hooks writing to logger.
func NewLogging(logger *log.Logger) *Logging {
	return &Logging{logger: logger}
}

// Register installs l as the run, discovery, cache and HTTP hooks.
func (l *Logging) Register() {
	SetRunHooks(l)
	SetDiscoveryHooks(l)
	SetCacheHooks(l)
	SetHTTPHooks(l)
}

func (l *Logging) OnRunStart(_ context.Context, runID string, topics []string) {
	l.logger.Debug("run started", "run_id", runID, "topics", topics)
}

func (l *Logging) OnRunComplete(_ context.Context, runID string, s RunStats, d time.Duration, err error) {
	if err != nil {
		l.logger.Error("run failed", "run_id", runID, "err", err, "elapsed", d.Round(time.Millisecond))
		return
	}
	l.logger.Info("run complete", "run_id", runID, "discovered", s.Discovered,
		"indexed", s.Indexed, "updated", s.Updated, "failed", s.Failed,
		"dry_run", s.DryRun, "elapsed", d.Round(time.Millisecond))
}

func (l *Logging) OnTopicPage(_ context.Context, topic string, page, items int, err error) {
	if err != nil {
		l.logger.Warn("topic page failed", "topic", topic, "page", page, "err", err)
		return
	}
	l.logger.Debug("topic page", "topic", topic, "page", page, "items", items)
}

func (l *Logging) OnCandidate(_ context.Context, url, source string, accepted bool, reason string) {
	if accepted {
		l.logger.Debug("candidate accepted", "url", url, "source", source)
		return
	}
	l.logger.Debug("candidate rejected", "url", url, "source", source, "reason", reason)
}

func (l *Logging) OnCacheHit(_ context.Context, keyType string) {
	l.logger.Debug("cache hit", "type", keyType)
}

func (l *Logging) OnCacheMiss(_ context.Context, keyType string) {
	l.logger.Debug("cache miss", "type", keyType)
}

func (l *Logging) OnCacheSet(_ context.Context, keyType string, size int) {
	l.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (l *Logging) OnRequest(_ context.Context, method, host, path string) {
	l.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (l *Logging) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	l.logger.Debug("http response", "method", method, "host", host, "path", path,
		"status", status, "elapsed", d.Round(time.Millisecond))
}

func (l *Logging) OnError(_ context.Context, method, host, path string, err error) {
	l.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

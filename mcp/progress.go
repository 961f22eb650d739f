package mcp

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	xuanbrain "github.com/xuan-brain/xuan-brain"
)

// ProgressLog keeps the updates of the most recent folder migration so an
// agent can poll them with xuan_data_progress. Each update is also pushed
// to the connected MCP client as a notification on the progress channel.
type ProgressLog struct {
	mu       sync.Mutex
	statuses []xuanbrain.MigrationStatus
}

// NewProgressLog creates an empty progress log.
func NewProgressLog() *ProgressLog {
	return &ProgressLog{}
}

// Reset drops every recorded update.
func (l *ProgressLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = nil
}

// Record appends status.
func (l *ProgressLog) Record(status xuanbrain.MigrationStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, status)
}

// Last returns the newest update. Returns false when nothing was recorded.
func (l *ProgressLog) Last() (xuanbrain.MigrationStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.statuses) == 0 {
		return xuanbrain.MigrationStatus{}, false
	}
	return l.statuses[len(l.statuses)-1], true
}

// Len returns the number of recorded updates.
func (l *ProgressLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.statuses)
}

// sink returns a ProgressSink that records into l and notifies the MCP
// client bound to ctx, if any. Notification failures are returned to the
// engine, which logs and ignores them.
func (l *ProgressLog) sink(ctx context.Context, srv *server.MCPServer) xuanbrain.ProgressSink {
	return xuanbrain.ProgressFunc(func(channel string, status xuanbrain.MigrationStatus) error {
		l.Record(status)
		if srv == nil || server.ClientSessionFromContext(ctx) == nil {
			return nil
		}
		return srv.SendNotificationToClient(ctx, channel, statusParams(status))
	})
}

func statusParams(status xuanbrain.MigrationStatus) map[string]any {
	params := map[string]any{
		"phase":           string(status.Phase),
		"total_files":     status.TotalFiles,
		"processed_files": status.ProcessedFiles,
		"current_file":    nil,
		"error":           nil,
	}
	if status.CurrentFile != nil {
		params["current_file"] = *status.CurrentFile
	}
	if status.Error != nil {
		params["error"] = *status.Error
	}
	return params
}

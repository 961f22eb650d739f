package xuanbrain

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_progress.go -package=mocks github.com/xuan-brain/xuan-brain ProgressSink

import "log/slog"

// ProgressChannel is the channel name folder migration progress is
// emitted on.
const ProgressChannel = "data-migration-progress"

// ProgressSink receives folder migration progress.
type ProgressSink interface {
	Emit(channel string, status MigrationStatus) error
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(channel string, status MigrationStatus) error

// Emit calls f.
func (f ProgressFunc) Emit(channel string, status MigrationStatus) error {
	return f(channel, status)
}

// DiscardProgress drops every update.
var DiscardProgress ProgressSink = ProgressFunc(func(string, MigrationStatus) error { return nil })

// emitProgress delivers status to sink. Delivery failures never abort a
// migration.
func emitProgress(logger *slog.Logger, sink ProgressSink, status MigrationStatus) {
	if sink == nil {
		return
	}
	if err := sink.Emit(ProgressChannel, status); err != nil {
		logger.Debug("progress delivery failed", "phase", status.Phase, "error", err)
	}
}

package xuanbrain_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	xuanbrain "github.com/xuan-brain/xuan-brain"
	"github.com/xuan-brain/xuan-brain/internal/datapath"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func loadDataPath(t *testing.T, path string) datapath.Config {
	t.Helper()
	cfg, err := datapath.Load(path)
	if err != nil {
		t.Fatalf("load data path: %v", err)
	}
	return cfg
}

// recordingSink keeps every status it receives.
type recordingSink struct {
	mu       sync.Mutex
	channels []string
	statuses []xuanbrain.MigrationStatus
}

func (s *recordingSink) Emit(channel string, status xuanbrain.MigrationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = append(s.channels, channel)
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *recordingSink) phases() []xuanbrain.MigrationPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []xuanbrain.MigrationPhase
	for _, st := range s.statuses {
		if len(out) == 0 || out[len(out)-1] != st.Phase {
			out = append(out, st.Phase)
		}
	}
	return out
}

func (s *recordingSink) last() xuanbrain.MigrationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[len(s.statuses)-1]
}

// migrationEnv is a source base, destination base and data path document
// in one temp directory.
type migrationEnv struct {
	sourceBase string
	destBase   string
	configPath string
}

func newMigrationEnv(t *testing.T) migrationEnv {
	t.Helper()
	dir := t.TempDir()
	return migrationEnv{
		sourceBase: filepath.Join(dir, "old"),
		destBase:   filepath.Join(dir, "new"),
		configPath: filepath.Join(dir, "config", "data-path.json"),
	}
}

func (e migrationEnv) sourceRoot() string { return filepath.Join(e.sourceBase, "xuan-brain") }
func (e migrationEnv) destRoot() string   { return filepath.Join(e.destBase, "xuan-brain") }

func (e migrationEnv) service(opts ...xuanbrain.DataMigrationOption) *xuanbrain.DataMigrationService {
	base := []xuanbrain.DataMigrationOption{
		xuanbrain.WithConfigPath(e.configPath),
		xuanbrain.WithDefaultBase(e.sourceBase),
		xuanbrain.WithLogger(quietLogger()),
	}
	return xuanbrain.NewDataMigrationService(e.sourceBase, e.destBase, append(base, opts...)...)
}

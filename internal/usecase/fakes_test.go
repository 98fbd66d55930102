package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/semmidev/dbwarden/internal/domain"
)

type fakeExecutor struct {
	mu       sync.Mutex
	commands []domain.Command
	// fail maps a command name to the exit code and stderr it should fail with.
	fail    map[string]domain.ExecResult
	schemas string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		fail:    map[string]domain.ExecResult{},
		schemas: "information_schema\napp\nmysql\nperformance_schema\nshop\n",
	}
}

func (f *fakeExecutor) Run(_ context.Context, cmd domain.Command) (domain.ExecResult, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	if res, ok := f.fail[cmd.Name]; ok {
		// Leave partial output behind, like a real tool that died halfway.
		if out := outputOf(cmd); out != "" {
			_ = os.WriteFile(out, []byte("-- partial"), 0o600)
		}
		if cmd.Name == "influx" {
			dir := cmd.Args[1]
			_ = os.MkdirAll(dir, 0o755)
			_ = os.WriteFile(filepath.Join(dir, "half"), []byte("partial shard"), 0o600)
		}
		return res, nil
	}

	switch cmd.Name {
	case "mysql":
		return domain.ExecResult{Stdout: []byte(f.schemas)}, nil
	case "mysqldump", "pg_dumpall":
		content := fmt.Sprintf("-- %s dump\n%s\n", cmd.Name, strings.Repeat("INSERT INTO t VALUES (1);\n", 50))
		if err := os.WriteFile(outputOf(cmd), []byte(content), 0o600); err != nil {
			return domain.ExecResult{}, err
		}
	case "influx":
		dir := cmd.Args[1]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.ExecResult{}, err
		}
		if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{}"), 0o600); err != nil {
			return domain.ExecResult{}, err
		}
	default:
		return domain.ExecResult{}, fmt.Errorf("exec: %q: executable file not found in $PATH", cmd.Name)
	}
	return domain.ExecResult{}, nil
}

func (f *fakeExecutor) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, c := range f.commands {
		names = append(names, c.Name)
	}
	return names
}

func outputOf(cmd domain.Command) string {
	for _, arg := range cmd.Args {
		if v, ok := strings.CutPrefix(arg, "--result-file="); ok {
			return v
		}
		if v, ok := strings.CutPrefix(arg, "--file="); ok {
			return v
		}
	}
	return ""
}

type fakeRuntime struct {
	containers []domain.Container
	images     map[string][]string
	listErr    error
	createErr  error
	removeErr  error
	connectErr map[string]error
	stale      []string
	members    map[string][]string

	calls []string
}

func (f *fakeRuntime) ListContainers(_ context.Context, label string) ([]domain.Container, error) {
	f.calls = append(f.calls, "list "+label)
	return f.containers, f.listErr
}

func (f *fakeRuntime) ImageTags(_ context.Context, c domain.Container) ([]string, error) {
	if tags, ok := f.images[c.ID]; ok {
		return tags, nil
	}
	return nil, errors.New("no such image")
}

func (f *fakeRuntime) CreateNetwork(_ context.Context, name string) (string, error) {
	f.calls = append(f.calls, "create "+name)
	if f.createErr != nil {
		return "", f.createErr
	}
	return "net-1", nil
}

func (f *fakeRuntime) RemoveNetwork(_ context.Context, id string) error {
	f.calls = append(f.calls, "remove "+id)
	if f.removeErr != nil {
		if !slices.Contains(f.stale, id) {
			f.stale = append(f.stale, id)
		}
		return f.removeErr
	}
	f.stale = slices.DeleteFunc(f.stale, func(s string) bool { return s == id })
	return nil
}

func (f *fakeRuntime) FindNetworks(_ context.Context, _ string) ([]string, error) {
	return f.stale, nil
}

func (f *fakeRuntime) NetworkMembers(_ context.Context, id string) ([]string, error) {
	return f.members[id], nil
}

func (f *fakeRuntime) Connect(_ context.Context, netID, ctrID string, aliases []string) error {
	f.calls = append(f.calls, fmt.Sprintf("connect %s %s %s", netID, ctrID, strings.Join(aliases, ",")))
	return f.connectErr[ctrID]
}

func (f *fakeRuntime) Disconnect(_ context.Context, netID, ctrID string) error {
	f.calls = append(f.calls, fmt.Sprintf("disconnect %s %s", netID, ctrID))
	return nil
}

type fakeReporter struct {
	started  int
	finished []*domain.CycleResult
	err      error
}

func (f *fakeReporter) Name() string { return "fake" }

func (f *fakeReporter) CycleStarted(context.Context) error {
	f.started++
	return f.err
}

func (f *fakeReporter) CycleFinished(_ context.Context, r *domain.CycleResult) error {
	f.finished = append(f.finished, r)
	return f.err
}

// xorEncryptor is a reversible stand-in for the real cipher.
type xorEncryptor struct {
	err error
}

func (x *xorEncryptor) Encrypt(src, dst, pass string) error {
	if x.err != nil {
		return x.err
	}
	return x.transform(src, dst, pass)
}

func (x *xorEncryptor) Decrypt(src, dst, pass string) error {
	return x.transform(src, dst, pass)
}

func (x *xorEncryptor) transform(src, dst, pass string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	for i := range data {
		data[i] ^= pass[i%len(pass)]
	}
	return os.WriteFile(dst, data, 0o600)
}

type failingCompressor struct {
	domain.Compressor
}

func (failingCompressor) Compress(_, dest string) error {
	_ = os.WriteFile(dest, []byte("half"), 0o600)
	return errors.New("disk full")
}

type memStore struct {
	names     map[string]bool
	deleteErr map[string]error
	deleted   []string
}

func newMemStore(names ...string) *memStore {
	s := &memStore{names: map[string]bool{}, deleteErr: map[string]error{}}
	for _, n := range names {
		s.names[n] = true
	}
	return s
}

func (m *memStore) List(context.Context) ([]string, error) {
	var out []string
	for n := range m.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) Delete(_ context.Context, name string) error {
	if err := m.deleteErr[name]; err != nil {
		return err
	}
	delete(m.names, name)
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *memStore) Upload(_ context.Context, _ string, name string) error {
	m.names[name] = true
	return nil
}

package walk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/karrick/godirwalk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/TFMV/sift/internal/report"
	"github.com/TFMV/sift/internal/search"
)

// makeTree creates every file in files (slash separated, relative to root)
// together with its parent directories.
func makeTree(t testing.TB, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

type result struct {
	lines []string
	stats Stats
	logs  *observer.ObservedLogs
	errs  []error
}

func (r result) set() map[string]bool {
	set := make(map[string]bool, len(r.lines))
	for _, l := range r.lines {
		set[l] = true
	}
	return set
}

func observedOptions(opts Options) (Options, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	opts.Logger = zap.New(core)
	return opts, logs
}

func runSearch(t *testing.T, root, query string, strategy search.Strategy, opts Options) result {
	t.Helper()
	var buf bytes.Buffer
	rep := report.New(&buf)

	opts, logs := observedOptions(opts)
	var mu sync.Mutex
	var errs []error
	opts.OnError = func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	stats, err := Run(context.Background(), root, search.NewRequest(query, strategy), rep, opts)
	require.NoError(t, err)

	out := strings.TrimSuffix(buf.String(), "\n")
	var lines []string
	if out != "" {
		lines = strings.Split(out, "\n")
	}
	assert.EqualValues(t, len(lines), rep.Count())
	return result{lines: lines, stats: stats, logs: logs, errs: errs}
}

func TestRunSubstring(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/report.txt", "a/Report_final.txt", "b/notes.md")

	res := runSearch(t, root, "report", search.Substring, Options{})

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a", "report.txt"),
		filepath.Join(root, "a", "Report_final.txt"),
	}, res.lines)
	assert.EqualValues(t, 2, res.stats.Matches)
	assert.EqualValues(t, 3, res.stats.FilesEvaluated)
	assert.EqualValues(t, 3, res.stats.DirsWalked)
	assert.Zero(t, res.stats.Errors)
}

func TestRunExact(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/report.txt", "a/Report_final.txt", "b/notes.md")

	res := runSearch(t, root, "report.txt", search.Exact, Options{})

	assert.Equal(t, []string{filepath.Join(root, "a", "report.txt")}, res.lines)
}

func TestRunDirectoriesAreNotEvaluated(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "report/notes.md", "report/inner/report")

	res := runSearch(t, root, "report", search.Substring, Options{})

	assert.Equal(t, []string{filepath.Join(root, "report", "inner", "report")}, res.lines)
}

func TestRunEscapesSpaces(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "my dir/my file.txt", "other.txt")

	res := runSearch(t, root, "file", search.Substring, Options{})

	require.Len(t, res.lines, 1)
	assert.Equal(t, report.Escape(filepath.Join(root, "my dir", "my file.txt")), res.lines[0])
	assert.True(t, strings.HasSuffix(res.lines[0], `my\ dir/my\ file.txt`))
	assert.NotRegexp(t, `[^\\] `, res.lines[0])
}

func TestRunUnreadableSubtree(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/report.txt", "b/notes.md", "b/deep/report.md")
	blocked := filepath.Join(root, "a")

	var buf bytes.Buffer
	opts, logs := observedOptions(Options{})
	e, err := newEngine(context.Background(), search.NewRequest("", search.Substring), report.New(&buf), opts)
	require.NoError(t, err)
	e.readDir = func(path string, scratch []byte) (godirwalk.Dirents, error) {
		if path == blocked {
			return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrPermission}
		}
		return godirwalk.ReadDirents(path, scratch)
	}

	stats, err := e.run(root)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, filepath.Join(root, "b", "notes.md"))
	assert.Contains(t, out, filepath.Join(root, "b", "deep", "report.md"))
	assert.NotContains(t, out, filepath.Join(root, "a", "report.txt"))
	assert.EqualValues(t, 1, stats.Errors)

	entries := logs.FilterMessage("cannot read directory").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, blocked, fields["path"])
	assert.Contains(t, fields["error"], "permission denied")
}

func TestRunPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	makeTree(t, root, "a/report.txt", "b/notes.md")
	blocked := filepath.Join(root, "a")
	require.NoError(t, os.Chmod(blocked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(blocked, 0o755) })

	res := runSearch(t, root, "notes", search.Substring, Options{})

	assert.Equal(t, []string{filepath.Join(root, "b", "notes.md")}, res.lines)
	require.Len(t, res.errs, 1)
	var rde *ReadDirError
	require.ErrorAs(t, res.errs[0], &rde)
	assert.Equal(t, blocked, rde.Path)
	assert.True(t, errors.Is(rde, fs.ErrPermission))
}

func TestRunMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")

	res := runSearch(t, root, "x", search.Substring, Options{})

	assert.Empty(t, res.lines)
	assert.EqualValues(t, 1, res.stats.Errors)
	assert.Len(t, res.logs.FilterMessage("cannot read directory").All(), 1)
}

func TestRunEmptyDirectory(t *testing.T) {
	res := runSearch(t, t.TempDir(), "x", search.Substring, Options{})

	assert.Empty(t, res.lines)
	assert.EqualValues(t, 1, res.stats.DirsWalked)
	assert.Zero(t, res.stats.FilesEvaluated)
	assert.Zero(t, res.stats.Errors)
}

func TestRunUnsupportedStrategies(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/x.txt", "a/b/y.txt", "z.txt")

	for _, strategy := range []search.Strategy{search.Content, search.Fuzzy} {
		t.Run(strategy.String(), func(t *testing.T) {
			res := runSearch(t, root, "x", strategy, Options{})

			assert.Empty(t, res.lines)
			assert.EqualValues(t, 3, res.stats.FilesEvaluated)
			assert.EqualValues(t, 3, res.stats.Errors)
			require.Len(t, res.errs, 3)
			for _, err := range res.errs {
				var te *TaskError
				require.ErrorAs(t, err, &te)
				assert.True(t, errors.Is(err, search.ErrUnsupportedStrategy))
			}
			assert.Len(t, res.logs.FilterMessage("task failed").All(), 3)
		})
	}
}

func TestRunSmallQueueRunsOnCaller(t *testing.T) {
	root := t.TempDir()
	var files []string
	for d := 0; d < 8; d++ {
		for f := 0; f < 20; f++ {
			files = append(files, fmt.Sprintf("d%d/sub/file-%02d.log", d, f))
		}
	}
	makeTree(t, root, files...)

	res := runSearch(t, root, ".log", search.Substring, Options{Workers: 1, QueueSize: 1, Parallelism: 4})

	assert.Len(t, res.lines, len(files))
	assert.Len(t, res.set(), len(files))
	assert.EqualValues(t, len(files), res.stats.FilesEvaluated)
}

func TestRunOnDirectory(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/b/c/file", "d/file")

	var mu sync.Mutex
	var dirs []string
	res := runSearch(t, root, "nothing", search.Substring, Options{OnDirectory: func(path string) {
		mu.Lock()
		dirs = append(dirs, path)
		mu.Unlock()
	}})

	assert.EqualValues(t, 5, res.stats.DirsWalked)
	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "b"),
		filepath.Join(root, "a", "b", "c"),
		filepath.Join(root, "d"),
	}, dirs)
}

func TestRunContainsPanics(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/keep.txt", "b/keep.txt")
	bad := filepath.Join(root, "a")

	var buf bytes.Buffer
	opts, logs := observedOptions(Options{})
	e, err := newEngine(context.Background(), search.NewRequest("keep", search.Substring), report.New(&buf), opts)
	require.NoError(t, err)
	e.readDir = func(path string, scratch []byte) (godirwalk.Dirents, error) {
		if path == bad {
			panic("boom")
		}
		return godirwalk.ReadDirents(path, scratch)
	}

	stats, err := e.run(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "b", "keep.txt")+"\n", buf.String())
	assert.EqualValues(t, 1, stats.Errors)

	entries := logs.FilterMessage("task failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, bad, entries[0].ContextMap()["path"])
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/file")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts, _ := observedOptions(Options{})
	stats, err := Run(ctx, root, search.NewRequest("file", search.Substring), report.New(&bytes.Buffer{}), opts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Matches)
}

func TestRunInvalidOptions(t *testing.T) {
	req := search.NewRequest("x", search.Substring)
	rep := report.New(&bytes.Buffer{})

	_, err := Run(context.Background(), ".", nil, rep, Options{})
	assert.Error(t, err)
	_, err = Run(context.Background(), ".", req, nil, Options{})
	assert.Error(t, err)
	_, err = Run(context.Background(), ".", req, rep, Options{Workers: -1})
	assert.Error(t, err)
	_, err = Run(context.Background(), ".", req, rep, Options{QueueSize: -1})
	assert.Error(t, err)
}

func TestRunSymlinkIgnore(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "real/target.txt")
	link := filepath.Join(root, "real", "loop")
	if err := os.Symlink(root, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res := runSearch(t, root, "loop", search.Substring, Options{})

	// The link is evaluated by name and never descended.
	assert.Equal(t, []string{link}, res.lines)
	assert.EqualValues(t, 2, res.stats.DirsWalked)
}

func TestRunSymlinkFollowCycle(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "real/target.txt")
	if err := os.Symlink(root, filepath.Join(root, "real", "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res := runSearch(t, root, "target", search.Substring, Options{SymlinkHandling: SymlinkFollow})

	assert.Equal(t, []string{filepath.Join(root, "real", "target.txt")}, res.lines)
	assert.EqualValues(t, 1, res.stats.SymlinksSkipped)
	assert.Zero(t, res.stats.Errors)
}

func TestRunSymlinkFollowDescends(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	makeTree(t, root, "inside.txt")
	makeTree(t, outside, "hidden/target.txt")
	if err := os.Symlink(outside, filepath.Join(root, "ext")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res := runSearch(t, root, "target", search.Substring, Options{SymlinkHandling: SymlinkFollow})

	assert.Equal(t, []string{filepath.Join(root, "ext", "hidden", "target.txt")}, res.lines)
}

// expected walks root sequentially and returns the escaped paths of all
// non-directory entries whose name satisfies match.
func expected(t *testing.T, root string, match func(name string) bool) map[string]bool {
	t.Helper()
	want := map[string]bool{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && match(strings.ToLower(d.Name())) {
			want[report.Escape(path)] = true
		}
		return nil
	})
	require.NoError(t, err)
	return want
}

func randomTree(t *testing.T, rng *rand.Rand) string {
	root := t.TempDir()
	words := []string{"Alpha", "beta", "GAMMA", "delta", "report", "Report Final", "notes", "x y"}
	var files []string
	for i := 0; i < 150; i++ {
		depth := rng.Intn(4)
		parts := make([]string, 0, depth+1)
		for d := 0; d < depth; d++ {
			parts = append(parts, words[rng.Intn(len(words))])
		}
		parts = append(parts, fmt.Sprintf("%s-%d.txt", words[rng.Intn(len(words))], rng.Intn(5)))
		files = append(files, strings.Join(parts, "/"))
	}
	makeTree(t, root, files...)
	return root
}

func TestRunMatchesSequentialWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	root := randomTree(t, rng)

	queries := []string{"report", "A", "x y", "-1", "delta-3.txt", "zzz"}
	for _, q := range queries {
		lq := strings.ToLower(q)

		got := runSearch(t, root, q, search.Substring, Options{Workers: 3, QueueSize: 4})
		assert.Equal(t, expected(t, root, func(name string) bool { return strings.Contains(name, lq) }), got.set(), "substring %q", q)
		assert.Len(t, got.lines, len(got.set()), "duplicate lines for %q", q)

		got = runSearch(t, root, q, search.Exact, Options{Workers: 3, QueueSize: 4})
		assert.Equal(t, expected(t, root, func(name string) bool { return name == lq }), got.set(), "exact %q", q)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	root := randomTree(t, rng)

	first := runSearch(t, root, "e", search.Substring, Options{})
	second := runSearch(t, root, "e", search.Substring, Options{Workers: 1})

	a, b := append([]string(nil), first.lines...), append([]string(nil), second.lines...)
	sort.Strings(a)
	sort.Strings(b)
	assert.Equal(t, a, b)
}

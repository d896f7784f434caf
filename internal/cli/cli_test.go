// ABOUTME: End-to-end tests driving the CLI through the cobra command tree
// ABOUTME: Covers init/post/show/head and a two-replica sync through the manifest

package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is one isolated fold-ledger home: config, store, identity, remotes.
type testEnv struct {
	configPath string
	dir        string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
store:
  path: %s
identity:
  dir: %s
remotes:
  manifest: %s
logging:
  level: error
`,
		filepath.Join(dir, "ledger.db"),
		filepath.Join(dir, "identity"),
		filepath.Join(dir, "remotes.toml"),
	)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	return &testEnv{configPath: configPath, dir: dir}
}

// run executes one CLI invocation and returns its combined output.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "command %v: %s", args, out)
	return out
}

func TestInitPostShow(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "init")
	assert.Contains(t, out, "seed phrase")
	assert.Contains(t, out, "Fingerprint:")

	env.mustRun(t, "post", "hello")
	env.mustRun(t, "post", "world", "--tag", "tags=greeting")

	out = env.mustRun(t, "show")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "world")

	out = env.mustRun(t, "head")
	assert.Contains(t, out, "seq 2")
}

func TestInit_RefusesOverwrite(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")

	_, err := env.run(t, "init")
	assert.ErrorContains(t, err, "already exists")
}

func TestPost_RequiresIdentity(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "post", "no identity yet")
	assert.ErrorContains(t, err, "no identity")
}

func TestImport_RecoversIdentity(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "init")

	// Recover the printed words from the numbered grid.
	wordRe := regexp.MustCompile(`\d+\.\s+(\S+)`)
	var words []string
	for _, m := range wordRe.FindAllStringSubmatch(out, -1) {
		words = append(words, m[1])
	}
	require.Len(t, words, 24)

	second := newTestEnv(t)
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader(strings.Join(words, " ") + "\n"))
	cmd.SetArgs([]string{"--config", second.configPath, "import"})
	require.NoError(t, cmd.Execute(), buf.String())

	origFP := fingerprintFrom(t, env.mustRun(t, "whoami"))
	newFP := fingerprintFrom(t, second.mustRun(t, "whoami"))
	assert.Equal(t, origFP, newFP)
}

func fingerprintFrom(t *testing.T, whoami string) string {
	t.Helper()
	for _, line := range strings.Split(whoami, "\n") {
		if strings.HasPrefix(line, "Fingerprint:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Fingerprint:"))
		}
	}
	t.Fatalf("no fingerprint in output: %s", whoami)
	return ""
}

func TestSync_TwoReplicas(t *testing.T) {
	local := newTestEnv(t)
	remote := newTestEnv(t)

	local.mustRun(t, "init")
	local.mustRun(t, "post", "from local")

	out := local.mustRun(t, "remote", "add", "other", filepath.Join(remote.dir, "ledger.db"))
	assert.Contains(t, out, "Added remote")

	out = local.mustRun(t, "remote", "list")
	assert.Contains(t, out, "other")

	local.mustRun(t, "sync", "other")

	// The remote replica now replays the same history.
	remoteFP := fingerprintFrom(t, local.mustRun(t, "whoami"))
	out = remote.mustRun(t, "show", "--namespace", remoteFP)
	assert.Contains(t, out, "from local")
}

func TestSync_UnknownRemote(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")

	_, err := env.run(t, "sync", "nowhere")
	assert.ErrorContains(t, err, "unknown remote")
}

func TestShow_EmptyNamespace(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")

	out := env.mustRun(t, "show")
	assert.Contains(t, out, "No entries")
}

func TestPost_SealedContent(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")

	env.mustRun(t, "post", "only for my eyes", "--seal")

	// The holder of the phrase reads the plaintext back.
	out := env.mustRun(t, "show")
	assert.Contains(t, out, "only for my eyes")
	assert.Contains(t, out, "(sealed)")
}

func TestShow_SealedContentWithoutKey(t *testing.T) {
	local := newTestEnv(t)
	remote := newTestEnv(t)

	local.mustRun(t, "init")
	local.mustRun(t, "post", "blind storage payload", "--seal")
	local.mustRun(t, "remote", "add", "other", filepath.Join(remote.dir, "ledger.db"))
	local.mustRun(t, "sync", "other")

	// The remote replica verifies and replays the entry but, holding no
	// key, sees only the sealed form.
	fp := fingerprintFrom(t, local.mustRun(t, "whoami"))
	out := remote.mustRun(t, "show", "--namespace", fp)
	assert.Contains(t, out, "(sealed, no key)")
	assert.NotContains(t, out, "blind storage payload")
}

func TestRecall_FiltersByTag(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")

	env.mustRun(t, "post", "saw a pattern", "--tag", "kind=observation")
	env.mustRun(t, "post", "plain note")
	env.mustRun(t, "post", "learned a lesson", "--tag", "kind=learning")

	out := env.mustRun(t, "recall", "--tag", "kind=observation")
	assert.Contains(t, out, "saw a pattern")
	assert.NotContains(t, out, "plain note")
	assert.NotContains(t, out, "learned a lesson")

	// Presence-only filter keeps every tagged entry.
	out = env.mustRun(t, "recall", "--tag", "kind")
	assert.Contains(t, out, "saw a pattern")
	assert.Contains(t, out, "learned a lesson")
	assert.NotContains(t, out, "plain note")
}

func TestRecall_TimeWindow(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")
	env.mustRun(t, "post", "just now")

	out := env.mustRun(t, "recall", "--within", "1h")
	assert.Contains(t, out, "just now")

	// A window opening after the post excludes it. Matching uses the
	// signed timestamp, not the local arrival time.
	out = env.mustRun(t, "recall", "--within", "1ns")
	assert.Contains(t, out, "No matching entries")
}

func TestRecall_NoMatches(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")
	env.mustRun(t, "post", "untagged")

	out := env.mustRun(t, "recall", "--tag", "kind=observation")
	assert.Contains(t, out, "No matching entries")
}

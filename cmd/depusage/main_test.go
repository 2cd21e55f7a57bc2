package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depusage/internal/classfile/classfiletest"
	"depusage/internal/config"
	"depusage/internal/report"
)

const projectManifest = `
version = 1

[[variant]]
name = "debug"
classes = ["build/classes"]
dependencies = ["g:x:1", "g:y:1"]
api = ["g:api:1", "g:impl:1"]

[[variant.artifact]]
file = "libs/x.jar"
id = "g:x:1"

[[variant.artifact]]
file = "libs/y.jar"
id = "g:y:1"

[[variant.artifact]]
file = "libs/z.jar"
id = "g:z:1"

[[variant.artifact]]
file = "libs/api.jar"
id = "g:api:1"

[[variant.artifact]]
file = "libs/impl.jar"
id = "g:impl:1"
`

// newProject lays out a variant that declares x (unused), uses z only
// through x, exposes api publicly and uses impl privately.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	app := classfiletest.NewClass("com/app/App").Uses("y/Y", "z/Z", "impl/Impl")
	app.Method(classfiletest.Public, "api", "()Lapi/Api;")
	classfiletest.WriteDir(t, filepath.Join(dir, "build", "classes"), app)

	libs := filepath.Join(dir, "libs")
	classfiletest.WriteJar(t, filepath.Join(libs, "x.jar"), classfiletest.NewClass("x/X").Uses("z/Z"))
	classfiletest.WriteJar(t, filepath.Join(libs, "y.jar"), classfiletest.NewClass("y/Y"))
	classfiletest.WriteJar(t, filepath.Join(libs, "z.jar"), classfiletest.NewClass("z/Z"))
	classfiletest.WriteJar(t, filepath.Join(libs, "api.jar"), classfiletest.NewClass("api/Api"))
	classfiletest.WriteJar(t, filepath.Join(libs, "impl.jar"), classfiletest.NewClass("impl/Impl"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "depusage.toml"), []byte(projectManifest), 0644))
	return dir
}

// resetFlags restores every flag to its default so commands can run
// repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	for _, name := range append(config.GetSupportedEnvVars(), config.ConfigPathEnvVar) {
		if _, ok := os.LookupEnv(name); ok {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestAnalyze_WritesReports(t *testing.T) {
	dir := newProject(t)

	code, out, stderr := run(t, "analyze", "-p", dir)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, out, "Variant debug")
	assert.Contains(t, out, "  - g:x:1")

	reportDir := filepath.Join(dir, "build", "reports", "dependency-analysis", "debug")
	data, err := os.ReadFile(filepath.Join(reportDir, report.UnusedFileName))
	require.NoError(t, err)
	var unused report.UnusedDependencies
	require.NoError(t, json.Unmarshal(data, &unused))
	assert.Equal(t, []string{"g:x:1"}, unused.Remove)
	assert.Equal(t, []string{"g:z:1"}, unused.Add)

	data, err = os.ReadFile(filepath.Join(reportDir, report.MisconfiguredFileName))
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"g:impl:1\"\n]\n", string(data))
}

func TestAnalyze_JSONAndOutputDir(t *testing.T) {
	dir := newProject(t)
	outDir := filepath.Join(t.TempDir(), "reports")

	code, out, stderr := run(t, "analyze", "-p", dir, "--variant", "debug", "--output-dir", outDir, "--format", "json")
	require.Equal(t, exitOK, code, stderr)

	var resp AnalyzeResponseCLI
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Variants, 1)
	v := resp.Variants[0]
	assert.Equal(t, []string{"g:impl:1"}, v.Misconfigured)
	assert.Equal(t, filepath.Join(outDir, "debug", report.UnusedFileName), v.UnusedFile)
	assert.Empty(t, v.RunID)
}

func TestAnalyze_FailOnFindings(t *testing.T) {
	dir := newProject(t)

	code, _, stderr := run(t, "analyze", "-p", dir, "--fail-on-findings")
	assert.Equal(t, exitFindings, code)
	assert.Contains(t, stderr, "dependency findings")
}

func TestAnalyze_Errors(t *testing.T) {
	dir := newProject(t)

	code, _, stderr := run(t, "analyze", "-p", dir, "--variant", "staging")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "INPUT_INVALID")

	code, _, stderr = run(t, "analyze", "-p", t.TempDir())
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "INPUT_MISSING")

	require.NoError(t, os.Remove(filepath.Join(dir, "libs", "y.jar")))
	code, _, stderr = run(t, "analyze", "-p", dir)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "ARCHIVE_UNREADABLE")
}

func TestAnalyze_RecordsHistory(t *testing.T) {
	dir := newProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".depusage"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".depusage", "config.json"),
		[]byte(`{"version": 1, "history": {"enabled": true}}`), 0644))

	for i := 0; i < 2; i++ {
		code, out, stderr := run(t, "analyze", "-p", dir, "--format", "json")
		require.Equal(t, exitOK, code, stderr)
		assert.Contains(t, out, `"runId"`)
	}

	code, out, stderr := run(t, "history", "-p", dir, "--format", "json")
	require.Equal(t, exitOK, code, stderr)

	var resp HistoryResponseCLI
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, resp.Runs[0].Fingerprint, resp.Runs[1].Fingerprint)
	assert.False(t, resp.Runs[0].Regression)
	assert.Equal(t, 1, resp.Runs[0].Remove)
}

func TestHistory_NoDatabase(t *testing.T) {
	dir := t.TempDir()

	code, out, stderr := run(t, "history", "-p", dir)
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "No runs recorded.\n", out)

	_, err := os.Stat(filepath.Join(dir, ".depusage"))
	assert.True(t, os.IsNotExist(err), "history must not create the database")
}

func TestGraph(t *testing.T) {
	dir := newProject(t)

	code, out, stderr := run(t, "graph", "-p", dir, "--variant", "debug", "--format", "json", "--why", "g:y:1")
	require.Equal(t, exitOK, code, stderr)

	var resp GraphResponseCLI
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "debug", resp.Root)
	assert.Equal(t, []string{"g:z:1"}, resp.Indirect)
	require.NotNil(t, resp.Why)
	assert.True(t, resp.Why.Reachable)
	assert.True(t, resp.Why.Required)
	assert.True(t, resp.Why.Declared)
	assert.Equal(t, []string{"debug", "g:y:1"}, resp.Why.Path)

	code, out, _ = run(t, "graph", "-p", dir, "--variant", "debug", "--why", "g:z:1")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "g:z:1 is not reachable from debug")
	assert.Contains(t, out, "required: yes, declared: no")

	code, out, _ = run(t, "graph", "-p", dir, "--variant", "debug", "--format", "json", "--why", "g:x:1")
	require.Equal(t, exitOK, code)
	resp = GraphResponseCLI{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Why.Required)
	assert.True(t, resp.Why.Declared)
	assert.False(t, resp.Why.Reachable)

	code, out, _ = run(t, "graph", "-p", dir, "--variant", "debug", "--format", "dot")
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out, `digraph "debug" {`), out)
	assert.Contains(t, out, `"g:x:1" -> "g:z:1" [style=dashed];`)

	code, _, stderr = run(t, "graph", "-p", dir)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "--variant is required")
}

func TestClasses(t *testing.T) {
	dir := newProject(t)

	code, out, stderr := run(t, "classes", "-p", dir, "--variant", "debug")
	require.Equal(t, exitOK, code, stderr)
	for _, c := range []string{"api.Api", "impl.Impl", "java.lang.Object", "y.Y", "z.Z"} {
		assert.Contains(t, out, c+"\n")
	}

	code, out, _ = run(t, "classes", "-p", dir, "--variant", "debug", "--private")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "impl.Impl\n")
	assert.NotContains(t, out, "api.Api")
}

func TestConfigShow(t *testing.T) {
	dir := t.TempDir()

	code, out, stderr := run(t, "config", "show", "-p", dir, "--format", "json")
	require.Equal(t, exitOK, code, stderr)

	var resp ConfigShowResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.UsedDefaults)
	assert.Equal(t, "dependenciesReport.json", resp.Config["reports.unusedFileName"])

	code, out, _ = run(t, "config", "show", "-p", dir, "--diff")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Source: defaults")
	assert.NotContains(t, out, "reports.unusedFileName")

	code, out, _ = run(t, "config", "env", "-p", dir)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "DEPUSAGE_LOG_LEVEL")
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()

	code, out, stderr := run(t, "config", "init", "-p", dir)
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "Wrote "+filepath.Join(".depusage", "config.json")+"\n", out)

	code, out, _ = run(t, "config", "show", "-p", dir, "--format", "json")
	require.Equal(t, exitOK, code)
	var resp ConfigShowResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.UsedDefaults)

	code, _, stderr = run(t, "config", "init", "-p", dir)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "already exists")

	code, _, stderr = run(t, "config", "init", "-p", dir, "--force")
	assert.Equal(t, exitOK, code, stderr)
}

func TestConfig_InvalidFileFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".depusage"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".depusage", "config.json"), []byte(`{"version": 9}`), 0644))

	code, _, stderr := run(t, "analyze", "-p", dir)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "CONFIG_INVALID")
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "version")
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out, "depusage version "), out)
}

func TestVerboseLogsToStderr(t *testing.T) {
	dir := newProject(t)

	code, _, stderr := run(t, "analyze", "-p", dir, "-vv")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stderr, "[debug] Built dependency graph")
	assert.Contains(t, stderr, "[info] Analyzed variant | variant=debug")

	code, _, stderr = run(t, "analyze", "-p", dir, "-q")
	require.Equal(t, exitOK, code)
	assert.Empty(t, stderr)
}

package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCompile executes the compile command against a source file,
// capturing stderr. Canonical output goes to a file via -o so stdout
// stays untouched.
func runCompile(t *testing.T, source string, extraArgs ...string) (stderr, code string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "main.prose")
	out := filepath.Join(dir, "out.prose")
	if err := os.WriteFile(src, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}

	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w

	cmd := newCompileCmd()
	cmd.SetArgs(append([]string{src, "-o", out, "--target", "claude-code"}, extraArgs...))
	execErr := cmd.Execute()

	w.Close()
	os.Stderr = old
	captured, _ := io.ReadAll(r)

	if execErr != nil {
		t.Fatalf("compile failed: %v\nstderr: %s", execErr, captured)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	return string(captured), string(data)
}

func TestCompileCmd_ReportsStrippedCommentCount(t *testing.T) {
	stderr, code := runCompile(t, "# setup\nsession \"hi\"\n")
	if !strings.Contains(stderr, "stripped 1 comment(s)") {
		t.Errorf("stderr missing stripped count: %q", stderr)
	}
	if strings.Contains(code, "# setup") {
		t.Errorf("comment survived stripping: %q", code)
	}
}

func TestCompileCmd_ReportsZeroStrippedComments(t *testing.T) {
	stderr, _ := runCompile(t, "session \"hi\"\n")
	if !strings.Contains(stderr, "stripped 0 comment(s)") {
		t.Errorf("count must be reported for comment-free programs too: %q", stderr)
	}
}

func TestCompileCmd_PreserveCommentsKeepsZeroCount(t *testing.T) {
	stderr, code := runCompile(t, "# setup\nsession \"hi\"\n", "--preserve-comments")
	if !strings.Contains(stderr, "stripped 0 comment(s)") {
		t.Errorf("preserved comments must report zero stripped: %q", stderr)
	}
	if !strings.Contains(code, "# setup") {
		t.Errorf("comment missing from preserved output: %q", code)
	}
}

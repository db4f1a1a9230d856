package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileYieldsZeroConfig(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.DefaultTarget != "" || c.PreserveComments {
		t.Errorf("got %+v, want zero config", c)
	}
}

func TestLoad_ReadsProjectFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte("default_target: opencode\npreserve_comments: true\n")
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), data, 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.DefaultTarget != "opencode" {
		t.Errorf("default_target: got %q", c.DefaultTarget)
	}
	if !c.PreserveComments {
		t.Error("preserve_comments: got false, want true")
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("default_target: [unclosed"))
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("got %v", err)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &Config{DefaultTarget: "claude-code", PreserveComments: true}
	if err := Write(in, dir); err != nil {
		t.Fatal(err)
	}

	out, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if *out != *in {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSearchPaths_IncludesWorkingDirectoryCandidates(t *testing.T) {
	paths := SearchPaths("vire-tools.toml")

	want := map[string]bool{
		"vire-tools.toml":                          false,
		filepath.Join("config", "vire-tools.toml"): false,
		filepath.Join("docker", "vire-tools.toml"): false,
	}
	for _, p := range paths {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for p, found := range want {
		if !found {
			t.Errorf("expected %s in search paths %v", p, paths)
		}
	}
}

func TestDiscover_FindsFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if got := Discover("discover-test.toml"); got != nil {
		t.Fatalf("expected no file, got %v", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "discover-test.toml"), []byte("[server]\nport = 9000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got := Discover("discover-test.toml")
	if len(got) != 1 {
		t.Fatalf("expected one discovered file, got %v", got)
	}
	cfg, err := LoadFromFiles(got...)
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
}

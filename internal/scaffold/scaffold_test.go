package scaffold

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"

	"github.com/pgindex/pgindex/internal/config"
)

func TestInitWritesStarterFiles(t *testing.T) {
	dir := t.TempDir()

	res, err := Init(dir, false)
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if !res.ConfigCreated || !res.EnvExampleCreated || !res.GitignoreUpdated {
		t.Errorf("Expected every file to be created, got %+v", res)
	}

	cfg, err := config.LoadConfig(res.ConfigPath)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if cfg.Import.Threads != 2 || cfg.Export.Schema != config.Wildcard {
		t.Errorf("Expected defaults in generated config, got %+v", cfg)
	}

	env, err := godotenv.Read(res.EnvExamplePath)
	if err != nil {
		t.Fatalf("Failed to read .env.example: %v", err)
	}
	for _, key := range []string{config.EnvSourceURL, config.EnvTargetURL, config.EnvSourcePassword, config.EnvTargetPassword} {
		if _, ok := env[key]; !ok {
			t.Errorf("Expected %s in .env.example", key)
		}
	}

	gitignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(gitignore), "\n.env\n") {
		t.Errorf("Expected .env to be ignored, got %q", gitignore)
	}
}

func TestInitRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultFileName)
	if err := os.WriteFile(path, []byte("[import]\nthreads = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Init(dir, false); !errors.Is(err, ErrConfigExists) {
		t.Fatalf("Expected ErrConfigExists, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "threads = 7") {
		t.Error("Existing config must not be touched without force")
	}

	res, err := Init(dir, true)
	if err != nil {
		t.Fatalf("Init with force returned error: %v", err)
	}
	if !res.ConfigUpdated || res.ConfigCreated {
		t.Errorf("Expected config to be reported as updated, got %+v", res)
	}
}

func TestInitKeepsExistingEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, EnvExampleFile), []byte("TARGET_URL=postgres://mine\nOTHER=1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("bin/\n.env\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Init(dir, false)
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if res.GitignoreUpdated {
		t.Error("Expected .gitignore to be left alone when .env is already ignored")
	}
	if !res.EnvExampleUpdated {
		t.Errorf("Expected .env.example to be extended, got %+v", res)
	}

	env, err := godotenv.Read(res.EnvExamplePath)
	if err != nil {
		t.Fatal(err)
	}
	if env[config.EnvTargetURL] != "postgres://mine" || env["OTHER"] != "1" {
		t.Errorf("Expected existing values kept, got %v", env)
	}
	if _, ok := env[config.EnvSourceURL]; !ok {
		t.Error("Expected missing SOURCE_URL to be added")
	}

	// a second run has nothing left to add
	res, err = Init(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.EnvExampleUpdated || res.EnvExampleCreated {
		t.Errorf("Expected no .env.example changes, got %+v", res)
	}
}

func TestConfigTOMLPassesSchema(t *testing.T) {
	cfg := config.Default()
	cfg.Import.Threads = 6
	doc := ConfigTOML(cfg)

	if err := config.ValidateDocument([]byte(doc)); err != nil {
		t.Fatalf("Generated document failed validation: %v", err)
	}
	if !strings.Contains(doc, "threads = 6") {
		t.Errorf("Expected threads from the given config, got:\n%s", doc)
	}
}

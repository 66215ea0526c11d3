package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestTypesCommand(t *testing.T) {
	t.Parallel()

	vocab := newVocabularyServer(t)
	dir := t.TempDir()
	configPath := writeEmptyConfig(t, dir)
	common := []string{
		"--config", configPath,
		"--vocabulary-url", vocab.URL,
		"--vocabulary-cache", filepath.Join(dir, "vocabulary.jsonld"),
	}

	t.Run("lists every type", func(t *testing.T) {
		t.Parallel()

		out, _, err := execute(t, append([]string{"types"}, common...)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "Organization\nProduct\nThing\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("prints inherited properties", func(t *testing.T) {
		t.Parallel()

		out, _, err := execute(t, append([]string{"types", "schema:Organization"}, common...)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Organization\n", "extends: Thing", "    founder\n", "    name\n"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if strings.Contains(out, "offers") {
			t.Error("Product property listed for Organization")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, append([]string{"types", "Spaceship"}, common...)...)
		if err == nil || !strings.Contains(err.Error(), "unknown schema.org type: Spaceship") {
			t.Errorf("expected unknown type error, got %v", err)
		}
	})
}

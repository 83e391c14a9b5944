package hook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeHook creates dir/<name> with a manifest and, if script is non-empty,
// an executable shell script named run.sh.
func writeHook(t *testing.T, dir string, manifest Manifest, script string) string {
	t.Helper()

	hookDir := filepath.Join(dir, manifest.Name)
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	if script != "" {
		if err := os.WriteFile(filepath.Join(hookDir, manifest.Executable), []byte(script), 0755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}
	}
	return hookDir
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
}

func TestManifest_Accepts(t *testing.T) {
	tests := []struct {
		name       string
		manifest   Manifest
		label      string
		confidence float64
		want       bool
	}{
		{"any label", Manifest{}, "cup", 0.1, true},
		{"listed label", Manifest{Labels: []string{"person", "dog"}}, "dog", 0.9, true},
		{"unlisted label", Manifest{Labels: []string{"person"}}, "dog", 0.9, false},
		{"below confidence", Manifest{MinConfidence: 0.8}, "person", 0.79, false},
		{"at confidence", Manifest{MinConfidence: 0.8}, "person", 0.8, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.manifest.Accepts(tt.label, tt.confidence); got != tt.want {
				t.Errorf("Accepts(%q, %v) = %v, want %v", tt.label, tt.confidence, got, tt.want)
			}
		})
	}
}

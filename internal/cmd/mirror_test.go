package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestExportThenImportRoundTrips(t *testing.T) {
	app, out, _ := newTestApp(t)
	provider := NewTestProvider(app)

	createCmd := newCreateCmd(provider)
	createCmd.SetArgs([]string{"Round trip me", "--type", "feature"})
	if err := createCmd.Execute(); err != nil {
		t.Fatalf("create: %v", err)
	}
	var created map[string]string
	if err := json.Unmarshal(out.Bytes(), &created); err != nil {
		t.Fatalf("parsing create output: %v", err)
	}
	out.Reset()

	exportPath := filepath.Join(t.TempDir(), "export.jsonl")
	exportCmd := newExportCmd(provider)
	exportCmd.SetArgs([]string{"--out", exportPath})
	if err := exportCmd.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Fatalf("export did not create %s: %v", exportPath, err)
	}
	out.Reset()

	app2, out2, _ := newTestApp(t)
	provider2 := NewTestProvider(app2)

	importCmd := newImportCmd(provider2)
	importCmd.SetArgs([]string{"--in", exportPath})
	if err := importCmd.Execute(); err != nil {
		t.Fatalf("import: %v", err)
	}
	out2.Reset()

	showCmd := newShowCmd(provider2)
	showCmd.SetArgs([]string{created["id"]})
	if err := showCmd.Execute(); err != nil {
		t.Fatalf("show after import: %v", err)
	}
	var shown map[string]any
	if err := json.Unmarshal(out2.Bytes(), &shown); err != nil {
		t.Fatalf("parsing show output %q: %v", out2.String(), err)
	}
	if shown["title"] != "Round trip me" {
		t.Errorf("title after import = %v, want %q", shown["title"], "Round trip me")
	}
}

package frontmatter

import (
	"strings"
	"testing"

	"minibeads/internal/issue"
)

func newTestIssue() *issue.Issue {
	i := issue.New("bd-abc", "Fix the thing")
	i.Description = "It is broken."
	i.DependsOn["bd-xyz"] = issue.DepBlocks
	return i
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	i := newTestIssue()
	text, err := Encode(i, false)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, warnings, err := Decode(text, issue.ValidationWarn)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	if decoded.Title != i.Title {
		t.Errorf("Title = %q, want %q", decoded.Title, i.Title)
	}
	if decoded.Description != i.Description {
		t.Errorf("Description = %q, want %q", decoded.Description, i.Description)
	}
	if decoded.DependsOn["bd-xyz"] != issue.DepBlocks {
		t.Errorf("DependsOn[bd-xyz] = %v, want blocks", decoded.DependsOn["bd-xyz"])
	}
	if !decoded.CreatedAt.Equal(i.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", decoded.CreatedAt, i.CreatedAt)
	}
}

func TestEncodeDescriptionAlwaysEmittedForNewIssue(t *testing.T) {
	i := issue.New("bd-abc", "Empty description")
	text, err := Encode(i, true)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(text, "# Description") {
		t.Errorf("expected Description section even when empty, got:\n%s", text)
	}
}

func TestEncodeOmitsEmptyOptionalSections(t *testing.T) {
	i := issue.New("bd-abc", "No design or notes")
	text, err := Encode(i, false)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(text, "# Design") {
		t.Errorf("should not emit empty Design section, got:\n%s", text)
	}
	if strings.Contains(text, "# Notes") {
		t.Errorf("should not emit empty Notes section, got:\n%s", text)
	}
}

func TestSanitizeSectionDemotesHeadings(t *testing.T) {
	content := "# one\n## two\n### three\n#### four\n##### five"
	got, err := sanitizeSection(content)
	if err != nil {
		t.Fatalf("sanitizeSection: %v", err)
	}
	want := "## one\n### two\n#### three\n##### four\n###### five"
	if got != want {
		t.Errorf("sanitizeSection =\n%q\nwant\n%q", got, want)
	}
}

func TestSanitizeSectionFailsOnH6(t *testing.T) {
	_, err := sanitizeSection("###### too deep")
	if err == nil {
		t.Fatal("expected ErrHeaderDepthExceeded")
	}
}

func TestDecodeMissingFrontmatter(t *testing.T) {
	_, _, err := Decode("# just markdown, no frontmatter", issue.ValidationWarn)
	if err != ErrMissingFrontmatter {
		t.Errorf("err = %v, want ErrMissingFrontmatter", err)
	}
}

func TestDecodeUnrecognizedHeaderWarnsAndFoldsIntoNotes(t *testing.T) {
	i := issue.New("bd-abc", "t")
	i.Notes = "existing note"
	text, err := Encode(i, false)
	if err != nil {
		t.Fatal(err)
	}
	text += "\n# Random Section\n\nsome content\n"

	decoded, warnings, err := Decode(text, issue.ValidationWarn)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Kind != issue.WarnUnexpectedHeader {
		t.Fatalf("warnings = %v, want one WarnUnexpectedHeader", warnings)
	}
	if !strings.Contains(decoded.Notes, "Random Section") {
		t.Errorf("Notes = %q, expected it to include the unrecognized section", decoded.Notes)
	}
	if !strings.Contains(decoded.Notes, "existing note") {
		t.Errorf("Notes = %q, expected original notes preserved", decoded.Notes)
	}
}

func TestDecodeLegacyDependsOnObjectShape(t *testing.T) {
	text := "---\n" +
		"title: legacy\n" +
		"status: open\n" +
		"priority: 2\n" +
		"type: task\n" +
		"depends_on:\n" +
		"  bd-1:\n" +
		"    type: blocks\n" +
		"created_at: 2024-01-01T00:00:00Z\n" +
		"updated_at: 2024-01-01T00:00:00Z\n" +
		"---\n"

	decoded, _, err := Decode(text, issue.ValidationSilent)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.DependsOn["bd-1"] != issue.DepBlocks {
		t.Errorf("DependsOn[bd-1] = %v, want blocks", decoded.DependsOn["bd-1"])
	}
}

func TestEncodeEmitsCanonicalMapShapeOnly(t *testing.T) {
	i := newTestIssue()
	text, err := Encode(i, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "bd-xyz: blocks") {
		t.Errorf("expected canonical 'id: kind' shape in output:\n%s", text)
	}
}

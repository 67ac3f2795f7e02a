// Package frontmatter encodes and decodes the on-disk issue file format:
// a YAML frontmatter block followed by a Markdown body with canonical H1
// sections (Description, Design, Acceptance Criteria, Notes).
//
// Header sanitization demotes every level from H1 through H5 (not just
// H1->H2) and fails on H6; an unrecognized H1 section produces a non-fatal
// warning and is folded into Notes instead of being silently dropped.
package frontmatter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"minibeads/internal/issue"
)

// ErrHeaderDepthExceeded is returned when a section body contains a heading
// at depth 6 or deeper, which sanitization cannot demote any further.
var ErrHeaderDepthExceeded = errors.New("frontmatter: header depth exceeded")

// ErrMissingFrontmatter is returned when a file does not start with a
// "---" delimited YAML block.
var ErrMissingFrontmatter = errors.New("frontmatter: missing frontmatter block")

const timeLayout = time.RFC3339Nano

// wire is the YAML-serializable frontmatter block. Field order here is the
// field order emitted on disk: yaml.v3 marshals structs in declaration
// order, which is what keeps output diff-friendly across rewrites.
type wire struct {
	Title       string        `yaml:"title"`
	Status      string        `yaml:"status"`
	Priority    int           `yaml:"priority"`
	Type        string        `yaml:"issue_type"`
	Assignee    string        `yaml:"assignee,omitempty"`
	Labels      []string      `yaml:"labels,omitempty"`
	DependsOn   dependsOnWire `yaml:"depends_on,omitempty"`
	ExternalRef string        `yaml:"external_ref,omitempty"`
	CreatedAt   string        `yaml:"created_at"`
	UpdatedAt   string        `yaml:"updated_at"`
	ClosedAt    string        `yaml:"closed_at,omitempty"`
}

// dependsOnWire marshals as a plain map[id]kind but unmarshals either that
// canonical shape or the legacy shape where a value is an object with a
// "type" key (e.g. depends_on: {bd-1: {type: blocks}}), accepted for
// backward compatibility but never re-emitted.
type dependsOnWire map[string]issue.DependencyKind

func (d dependsOnWire) MarshalYAML() (any, error) {
	out := make(map[string]string, len(d))
	for k, v := range d {
		out[k] = v.String()
	}
	return out, nil
}

func (d *dependsOnWire) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("depends_on: expected a mapping")
	}
	result := make(dependsOnWire)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]

		var id string
		if err := keyNode.Decode(&id); err != nil {
			return fmt.Errorf("depends_on key: %w", err)
		}

		switch valNode.Kind {
		case yaml.ScalarNode:
			var spelling string
			if err := valNode.Decode(&spelling); err != nil {
				return fmt.Errorf("depends_on[%s]: %w", id, err)
			}
			kind, ok := issue.ParseDependencyKind(spelling)
			if !ok {
				return fmt.Errorf("depends_on[%s]: unknown dependency kind %q", id, spelling)
			}
			result[id] = kind
		case yaml.MappingNode:
			// Legacy shape: {type: "blocks"}.
			var legacy struct {
				Type string `yaml:"type"`
			}
			if err := valNode.Decode(&legacy); err != nil {
				return fmt.Errorf("depends_on[%s]: %w", id, err)
			}
			kind, ok := issue.ParseDependencyKind(legacy.Type)
			if !ok {
				return fmt.Errorf("depends_on[%s]: unknown dependency kind %q", id, legacy.Type)
			}
			result[id] = kind
		default:
			return fmt.Errorf("depends_on[%s]: unsupported value shape", id)
		}
	}
	*d = result
	return nil
}

const (
	sectionDescription       = "Description"
	sectionDesign            = "Design"
	sectionAcceptanceCriteria = "Acceptance Criteria"
	sectionNotes             = "Notes"
)

// Encode renders issue i as "---\n<yaml>---\n<sections>". Description is
// always emitted (even empty) for newly-created issues so the file has a
// predictable skeleton to edit; Design/Acceptance Criteria/Notes are
// emitted only when non-empty.
func Encode(i *issue.Issue, isNewIssue bool) (string, error) {
	w := wire{
		Title:       i.Title,
		Status:      string(i.Status),
		Priority:    int(i.Priority),
		Type:        string(i.Type),
		Assignee:    i.Assignee,
		Labels:      i.Labels,
		ExternalRef: i.ExternalRef,
		CreatedAt:   i.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   i.UpdatedAt.UTC().Format(timeLayout),
	}
	if len(i.DependsOn) > 0 {
		w.DependsOn = dependsOnWire(i.DependsOn)
	}
	if i.ClosedAt != nil {
		w.ClosedAt = i.ClosedAt.UTC().Format(timeLayout)
	}

	yamlBytes, err := yaml.Marshal(&w)
	if err != nil {
		return "", fmt.Errorf("frontmatter: encoding yaml: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(yamlBytes)
	b.WriteString("---\n")

	description := i.Description
	if description == "" && isNewIssue {
		description = ""
	}
	if description != "" || isNewIssue {
		sanitized, err := sanitizeSection(description)
		if err != nil {
			return "", err
		}
		b.WriteString("\n# " + sectionDescription + "\n\n" + sanitized + "\n")
	}
	if err := writeOptionalSection(&b, sectionDesign, i.Design); err != nil {
		return "", err
	}
	if err := writeOptionalSection(&b, sectionAcceptanceCriteria, i.AcceptanceCriteria); err != nil {
		return "", err
	}
	if err := writeOptionalSection(&b, sectionNotes, i.Notes); err != nil {
		return "", err
	}

	return b.String(), nil
}

func writeOptionalSection(b *strings.Builder, title, content string) error {
	if content == "" {
		return nil
	}
	sanitized, err := sanitizeSection(content)
	if err != nil {
		return err
	}
	b.WriteString("\n# " + title + "\n\n" + sanitized + "\n")
	return nil
}

// sanitizeSection demotes every heading level 1 through 5 by one (H1->H2,
// ..., H5->H6) so that a pasted section body never collides with the file's
// own top-level section headers. A level-6-or-deeper heading cannot be
// demoted further and fails with ErrHeaderDepthExceeded.
func sanitizeSection(content string) (string, error) {
	lines := strings.Split(content, "\n")
	for idx, line := range lines {
		depth := headingDepth(line)
		if depth == 0 {
			continue
		}
		if depth >= 6 {
			return "", fmt.Errorf("%w: line %d is a level-%d heading", ErrHeaderDepthExceeded, idx+1, depth)
		}
		lines[idx] = "#" + line
	}
	return strings.Join(lines, "\n"), nil
}

// headingDepth returns the ATX heading depth of line (number of leading
// '#' characters followed by a space), or 0 if line is not a heading.
func headingDepth(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n >= len(line) || line[n] != ' ' {
		return 0
	}
	return n
}

// Decode parses content into an Issue plus any non-fatal warnings observed
// (currently only unrecognized-H1-section warnings; forward-reference and
// prefix-inference warnings are raised by the Repository, not the codec).
func Decode(content string, mode issue.ValidationMode) (*issue.Issue, []issue.Warning, error) {
	parts := strings.SplitN(content, "---\n", 3)
	if len(parts) < 3 || strings.TrimSpace(parts[0]) != "" {
		return nil, nil, ErrMissingFrontmatter
	}

	var w wire
	if err := yaml.Unmarshal([]byte(parts[1]), &w); err != nil {
		return nil, nil, fmt.Errorf("frontmatter: parsing yaml: %w", err)
	}

	createdAt, err := time.Parse(timeLayout, w.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("frontmatter: parsing created_at: %w", err)
	}
	updatedAt, err := time.Parse(timeLayout, w.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("frontmatter: parsing updated_at: %w", err)
	}

	i := &issue.Issue{
		Title:       w.Title,
		Status:      issue.Status(w.Status),
		Priority:    issue.Priority(w.Priority),
		Type:        issue.Type(w.Type),
		Assignee:    w.Assignee,
		ExternalRef: w.ExternalRef,
		Labels:      w.Labels,
		DependsOn:   map[string]issue.DependencyKind(w.DependsOn),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	if i.DependsOn == nil {
		i.DependsOn = make(map[string]issue.DependencyKind)
	}
	if w.ClosedAt != "" {
		t, err := time.Parse(timeLayout, w.ClosedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("frontmatter: parsing closed_at: %w", err)
		}
		i.ClosedAt = &t
	}

	warnings := parseSections(parts[2], i, mode)
	return i, warnings, nil
}

// parseSections scans body for H1 "# Title" headers, routing recognized
// section bodies onto the matching Issue field. An unrecognized H1 section
// emits WarnUnexpectedHeader and its content is appended to Notes instead
// of being dropped.
func parseSections(body string, i *issue.Issue, mode issue.ValidationMode) []issue.Warning {
	var warnings []issue.Warning

	lines := strings.Split(body, "\n")
	var currentTitle string
	var currentContent []string

	flush := func() {
		if currentTitle == "" {
			return
		}
		content := strings.TrimSpace(strings.Join(currentContent, "\n"))
		switch currentTitle {
		case sectionDescription:
			i.Description = content
		case sectionDesign:
			i.Design = content
		case sectionAcceptanceCriteria:
			i.AcceptanceCriteria = content
		case sectionNotes:
			i.Notes = joinNonEmpty(i.Notes, content)
		default:
			if w := issue.Emit(mode, issue.WarnUnexpectedHeader, "unrecognized section %q", currentTitle); w != nil {
				warnings = append(warnings, *w)
			}
			i.Notes = joinNonEmpty(i.Notes, "# "+currentTitle+"\n\n"+content)
		}
	}

	for _, line := range lines {
		if headingDepth(line) == 1 {
			flush()
			currentTitle = strings.TrimSpace(line[2:])
			currentContent = nil
			continue
		}
		currentContent = append(currentContent, line)
	}
	flush()

	return warnings
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "\n\n" + b
}

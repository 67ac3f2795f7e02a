package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"minibeads/internal/issue"
)

func newCreateCmd(provider *AppProvider) *cobra.Command {
	var (
		typeFlag     string
		priorityFlag int
		assignee     string
		labels       []string
		description  string
		design       string
		acceptance   string
		dependsOn    []string
		validation   string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new issue",
		Long: `Create a new issue with the given title.

Examples:
  bd create "Fix login bug"
  bd create "Add OAuth support" --type feature --priority 1
  bd create "Write tests" --depends-on bd-5:blocks`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			issueType := issue.TypeTask
			if typeFlag != "" {
				issueType = issue.Type(strings.ToLower(typeFlag))
				if !issueType.Valid() {
					return fmt.Errorf("invalid --type %q", typeFlag)
				}
			}
			priority := issue.Priority(priorityFlag)
			if !priority.Valid() {
				return fmt.Errorf("invalid --priority %d: must be 0..4", priorityFlag)
			}

			patch := &issue.Patch{Type: &issueType, Priority: &priority}
			if assignee != "" {
				patch.Assignee = &assignee
			}
			if len(labels) > 0 {
				patch.Labels = &labels
			}
			if description != "" {
				patch.Description = &description
			}
			if design != "" {
				patch.Design = &design
			}
			if acceptance != "" {
				patch.AcceptanceCriteria = &acceptance
			}

			deps, err := parseDependsOnFlags(dependsOn)
			if err != nil {
				return err
			}

			mode, err := parseValidationMode(validation, app.Store.Config().ValidationMode())
			if err != nil {
				return err
			}

			created, warnings, err := app.Store.Create(ctx, args[0], patch, deps, mode)
			if err != nil {
				return err
			}
			app.logCommand(append([]string{"create"}, args...))
			printWarnings(app, warnings)

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]string{"id": created.ID})
			}
			fmt.Fprintln(app.Out, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Issue type (task, bug, feature, epic, chore)")
	cmd.Flags().IntVarP(&priorityFlag, "priority", "p", 2, "Priority 0 (highest) to 4 (lowest)")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "Assignee")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "Label (repeatable)")
	cmd.Flags().StringVar(&description, "description", "", "Description body")
	cmd.Flags().StringVar(&design, "design", "", "Design body")
	cmd.Flags().StringVar(&acceptance, "acceptance", "", "Acceptance criteria body")
	cmd.Flags().StringSliceVarP(&dependsOn, "depends-on", "d", nil, "id[:kind] dependency (repeatable); kind defaults to blocks")
	cmd.Flags().StringVar(&validation, "validation", "", "Validation mode: silent, warn, error (default: store config)")

	return cmd
}

// parseDependsOnFlags parses "id" or "id:kind" tokens into a depends_on map.
func parseDependsOnFlags(tokens []string) (map[string]issue.DependencyKind, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	out := make(map[string]issue.DependencyKind, len(tokens))
	for _, tok := range tokens {
		id, kindStr := tok, "blocks"
		if idx := strings.IndexByte(tok, ':'); idx >= 0 {
			id, kindStr = tok[:idx], tok[idx+1:]
		}
		kind, ok := issue.ParseDependencyKind(kindStr)
		if !ok {
			return nil, fmt.Errorf("invalid dependency kind %q in %q", kindStr, tok)
		}
		out[id] = kind
	}
	return out, nil
}

func parseValidationMode(flag string, fallback issue.ValidationMode) (issue.ValidationMode, error) {
	if flag == "" {
		return fallback, nil
	}
	switch issue.ValidationMode(flag) {
	case issue.ValidationSilent, issue.ValidationWarn, issue.ValidationError:
		return issue.ValidationMode(flag), nil
	default:
		return "", fmt.Errorf("invalid --validation %q: must be silent, warn, or error", flag)
	}
}

func printWarnings(app *App, warnings []issue.Warning) {
	for _, w := range warnings {
		fmt.Fprintln(app.Err, app.WarnColor("warning: "+w.Error()))
	}
}

func parsePriorityFlag(s string) (issue.Priority, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid priority %q: %w", s, err)
	}
	p := issue.Priority(n)
	if !p.Valid() {
		return 0, fmt.Errorf("invalid priority %d: must be 0..4", n)
	}
	return p, nil
}

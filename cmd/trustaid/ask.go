package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"trustaid/internal/orchestrator"
)

var (
	askKind         string
	askLocale       string
	askJurisdiction string
	askJSON         bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question and print the answer",
	Long: `Routes the question to the evidence-grounded responder or the SQL
responder and prints the answer with its confidence and audit id.

Examples:
  trustaid ask "What is the Carer Allowance eligibility process?"
  trustaid ask --kind analytic "top vendor payments Q2"
  trustaid ask --json "average vendor payment Q2"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askKind, "kind", "", "force routing: analytic or informational")
	askCmd.Flags().StringVar(&askLocale, "locale", "en-AU", "answer locale hint")
	askCmd.Flags().StringVar(&askJurisdiction, "jurisdiction", "AU", "jurisdiction hint")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the raw result as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := orchestrator.Query{
		Text:         strings.Join(args, " "),
		Locale:       askLocale,
		Jurisdiction: askJurisdiction,
		ForcedKind:   askKind,
	}
	if err := query.Validate(); err != nil {
		return fmt.Errorf("invalid question: %w", err)
	}

	result := app.orch.Answer(cmd.Context(), query)

	if askJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}
	return renderResult(result)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	metaStyle   = lipgloss.NewStyle().Faint(true)
)

// renderResult pretty-prints the answer as terminal markdown.
func renderResult(result orchestrator.Result) error {
	var md strings.Builder

	switch {
	case result.Navigator != nil:
		nav := result.Navigator
		md.WriteString(nav.Answer + "\n")
		if len(nav.Steps) > 0 {
			md.WriteString("\n## Steps\n\n")
			for i, step := range nav.Steps {
				if step.Link != "" {
					fmt.Fprintf(&md, "%d. [%s](%s)\n", i+1, step.Title, step.Link)
				} else {
					fmt.Fprintf(&md, "%d. %s\n", i+1, step.Title)
				}
			}
		}
		if len(nav.Citations) > 0 {
			md.WriteString("\n## Sources\n\n")
			for _, c := range nav.Citations {
				fmt.Fprintf(&md, "- [%s](%s)\n", c.Title, c.URL)
			}
		}
	case result.Trustbot != nil:
		bot := result.Trustbot
		md.WriteString(bot.Answer + "\n\n")
		md.WriteString(markdownTable(bot.Table.Columns, bot.Table.Rows))
		fmt.Fprintf(&md, "\nDataset: %s (%s)\n", bot.Dataset.Name, bot.Dataset.Period)
	default:
		md.WriteString("No answer produced.\n")
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("[%s]", result.Kind)))

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		fmt.Println(md.String())
	} else if out, err := renderer.Render(md.String()); err != nil {
		fmt.Println(md.String())
	} else {
		fmt.Print(out)
	}

	meta := fmt.Sprintf("confidence=%s mode=%s audit=%s latency=%dms",
		result.Confidence, result.Mode, result.AuditID, result.LatencyMS)
	if result.Escalated {
		meta += " (escalated)"
	}
	fmt.Println(metaStyle.Render(meta))
	return nil
}

// markdownTable renders columns and rows as a GFM table.
func markdownTable(columns []string, rows [][]any) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

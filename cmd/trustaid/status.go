package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend state and store counts",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print status as JSON")
}

var labelStyle = lipgloss.NewStyle().Bold(true).Width(18)

func runStatus(cmd *cobra.Command, args []string) error {
	status := app.orch.Status()

	if statusJSON {
		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode status: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	row := func(label, value string) {
		fmt.Println(labelStyle.Render(label) + value)
	}
	row("Retrieval backend", status.Backend)
	row("Corpus documents", fmt.Sprintf("%d", status.CorpusSize))
	row("Payment rows", fmt.Sprintf("%d", status.Payments))
	row("SQL generation", map[bool]string{true: "enabled", false: "canned only"}[status.Generation])
	row("Audit sink", status.AuditSink)
	return nil
}

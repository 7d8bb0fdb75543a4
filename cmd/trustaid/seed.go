package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the stores and print counts",
	Long: `Ensures the retrieval backend and the data store are seeded. Safe to
run repeatedly: seeding is idempotent.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	// Store construction already seeds; EnsureReady covers the vector side.
	app.engine.EnsureReady(cmd.Context())

	payments, err := app.data.PaymentCount()
	if err != nil {
		return fmt.Errorf("failed to count payments: %w", err)
	}

	fmt.Printf("Retrieval backend: %s\n", app.engine.State())
	fmt.Printf("Corpus documents:  %d\n", app.engine.CorpusSize())
	fmt.Printf("Payment rows:      %d\n", payments)
	return nil
}

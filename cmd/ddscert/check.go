package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sensiblebit/ddscert/internal"
	"github.com/spf13/cobra"
)

var (
	checkMetricsOut string
	checkCatalogOut string
)

var checkCmd = &cobra.Command{
	Use:   "check <participants.yaml>",
	Short: "Load every participant identity in a configuration",
	Long: `Load the identity CA and identity certificate of every participant listed in a
YAML configuration, and fail if any cannot be loaded, an identity CA is not a
CA, or a certificate has expired. Participants referencing the same URI share
one decoded certificate.`,
	Example: `  ddscert check participants.yaml
  ddscert check participants.yaml --metrics-out /var/lib/node_exporter/ddscert.prom`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkMetricsOut, "metrics-out", "", "Write Prometheus text metrics to this file")
	checkCmd.Flags().StringVar(&checkCatalogOut, "catalog-out", "", "Save the SQLite catalog of load outcomes to this file")
	registerCompletion(checkCmd, completionInput{"metrics-out", fileCompletion})
	registerCompletion(checkCmd, completionInput{"catalog-out", fileCompletion})
}

func runCheck(cmd *cobra.Command, args []string) error {
	participants, err := internal.LoadParticipants(args[0])
	if err != nil {
		return fmt.Errorf("loading participants: %w", err)
	}

	// A password given on the command line fills in for participants that
	// have none, after the file's own defaults.
	pw, err := resolvePassword()
	if err != nil {
		return err
	}
	for i := range participants {
		if participants[i].Password == "" {
			participants[i].Password = pw
		}
	}

	catalog, err := internal.NewCatalog()
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	defer catalog.Close()

	metrics := internal.NewLoadMetrics()
	result, err := internal.RunCheck(&internal.CheckConfig{
		Participants: participants,
		Catalog:      catalog,
		Metrics:      metrics,
		Now:          time.Now(),
	})
	if err != nil {
		return err
	}

	if err := catalog.DumpCatalog(); err != nil {
		return fmt.Errorf("dumping catalog: %w", err)
	}
	if checkCatalogOut != "" {
		if err := catalog.SaveToDisk(checkCatalogOut); err != nil {
			return err
		}
	}
	if checkMetricsOut != "" {
		if err := metrics.WriteTextfile(checkMetricsOut); err != nil {
			return err
		}
		slog.Info("metrics written", "path", checkMetricsOut)
	}

	out := cmd.OutOrStdout()
	s := result.Summary
	fmt.Fprintf(out, "\nChecked %d participant(s): %d identities loaded%s\n",
		s.Participants, s.Loaded, internal.CheckAnnotation(s.Failed, s.Expired))
	fmt.Fprintf(out, "  Identity CAs:          %d\n", s.CAs)
	fmt.Fprintf(out, "  Distinct certificates: %d\n", s.Distinct)
	fmt.Fprintf(out, "  Shared loads:          %d\n", result.SharedLoads)
	for _, p := range result.Problems {
		fmt.Fprintf(out, "  ! %s\n", p)
	}

	if len(result.Problems) > 0 {
		return fmt.Errorf("%d problem(s) found", len(result.Problems))
	}
	return nil
}

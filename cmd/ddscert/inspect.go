package main

import (
	"fmt"
	"log/slog"

	"github.com/sensiblebit/ddscert"
	"github.com/sensiblebit/ddscert/internal"
	"github.com/spf13/cobra"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <uri>",
	Short: "Load and display an identity certificate",
	Long:  "Load the certificate a URI names and show its summary, details, chain and trust metadata.",
	Example: `  ddscert inspect file:identity_ca.pem
  ddscert inspect file:participant.p12 --password changeit
  ddscert inspect file:truststore.jks --format json`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: uriCompletion,
	RunE:              runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text or json")
	registerCompletion(inspectCmd, completionInput{"format", fixedCompletion("text", "json")})
}

func runInspect(cmd *cobra.Command, args []string) error {
	pw, err := resolvePassword()
	if err != nil {
		return err
	}

	result, err := internal.InspectURI(args[0], pw, ddscert.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	output, err := internal.FormatInspectResult(result, inspectFormat)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}

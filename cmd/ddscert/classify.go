package main

import (
	"fmt"

	"github.com/sensiblebit/ddscert"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <uri>...",
	Short: "Show how certificate URIs are classified",
	Long:  "Print the scheme and payload each URI resolves to. Nothing is read.",
	Example: `  ddscert classify file:/etc/dds/identity_ca.pem
  ddscert classify data:MIIB... pkcs11:object=id`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: uriCompletion,
	RunE:              runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, uri := range args {
		fmt.Fprintln(out, ddscert.FormatLocation(ddscert.Classify(uri)))
	}
	return nil
}

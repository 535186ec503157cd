// Package cmd implements the lyceum command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lyceum",
	Short: "Lyceum - access-controlled document question answering",
	Long: `Lyceum is a RAG backend for educational institutions.

Administrators upload course material tagged with an access target;
students and guests ask questions and receive answers grounded only
in the documents their role and level allow them to see.

Running lyceum without a subcommand starts the HTTP API server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

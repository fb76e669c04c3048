package main

import (
	"github.com/spf13/cobra"
)

// BuildVersion is overridden at link time.
var BuildVersion = "dev"

func newRootCommand() *cobra.Command {
	serve := newServeCommand()

	root := &cobra.Command{
		Use:           "portal-gateway",
		Short:         "Multi-tenant portal gateway",
		Long:          "HTTP gateway that resolves tenants, authenticates callers and rate limits the portal API.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          serve.RunE,
	}
	root.AddCommand(serve)
	root.AddCommand(newMigrateCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	})
	return root
}

package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the cleave client.
// It registers the record and step command groups plus the health probe.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "cleave",
		Short: "Cleave client commands",
	}
	root.AddCommand(NewRecordCommand(baseURL))
	root.AddCommand(NewStepCommand(baseURL))
	root.AddCommand(NewHealthCommand())
	return root
}

package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the synthlog client.
// It registers the session command group.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "synthlog",
		Short: "synthlog client commands",
	}
	root.AddCommand(NewSessionCommand(baseURL))
	return root
}

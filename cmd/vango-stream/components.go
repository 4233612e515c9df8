package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func componentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "components",
		Short: "List registered components",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := newRegistry()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range reg.Names() {
				fmt.Fprintln(w, name)
			}
			return nil
		},
	}
}

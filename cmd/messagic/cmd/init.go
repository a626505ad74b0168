package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"messagic/cli"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes the home directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := cli.InitHomeDir(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("Successfully initialized messagic in %s.\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

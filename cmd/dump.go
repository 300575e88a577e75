package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/hetero/internal/flowfile"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <definition.yaml>",
	Short: "Print a graph definition as GraphViz DOT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := flowfile.Load(args[0])
		if err != nil {
			return err
		}
		res, err := def.Build()
		if err != nil {
			return err
		}
		res.Flow.Graph().Dump(os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

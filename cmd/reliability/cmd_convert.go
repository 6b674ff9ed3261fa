package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ja7ad/reliability/pkg/hotspot"
)

func newConvertCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> [output]",
		Short: "Convert a Kelvin temperature trace to Celsius",
		Long: `Convert reads a trace (a header of component names, then rows of
temperatures in Kelvin) and writes it tab separated in Celsius with four
significant digits, to [output] or stdout.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := hotspot.ReadTraceFile(args[0])
			if err != nil {
				return err
			}
			t = t.ToCelsius()

			if len(args) == 1 {
				return hotspot.WriteTable(cmd.OutOrStdout(), t)
			}
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := hotspot.WriteTable(f, t); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

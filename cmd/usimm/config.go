package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/anirbannag/usimm-pm/config"
)

var configCmd = &cobra.Command{
	Use:   "config [file]",
	Short: "Print the default configuration, or the effective one of a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		f := config.Default()

		if len(args) == 1 {
			var err error

			f, err = config.Load(args[0])
			if err != nil {
				return err
			}
		}

		data, err := f.Marshal()
		if err != nil {
			return err
		}

		_, err = os.Stdout.Write(data)

		return err
	},
}

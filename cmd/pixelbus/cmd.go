package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pixelbus",
		Short:        "WS2812 LED strip driver",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cmd.Flags().Lookup("debug").Changed {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newCheckConfigCmd())
	rootCmd.PersistentFlags().Bool("debug", false, "Turn on debug logging.")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML configuration. Defaults are used when empty.")

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Starts driving the LEDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			conf, err := readConfig(path)
			if err != nil {
				return err
			}
			return startServer(cmd.Context(), conf)
		},
	}
}

func newDumpCmd() *cobra.Command {
	color := ""
	brightness := uint8(0)
	cmd := cobra.Command{
		Use:   "dump",
		Short: "Prints one full refresh cycle of the transfer buffer with every LED set to the same color",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			conf, err := readConfig(path)
			if err != nil {
				return err
			}
			return dump(cmd.OutOrStdout(), conf, color, brightness)
		},
	}

	cmd.Flags().StringVar(&color, "color", "ffffff", "Color of the LEDs as six hex digits.")
	cmd.Flags().Uint8Var(&brightness, "brightness", 50, "Brightness of the LEDs in percent.")

	return &cmd
}

func newCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validates the configuration and prints the derived timing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			conf, err := readConfig(path)
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), conf)
			return nil
		},
	}
}

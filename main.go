// Package main is the tapboard entry point. It wires a tag reader backend
// (network NFC agent or built-in simulator) to a monitor controller and a
// frontend: a terminal console by default, or a system tray with -tray.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotside-studios/tapboard/buildinfo"
)

var (
	// CLI flags
	cfgFileFlag     string
	logLevelFlag    string
	agentURLFlag    string
	secretFlag      string
	simFlag         bool
	trayFlag        bool
	noAutoStartFlag bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tapboard",
		Short: buildinfo.Description,
		Long: buildinfo.DisplayName + ` connects to a network NFC agent (or a built-in
simulator), shows scanned tags in a terminal console or a system tray, and
queues text records for publishing to the next presented tag.`,
		Version:       buildinfo.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFileFlag, "config", "", "config file (default is $HOME/.config/tapboard/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn or error")

	cmd.Flags().StringVar(&agentURLFlag, "agent", "", "agent base URL, e.g. http://192.168.1.20:18080 (skips discovery)")
	cmd.Flags().StringVar(&secretFlag, "secret", "", "API secret for the agent session")
	cmd.Flags().BoolVar(&simFlag, "sim", false, "use the built-in simulator instead of a network agent")
	cmd.Flags().BoolVar(&trayFlag, "tray", false, "run in the system tray instead of the terminal console")
	cmd.Flags().BoolVar(&noAutoStartFlag, "no-autostart", false, "do not start listening on launch")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newTapCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(buildinfo.BuildInfo())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

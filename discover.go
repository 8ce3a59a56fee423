package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotside-studios/tapboard/logging"
	"github.com/dotside-studios/tapboard/nfc/agentnfc"
)

func newDiscoverCmd() *cobra.Command {
	var timeoutSec int

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List NFC agents on the local network",
		Long:  `Discover browses mDNS for NFC agents and prints what it finds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout := time.Duration(timeoutSec) * time.Second
			agents, err := agentnfc.Discover(cmd.Context(), timeout, logging.Nop())
			if err != nil {
				return err
			}
			if len(agents) == 0 {
				fmt.Println("No NFC agents found.")
				return nil
			}
			for _, a := range agents {
				line := fmt.Sprintf("%s\t%s", a.Name, a.URL())
				if a.Version != "" {
					line += "\tversion " + a.Version
				}
				if a.TLS {
					line += "\ttls"
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&timeoutSec, "timeout", 3, "seconds to browse for agents")
	return cmd
}

package main

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/dotside-studios/tapboard/buildinfo"
	"github.com/dotside-studios/tapboard/protocol"
)

func newTapCmd() *cobra.Command {
	var (
		addr    string
		uid     string
		tagType string
		text    string
	)

	cmd := &cobra.Command{
		Use:   "tap",
		Short: "Present a tag to a running simulator",
		Long: `Tap posts a simulated tag scan to the control endpoint of a tapboard
instance running with --sim.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := protocol.TagInputRequest{
				UID:    uid,
				Type:   tagType,
				Source: "cli",
			}
			if text != "" {
				req.Message = &protocol.NDEFMessageInput{
					Records: []protocol.NDEFRecordInput{{RecordType: "text", Content: text}},
				}
			}

			var out protocol.TagInputResponse
			resp, err := resty.New().
				SetHeader("User-Agent", buildinfo.UserAgent()).
				SetTimeout(5 * time.Second).
				R().
				SetContext(cmd.Context()).
				SetBody(&req).
				SetResult(&out).
				SetError(&out).
				Post("http://" + addr + "/api/v1/tap")
			if err != nil {
				return err
			}
			if resp.IsError() || !out.Success {
				if out.Error != "" {
					return fmt.Errorf("tap rejected: %s (%s)", out.Error, out.ErrorCode)
				}
				return fmt.Errorf("tap rejected: %s", resp.Status())
			}

			fmt.Printf("Tag %s presented.\n", out.UID)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:18089", "simulator control address")
	cmd.Flags().StringVar(&uid, "uid", "04:AB:CD:EF", "tag UID as colon separated hex bytes")
	cmd.Flags().StringVar(&tagType, "type", "NTAG215", "tag type reported with the scan")
	cmd.Flags().StringVar(&text, "text", "", "text record content (empty presents an empty tag)")
	return cmd
}

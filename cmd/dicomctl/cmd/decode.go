package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jas88/sharpdicom/pkg/compress/jpeg2k"
)

// NewDecodeCmd parses a JPEG 2000 codestream's header without decoding
// the full pixel data, for inspecting a transfer-syntax .90/.91 frame.
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "inspect a JPEG 2000 codestream's header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading codestream: %w", err)
			}
			if !jpeg2k.IsJPEG2000(data) {
				return fmt.Errorf("%s is not a JPEG 2000 codestream", args[0])
			}
			hdr, err := jpeg2k.ParseHeader(data)
			if err != nil {
				return fmt.Errorf("parsing header: %w", err)
			}
			format, _ := cmd.Flags().GetString("format")
			if format == "text" {
				fmt.Printf("size: %dx%d, components: %d, levels: %d, layers: %d, wavelet: %d\n",
					hdr.Width, hdr.Height, len(hdr.Components), hdr.DecompositionLevels, hdr.NumLayers, hdr.Wavelet)
				return nil
			}
			j, err := json.Marshal(hdr)
			if err != nil {
				return err
			}
			os.Stdout.Write(j)
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "json", "output format (text|json)")
	return cmd
}

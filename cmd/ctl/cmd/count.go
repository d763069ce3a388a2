package cmd

import (
	"context"
	"encoding/json"

	"github.com/jpfielding/fasttiff.go/pkg/tiff"
	"github.com/spf13/cobra"
)

// NewCountCmd counts the image planes of a TIFF
func NewCountCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count [uri]",
		Short: "number of image planes",
		Long:  "Counts image planes from the index map, stack headers, an IFD walk or, with --estimate, the file size",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, name, err := openSource(ctx, cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()
			d, err := tiff.Create(in, name, decoderOptions(ctx, cmd)...)
			if err != nil {
				return err
			}
			estimate, _ := cmd.Flags().GetBool("estimate")
			n, err := d.GetNumberOfImages(estimate)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(n)
		},
	}
	addSourceFlags(cmd)
	addDecoderFlags(cmd)
	cmd.PersistentFlags().Bool("estimate", false, "extrapolate from the file size instead of walking every IFD")
	return cmd
}

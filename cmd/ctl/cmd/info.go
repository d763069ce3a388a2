package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/jpfielding/fasttiff.go/pkg/tiff"
	"github.com/jpfielding/fasttiff.go/pkg/util"
	"github.com/spf13/cobra"
)

// planeInfo pairs a decoded IFD with a fingerprint of its fields.
type planeInfo struct {
	ID string `json:"id"`
	*tiff.ExtendedFileInfo
}

type infoReport struct {
	Name         string           `json:"name"`
	LittleEndian bool             `json:"littleEndian"`
	Planes       []planeInfo      `json:"planes"`
	IndexMap     *indexMapSummary `json:"indexMap,omitempty"`
	Origin       *image.Rectangle `json:"origin,omitempty"`
}

type indexMapSummary struct {
	Entries int         `json:"entries"`
	Limits  tiff.Limits `json:"limits"`
}

// NewInfoCmd decodes the image file directories of a TIFF
func NewInfoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [uri]",
		Short: "TIFF image file directories",
		Long:  "Decodes every image file directory with ImageJ, NIH Image and Micro-Manager metadata",
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
			pixelDataOnly, _ := cmd.Flags().GetBool("pixel-data-only")
			list, err := d.GetTiffInfo(pixelDataOnly)
			if err != nil {
				return err
			}
			report := infoReport{Name: name, LittleEndian: d.IsLittleEndian()}
			for _, fi := range list {
				report.Planes = append(report.Planes, planeInfo{ID: util.HashUUID(fi), ExtendedFileInfo: fi})
			}
			im, err := d.GetIndexMap()
			if err != nil {
				return err
			}
			if im != nil {
				report.IndexMap = &indexMapSummary{Entries: im.Size(), Limits: im.Limits()}
			}
			if r, ok := tiff.Origin(list[0]); ok {
				report.Origin = &r
			}
			return printReport(cmd, report)
		},
	}
	addSourceFlags(cmd)
	addDecoderFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.Bool("pixel-data-only", false, "skip metadata tags after the first IFD")
	pf.StringP("format", "f", "json", "output format (text|json)")
	return cmd
}

func printReport(cmd *cobra.Command, report infoReport) error {
	w := cmd.OutOrStdout()
	switch format, _ := cmd.Flags().GetString("format"); format {
	case "text":
		fmt.Fprintf(w, "%s littleEndian=%t planes=%d\n", report.Name, report.LittleEndian, len(report.Planes))
		for i, p := range report.Planes {
			fmt.Fprintf(w, "%d %s %s\n", i, p.ID, p.ExtendedFileInfo)
		}
		if report.IndexMap != nil {
			fmt.Fprintf(w, "index map: %d entries %+v\n", report.IndexMap.Entries, report.IndexMap.Limits)
		}
		if report.Origin != nil {
			fmt.Fprintf(w, "origin: %v\n", *report.Origin)
		}
		return nil
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
}

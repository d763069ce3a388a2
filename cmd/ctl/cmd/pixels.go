package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/jpfielding/fasttiff.go/pkg/pixels"
	"github.com/jpfielding/fasttiff.go/pkg/tiff"
	"github.com/jpfielding/fasttiff.go/pkg/util"
	"github.com/spf13/cobra"
)

// NewPixelsCmd creates the pixels cobra command
func NewPixelsCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pixels [uri]",
		Short: "Read and summarize pixel data",
		Long:  "Reads one plane and prints its type, value range and fingerprints, optionally dumping the samples to disk.",
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
			list, err := d.GetTiffInfo(true)
			if err != nil {
				return err
			}
			ifd, _ := cmd.Flags().GetInt("ifd")
			plane, _ := cmd.Flags().GetInt("plane")
			out, _ := cmd.Flags().GetString("out")
			if ifd < 0 || ifd >= len(list) {
				return fmt.Errorf("ifd index %d out of bounds (0-%d)", ifd, len(list)-1)
			}
			fi := list[ifd]
			px, err := pixels.NewReader(fi).ReadPlane(in, plane)
			if err != nil {
				return err
			}
			return runPixels(cmd, fi, px, out)
		},
	}
	addSourceFlags(cmd)
	addDecoderFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.Int("ifd", 0, "index of the decoded IFD")
	pf.Int("plane", 0, "plane of a contiguous ImageJ stack")
	pf.String("out", "", "write the samples, little endian, to this path")
	return cmd
}

func runPixels(cmd *cobra.Command, fi *tiff.ExtendedFileInfo, px any, outPath string) error {
	w := cmd.OutOrStdout()
	raw, err := sampleBytes(px)
	if err != nil {
		return err
	}
	lo, hi := valueRange(px)
	fmt.Fprintf(w, "Type: %s\n", fi.FileType)
	fmt.Fprintf(w, "Size: %dx%d\n", fi.Width, fi.Height)
	fmt.Fprintf(w, "Compression: %s\n", fi.Compression)
	fmt.Fprintf(w, "Pixel range: min=%g, max=%g\n", lo, hi)
	fmt.Fprintf(w, "MD5: %s\n", util.Md5ThenHex(raw))
	fmt.Fprintf(w, "UUID: %s\n", util.PixelsUUID(raw))
	if outPath == "" {
		return nil
	}
	fmt.Fprintf(w, "Dumping %d bytes to %s\n", len(raw), outPath)
	return os.WriteFile(outPath, raw, 0644)
}

// sampleBytes encodes the samples little endian, channel after channel for
// 48-bit color.
func sampleBytes(px any) ([]byte, error) {
	var buf bytes.Buffer
	switch v := px.(type) {
	case []byte:
		return v, nil
	case [][]uint16:
		for _, c := range v {
			if err := binary.Write(&buf, binary.LittleEndian, c); err != nil {
				return nil, err
			}
		}
	default:
		if err := binary.Write(&buf, binary.LittleEndian, px); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// valueRange returns the smallest and largest sample; color pixels are
// compared as packed 0xRRGGBB values.
func valueRange(px any) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	see := func(v float64) {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	switch v := px.(type) {
	case []byte:
		for _, x := range v {
			see(float64(x))
		}
	case []uint16:
		for _, x := range v {
			see(float64(x))
		}
	case []float32:
		for _, x := range v {
			see(float64(x))
		}
	case []uint32:
		for _, x := range v {
			see(float64(x & 0xffffff))
		}
	case [][]uint16:
		for _, c := range v {
			for _, x := range c {
				see(float64(x))
			}
		}
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"path"
	"strings"

	"github.com/jpfielding/fasttiff.go/pkg/seekable"
	"github.com/jpfielding/fasttiff.go/pkg/tiff"
	"github.com/spf13/cobra"
)

// addSourceFlags registers the flags read by openSource.
func addSourceFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "TIFF path, '-' for stdin, or http(s) URL")
	pf.Bool("mmap", false, "memory map local files")
	pf.Bool("insecure", false, "skip TLS verification for https URLs")
	pf.Bool("verbose", false, "dump http requests and report scan progress")
}

// openSource opens the --uri flag, or the first argument, as a seekable
// stream. Local files are read through a FileStream or, with --mmap, a
// MappedStream; stdin and http bodies are cached in memory as they are read.
func openSource(ctx context.Context, cmd *cobra.Command, args []string) (seekable.Stream, string, error) {
	uri, _ := cmd.Flags().GetString("uri")
	if uri == "" && len(args) > 0 {
		uri = args[0]
	}
	uri = strings.TrimPrefix(uri, "file://")
	switch {
	case uri == "":
		return nil, "", fmt.Errorf("a TIFF is required, use --uri or provide it as an argument")
	case uri == "-":
		return seekable.NewMemoryCacheStream(os.Stdin), "stdin", nil
	case strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://"):
		insecure, _ := cmd.Flags().GetBool("insecure")
		cl := &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create request: %v", err)
		}
		resp, err := cl.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("failed to download: %v", err)
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			reqDump, _ := httputil.DumpRequest(req, true)
			os.Stderr.Write(reqDump)
			resDump, _ := httputil.DumpResponse(resp, false)
			os.Stderr.Write(resDump)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, "", fmt.Errorf("failed to download: %s", resp.Status)
		}
		return seekable.NewMemoryCacheStream(resp.Body), path.Base(req.URL.Path), nil
	}
	if mmap, _ := cmd.Flags().GetBool("mmap"); mmap {
		s, err := seekable.OpenMapped(uri)
		return s, path.Base(uri), err
	}
	s, err := seekable.OpenFile(uri)
	return s, path.Base(uri), err
}

// decoderOptions maps the shared decoder flags to options.
func decoderOptions(ctx context.Context, cmd *cobra.Command) []tiff.Option {
	var opts []tiff.Option
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		opts = append(opts, tiff.WithProgress(tiff.ProgressFunc(func(msg string) {
			slog.Default().InfoContext(ctx, msg)
		})))
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		opts = append(opts, tiff.WithDebug())
	}
	if full, _ := cmd.Flags().GetBool("full-tag-scan"); full {
		opts = append(opts, tiff.WithFullTagScan())
	}
	if n, err := cmd.Flags().GetInt("mm-metadata"); err == nil && n != 1 {
		opts = append(opts, tiff.WithMicroManagerMetadataLimit(n))
	}
	return append(opts, tiff.WithLogger(slog.Default()))
}

func addDecoderFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.Bool("debug", false, "log the tags of the first IFDs")
	pf.Bool("full-tag-scan", false, "do not rely on ascending tag order")
	pf.Int("mm-metadata", 1, "Micro-Manager metadata blocks to keep (-1 for all)")
}

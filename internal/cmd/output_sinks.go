package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mygh/mygh/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

// resolveOutputFormat prefers --format and falls back to the configured
// output-format.
func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("format")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		if cfg, err := currentConfig(); err == nil {
			value = cfg.OutputFormat
		}
	}
	return output.ParseFormat(value)
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

func sanitizeFilename(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	clean = nonFilename.ReplaceAllString(clean, "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "output"
	}
	return clean
}

// sinkPath resolves --output. A directory (existing, or written with a
// trailing separator) receives a file named after the command.
func sinkPath(cmd *cobra.Command, path string, format output.Format) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return trimmed
	}
	isDir := strings.HasSuffix(trimmed, string(os.PathSeparator)) || strings.HasSuffix(trimmed, "/")
	if info, err := os.Stat(trimmed); err == nil && info.IsDir() {
		isDir = true
	}
	if !isDir {
		return trimmed
	}
	name := sanitizeFilename(strings.TrimPrefix(cmd.CommandPath(), rootCmd.Name()+" "))
	return filepath.Join(trimmed, name+"."+format.Extension())
}

// openSink opens path for writing, or the command's stdout for "" and "-".
func openSink(cmd *cobra.Command, path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: cmd.OutOrStdout(), close: func() error { return nil }, path: "-"}, nil
	}

	// #nosec G301 -- output directories use 0755 like other user dirs
	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

// render writes ds in the selected format to the selected sink.
func render(cmd *cobra.Command, ds output.Dataset) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	sink, err := openSink(cmd, sinkPath(cmd, outPath, format))
	if err != nil {
		return err
	}
	if err := output.Write(sink.writer, format, ds); err != nil {
		_ = sink.close()
		return err
	}
	if err := sink.close(); err != nil {
		return err
	}
	if sink.path != "-" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s output to %s\n", format, sink.path)
	}
	return nil
}

// printf writes a status line to the command's stdout.
func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacman/stacman/internal/output"
)

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

func sanitizeFilename(value string) string {
	clean := nonFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	if clean = strings.Trim(clean, "-."); clean == "" {
		return "output"
	}
	return clean
}

// listingTarget is where a command's rendered output goes. An empty path
// means stdout.
type listingTarget struct {
	format output.Format
	path   string
}

// addOutputFlags registers --output-format, --out and --out-dir.
func addOutputFlags(cmd *cobra.Command) {
	addOutputFlagsWithFormats(cmd, "table|json|yaml|markdown")
}

func addOutputFlagsWithFormats(cmd *cobra.Command, formats string) {
	flags := cmd.Flags()
	flags.String("output-format", string(output.FormatTable), "Output format: "+formats)
	flags.String("out", "", "Write output to a file (default stdout)")
	flags.String("out-dir", "", "Write output to a directory")
}

// targetFor reads the output flags. With --out-dir the file is named after
// name plus the format's extension.
func targetFor(cmd *cobra.Command, name string) (listingTarget, error) {
	flags := cmd.Flags()
	raw, _ := flags.GetString("output-format")
	format, err := output.ParseFormat(raw)
	if err != nil {
		return listingTarget{}, err
	}
	out, _ := flags.GetString("out")
	dir, _ := flags.GetString("out-dir")
	out, dir = strings.TrimSpace(out), strings.TrimSpace(dir)

	switch {
	case out != "" && dir != "":
		return listingTarget{}, errors.New("--out and --out-dir are mutually exclusive")
	case dir != "":
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		out = filepath.Join(dir, sanitizeFilename(name)+"."+format.Extension())
	case out == "-":
		out = ""
	}
	return listingTarget{format: format, path: out}, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func (t listingTarget) open() (io.WriteCloser, error) {
	if t.path == "" {
		return nopCloser{os.Stdout}, nil
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return os.Create(t.path)
}

// write hands the opened sink to fn and closes it, surfacing close errors
// for files.
func (t listingTarget) write(fn func(io.Writer) error) (err error) {
	w, err := t.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(w)
}

// writeListing renders listing to stdout, --out or a file named after name
// inside --out-dir.
func writeListing(cmd *cobra.Command, name string, listing *output.Listing) error {
	target, err := targetFor(cmd, name)
	if err != nil {
		return err
	}
	rendered, err := output.Render(target.format, listing)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	return target.write(func(w io.Writer) error {
		_, err := io.WriteString(w, rendered)
		return err
	})
}

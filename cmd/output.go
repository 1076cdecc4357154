package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/vizloom-cli/internal/utils"
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", successMark("✓"), fmt.Sprintf(format, args...))
}

func printWarn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warnMark("⚠ Warning:"), fmt.Sprintf(format, args...))
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorMark("✗ Error:"), err)
}

// writeJSON pretty-prints v to w, or to path when set.
func writeJSON(w io.Writer, v any, path string) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	return writeText(w, string(b)+"\n", path)
}

// writeText writes s to path when set, otherwise to w.
func writeText(w io.Writer, s, path string) error {
	if path == "" {
		_, err := io.WriteString(w, s)
		return err
	}
	if err := utils.SafeWriteFile(path, []byte(s)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	printSuccess(os.Stderr, "Wrote %s", path)
	return nil
}

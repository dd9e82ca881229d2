package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/criteo/code-id-registry/internal/models"
)

var (
	successStyle = color.New(color.FgGreen)
	errorStyle   = color.New(color.FgRed)
	warningStyle = color.New(color.FgYellow)
	headerStyle  = color.New(color.Bold)
	codeIDStyle  = color.New(color.FgCyan)
)

// TableWriter wraps tabwriter for formatted output
type TableWriter struct {
	writer *tabwriter.Writer
}

// NewTableWriter creates a new table writer on stdout
func NewTableWriter() *TableWriter {
	return NewTableWriterTo(os.Stdout)
}

// NewTableWriterTo creates a new table writer on w
func NewTableWriterTo(w io.Writer) *TableWriter {
	return &TableWriter{writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

// WriteHeader writes table headers
func (t *TableWriter) WriteHeader(headers ...string) {
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(t.writer, "\t")
		}
		fmt.Fprint(t.writer, headerStyle.Sprint(h))
	}
	fmt.Fprintln(t.writer)
}

// WriteRow writes a table row
func (t *TableWriter) WriteRow(values ...string) {
	for i, v := range values {
		if i > 0 {
			fmt.Fprint(t.writer, "\t")
		}
		fmt.Fprint(t.writer, v)
	}
	fmt.Fprintln(t.writer)
}

// Flush writes buffered output
func (t *TableWriter) Flush() error {
	return t.writer.Flush()
}

// WriteRegistrations prints registrations as a table
func WriteRegistrations(w io.Writer, regs []*models.Registration) error {
	t := NewTableWriterTo(w)
	t.WriteHeader("CONTRACT", "VERSION", "CHAIN", "CODE ID", "CHECKSUM")
	for _, r := range regs {
		t.WriteRow(r.ContractName, r.Version, r.ChainID, codeIDStyle.Sprint(strconv.FormatUint(r.CodeID, 10)), r.Checksum)
	}
	return t.Flush()
}

// WriteRegistration prints a single registration as key/value lines
func WriteRegistration(w io.Writer, r *models.Registration) error {
	t := NewTableWriterTo(w)
	t.WriteRow(headerStyle.Sprint("Contract:"), r.ContractName)
	t.WriteRow(headerStyle.Sprint("Version:"), r.Version)
	t.WriteRow(headerStyle.Sprint("Chain:"), r.ChainID)
	t.WriteRow(headerStyle.Sprint("Code ID:"), codeIDStyle.Sprint(strconv.FormatUint(r.CodeID, 10)))
	t.WriteRow(headerStyle.Sprint("Checksum:"), r.Checksum)
	return t.Flush()
}

// PrintSuccess prints a success message with checkmark
func PrintSuccess(message string) {
	successStyle.Fprintf(os.Stdout, "✓ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	errorStyle.Fprintf(os.Stderr, "✗ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	warningStyle.Fprintf(os.Stderr, "⚠ %s\n", message)
}

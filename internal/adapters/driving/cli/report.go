package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
)

// Report output formats.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return domain.ConfigError("%w: output format %q (want text, json or yaml)", domain.ErrInvalidInput, format)
	}
}

// writeReport renders report to w in the requested format.
func writeReport(w io.Writer, report *domain.PipelineReport, format string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, renderReport(w, report))
		return err
	}
}

// reportStyles holds the styles for one output stream. Colour is dropped
// automatically when the stream is not a terminal.
type reportStyles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	fail   lipgloss.Style
	subtle lipgloss.Style
}

func newReportStyles(w io.Writer) reportStyles {
	r := lipgloss.NewRenderer(w)
	return reportStyles{
		title:  r.NewStyle().Bold(true),
		label:  r.NewStyle().Width(16),
		ok:     r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		warn:   r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		fail:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		subtle: r.NewStyle().Faint(true),
	}
}

// renderReport formats a human-readable summary of a run.
func renderReport(w io.Writer, report *domain.PipelineReport) string {
	s := newReportStyles(w)
	var b strings.Builder

	b.WriteString(s.title.Render("Index report"))
	b.WriteString(" " + s.subtle.Render(report.RunID) + "\n")

	row := func(label, value string) {
		b.WriteString("  " + s.label.Render(label) + value + "\n")
	}
	row("Source", report.Source)
	row("Segments", fmt.Sprintf("%d (chunk size %d)", report.Total, report.ChunkSize))
	row("Policy", report.Policy.Description())
	row("Stored", fmt.Sprintf("%d", report.Stored))
	row("Already present", fmt.Sprintf("%d", report.AlreadyPresent))
	row("Failed", fmt.Sprintf("%d", report.Failed))
	row("Duration", report.Duration().Round(time.Millisecond).String())

	if len(report.Failures) > 0 {
		b.WriteString("\n" + s.title.Render("Failures") + "\n")
		for _, f := range report.Failures {
			fmt.Fprintf(&b, "  #%d offset %d while %s: %s\n", f.Index, f.Offset, f.Stage, f.Reason)
		}
	}

	b.WriteString("\n")
	switch {
	case report.Aborted:
		b.WriteString(s.fail.Render("ABORTED"))
		if report.FatalMessage != "" {
			b.WriteString(" " + report.FatalMessage)
		}
		if remaining := report.Total - report.Processed(); remaining > 0 {
			fmt.Fprintf(&b, " (%d segments not attempted)", remaining)
		}
	case report.Failed > 0:
		b.WriteString(s.warn.Render("COMPLETED WITH FAILURES"))
	default:
		b.WriteString(s.ok.Render("OK"))
	}
	b.WriteString("\n")

	return b.String()
}

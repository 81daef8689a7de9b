package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wasmlab/typecorpus/pipeline"
)

type reportStyles struct {
	title   lipgloss.Style
	section lipgloss.Style
	label   lipgloss.Style
	warn    lipgloss.Style
}

func newReportStyles(styled bool) reportStyles {
	if !styled {
		plain := lipgloss.NewStyle()
		return reportStyles{title: plain, section: plain, label: plain, warn: plain}
	}
	return reportStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		section: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// renderReport formats the run summary, styled when stdout is a
// terminal and plain otherwise.
func renderReport(rep *pipeline.Report) string {
	styled := term.IsTerminal(int(os.Stdout.Fd()))
	return renderReportWith(rep, newReportStyles(styled))
}

func renderReportWith(rep *pipeline.Report, st reportStyles) string {
	var b strings.Builder
	row := func(label string, value any) {
		fmt.Fprintf(&b, "  %s %v\n", st.label.Render(label+":"), value)
	}

	b.WriteString(st.title.Render("extraction report") + "\n\n")

	b.WriteString(st.section.Render("inputs") + "\n")
	row("files scanned", rep.Files)
	row("not wasm", rep.NonWasm)
	row("parse failures", rep.ParseFailures)

	b.WriteString(st.section.Render("deduplication") + "\n")
	row("binaries", fmt.Sprintf("%d -> %d (%.1f%% duplicates)",
		rep.Before.Binaries, rep.After.Binaries, rep.DuplicationPercent))
	row("function bodies", fmt.Sprintf("%d -> %d",
		rep.Before.FunctionBodies, rep.After.FunctionBodies))
	row("instructions", fmt.Sprintf("%d -> %d",
		rep.Before.Instructions, rep.After.Instructions))
	if len(rep.MostDuplicated) > 0 {
		b.WriteString(st.section.Render("most duplicated") + "\n")
		for _, g := range rep.MostDuplicated {
			fmt.Fprintf(&b, "  %4dx %s\n", g.Count, g.Path)
		}
	}

	b.WriteString(st.section.Render("samples") + "\n")
	row("params written", rep.ParamsWritten)
	row("returns written", rep.ReturnsWritten)
	row("unused params removed", rep.UnusedParamsRemoved)
	row("unknown types removed", rep.UnknownTypesRemoved)
	row("bytes written", rep.BytesWritten)

	if len(rep.TypeDistribution) > 0 {
		b.WriteString(st.section.Render("type distribution") + "\n")
		for _, tc := range rep.TypeDistribution {
			fmt.Fprintf(&b, "  %6d  %s\n", tc.Count, tc.Type)
		}
	}

	if len(rep.Errors) > 0 {
		b.WriteString(st.warn.Render(fmt.Sprintf("failures (%d)", len(rep.Errors))) + "\n")
		for _, fe := range rep.Errors {
			fmt.Fprintf(&b, "  %s\n", fe.Error())
		}
	}

	return b.String()
}

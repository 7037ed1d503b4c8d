package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// Colors for different content kinds
var (
	headerColor    = color.New(color.FgWhite, color.Bold)
	idColor        = color.New(color.FgHiBlack)
	reasoningColor = color.New(color.FgHiBlack, color.Italic)
	callColor      = color.New(color.FgYellow)
	resultColor    = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed)
	unknownColor   = color.New(color.FgMagenta)
	stopColor      = color.New(color.FgCyan)
)

// Display renders stream updates and responses to a terminal.
type Display struct {
	writer io.Writer

	// midLine is true while a fragment run has not been terminated.
	midLine bool
}

func NewDisplay(writer io.Writer) *Display {
	return &Display{writer: writer}
}

// PrintUpdate renders one update. Fragments are printed as they arrive;
// finished text and reasoning blocks only end the line, other finished
// blocks are printed whole.
func (d *Display) PrintUpdate(u llmstream.Update) {
	if u.ResponseID != nil {
		model := ""
		if u.Model != nil {
			model = *u.Model
		}
		headerColor.Fprintf(d.writer, "%s ", model)
		idColor.Fprintln(d.writer, *u.ResponseID)
	}

	for _, c := range u.Chunks {
		if !c.Complete {
			d.printFragment(c.Content)
			continue
		}
		d.printComplete(c.Content)
	}
}

func (d *Display) printFragment(c llmstream.Content) {
	switch c.Kind {
	case llmstream.KindText:
		fmt.Fprint(d.writer, c.Text.Text)
		d.midLine = true
	case llmstream.KindReasoning:
		reasoningColor.Fprint(d.writer, c.Reasoning.Text)
		d.midLine = true
	}
}

func (d *Display) printComplete(c llmstream.Content) {
	switch c.Kind {
	case llmstream.KindText, llmstream.KindReasoning:
		if c.Kind == llmstream.KindReasoning && c.Reasoning.Text == "" {
			d.endLine()
			reasoningColor.Fprintln(d.writer, "[redacted reasoning]")
			return
		}
		d.endLine()
	case llmstream.KindUsage:
		// rendered once, at the end, by PrintUsage
	default:
		d.endLine()
		fmt.Fprintln(d.writer, d.describe(c))
	}
}

// describe formats a non-text content item on one line.
func (d *Display) describe(c llmstream.Content) string {
	switch c.Kind {
	case llmstream.KindFunctionCall:
		fc := c.FunctionCall
		name := fc.Name
		if fc.ServerName != "" {
			name = fc.ServerName + "/" + name
		}
		return fmt.Sprintf("%s %s(%s) %s", callColor.Sprint("→"), callColor.Sprint(name), fc.ArgumentsJSON, idColor.Sprint(fc.CallID))
	case llmstream.KindToolResult:
		tr := c.ToolResult
		mark := resultColor.Sprint("←")
		if tr.IsError() {
			mark = errorColor.Sprint("←")
		}
		return fmt.Sprintf("%s %s %s %s", mark, tr.Type, idColor.Sprint(tr.CallID), summarizeOutputs(tr.Outputs))
	case llmstream.KindError:
		e := c.Error
		return errorColor.Sprintf("✗ %s: %s", e.Code, e.Message)
	case llmstream.KindUnsupported:
		return unknownColor.Sprintf("? unsupported %s", c.Unsupported.Type)
	case llmstream.KindText:
		return c.Text.Text
	case llmstream.KindReasoning:
		return reasoningColor.Sprint(c.Reasoning.Text)
	}
	return string(c.Kind)
}

func summarizeOutputs(outputs []llmstream.ToolOutput) string {
	parts := make([]string, 0, len(outputs))
	for _, o := range outputs {
		switch o.Kind {
		case llmstream.ToolOutputError:
			parts = append(parts, errorColor.Sprintf("error %s", o.Code))
		case llmstream.ToolOutputFile:
			parts = append(parts, fmt.Sprintf("file %s", o.MimeType))
		default:
			if o.Title != "" {
				parts = append(parts, o.Title)
			} else {
				parts = append(parts, truncate(o.Text, 40))
			}
		}
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}

func (d *Display) endLine() {
	if d.midLine {
		fmt.Fprintln(d.writer)
		d.midLine = false
	}
}

// PrintResponse renders a complete response in content order.
func (d *Display) PrintResponse(resp *llmstream.Response) {
	headerColor.Fprintf(d.writer, "%s ", resp.Model)
	idColor.Fprintln(d.writer, resp.ResponseID)
	for _, c := range resp.Content {
		if c.Kind == llmstream.KindReasoning && c.Reasoning.Text == "" {
			reasoningColor.Fprintln(d.writer, "[redacted reasoning]")
			continue
		}
		fmt.Fprintln(d.writer, d.describe(c))
	}
}

// PrintStop renders the stop reason.
func (d *Display) PrintStop(resp *llmstream.Response) {
	d.endLine()
	reason := resp.RawStopReason
	if resp.StopReason != nil {
		reason = string(*resp.StopReason)
	}
	if reason == "" {
		reason = "none"
	}
	stopColor.Fprintf(d.writer, "stop: %s", reason)
	if resp.StopSequence != nil {
		stopColor.Fprintf(d.writer, " (%q)", *resp.StopSequence)
	}
	fmt.Fprintln(d.writer)
}

// PrintUsage prints the usage counters and, when the model is priced, the
// estimated cost.
func (d *Display) PrintUsage(provider llmstream.ProviderID, model string, usage llmstream.UsageReport) {
	d.endLine()
	fmt.Fprintln(d.writer, "\n"+strings.Repeat("─", 60))
	headerColor.Fprintln(d.writer, "Usage:")

	cost, err := llmstream.GetCapabilityRegistry().EstimateCost(provider.String(), model, usage)
	priced := err == nil

	table := tablewriter.NewWriter(d.writer)
	header := []string{"Counter", "Tokens"}
	if priced {
		header = append(header, "Cost (USD)")
	}
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)

	row := func(name string, n int64, usd float64) {
		r := []string{name, fmt.Sprintf("%d", n)}
		if priced {
			r = append(r, fmt.Sprintf("%.6f", usd))
		}
		table.Append(r)
	}

	row("input", usage.Input, cost.Input)
	row("output", usage.Output, cost.Output)
	if usage.CachedInput > 0 {
		row("cache read", usage.CachedInput, cost.CacheRead)
	}
	if usage.CacheCreation > 0 {
		row("cache write", usage.CacheCreation, cost.CacheWrite)
	}
	for _, name := range usage.AdditionalNames() {
		r := []string{name, fmt.Sprintf("%d", usage.Additional[name])}
		if priced {
			r = append(r, "")
		}
		table.Append(r)
	}
	if priced && cost.ServerTools > 0 {
		table.Append([]string{"server tools", "", fmt.Sprintf("%.6f", cost.ServerTools)})
	}
	row("total", usage.Total, cost.Total())

	table.Render()
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/aretw0/asyncsoap/internal/presentation/tui"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Output formats.
const (
	FormatAuto  = "auto"
	FormatJSON  = "json"
	FormatTable = "table"
)

// Printer writes call results to stdout. Tables go through glamour when the
// output is a terminal and are printed as raw markdown otherwise.
type Printer struct {
	out    io.Writer
	format string
	style  *termenv.Output
	render func(string) (string, error)
}

// NewPrinter creates a Printer. FormatAuto picks a table on a terminal and JSON otherwise.
func NewPrinter(out io.Writer, format string) (*Printer, error) {
	tty := isTerminal(out)
	switch format {
	case "", FormatAuto:
		format = FormatJSON
		if tty {
			format = FormatTable
		}
	case FormatJSON, FormatTable:
	default:
		return nil, fmt.Errorf("unknown output format %q (auto, json, table)", format)
	}

	p := &Printer{
		out:    out,
		format: format,
		style:  termenv.NewOutput(out),
		render: func(md string) (string, error) { return md, nil },
	}
	if tty {
		p.render = tui.NewRenderer()
	}
	return p, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// PrintResult writes the result of operation.
func (p *Printer) PrintResult(operation string, res domain.Result) error {
	if p.format == FormatJSON {
		return p.writeJSON(res)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", operation)
	writeTable(&b, "Field", flatten("", res.Value))
	if len(res.Headers) > 0 {
		b.WriteString("\n### Headers\n\n")
		writeTable(&b, "Header", flatten("", res.Headers))
	}
	return p.writeMarkdown(b.String())
}

// PrintOperations writes the operation list.
func (p *Printer) PrintOperations(ops []string) error {
	if p.format == FormatJSON {
		if ops == nil {
			ops = []string{}
		}
		return p.writeJSON(ops)
	}

	var b strings.Builder
	b.WriteString("## Operations\n\n")
	if len(ops) == 0 {
		b.WriteString("_Any operation name is accepted._\n")
	}
	for _, op := range ops {
		fmt.Fprintf(&b, "- %s\n", op)
	}
	return p.writeMarkdown(b.String())
}

// PrintService writes a service summary.
func (p *Printer) PrintService(s ServiceSummary) error {
	if p.format == FormatJSON {
		return p.writeJSON(s)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", s.Name)
	writeTable(&b, "Property", []row{
		{"port", s.Port},
		{"endpoint", s.Endpoint},
		{"namespace", s.Namespace},
		{"soap_version", s.Version},
		{"style", s.Style},
	})
	b.WriteString("\n### Operations\n\n| Name | SOAPAction | Input | Output |\n|---|---|---|---|\n")
	for _, op := range s.Operations {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			escapeCell(op.Name), escapeCell(op.SOAPAction), escapeCell(op.Input), escapeCell(op.Output))
	}
	return p.writeMarkdown(b.String())
}

// PrintError writes a failed call. Faults keep their structure.
func (p *Printer) PrintError(err error) error {
	var fault *domain.Fault
	isFault := errors.As(err, &fault)

	if p.format == FormatJSON {
		if isFault {
			return p.writeJSON(map[string]any{"fault": fault})
		}
		return p.writeJSON(map[string]any{"error": err.Error()})
	}

	label := "Error"
	msg := err.Error()
	if isFault {
		label = "Fault " + fault.Code
		msg = fault.String
	}
	_, werr := fmt.Fprintf(p.out, "%s %s\n",
		p.style.String(label).Foreground(p.style.Color("#f87171")).Bold(), msg)
	return werr
}

func (p *Printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) writeMarkdown(md string) error {
	out, err := p.render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(p.out, out)
	return err
}

type row struct {
	key   string
	value string
}

// flatten turns a decoded value into dotted-path rows, sorted by path.
func flatten(prefix string, v any) []row {
	switch t := v.(type) {
	case map[string]any:
		var rows []row
		for k, child := range t {
			rows = append(rows, flatten(join(prefix, k), child)...)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].key < rows[j].key })
		return rows
	case []any:
		var rows []row
		for i, child := range t {
			rows = append(rows, flatten(fmt.Sprintf("%s[%d]", prefix, i), child)...)
		}
		return rows
	case nil:
		return []row{{key: orValue(prefix), value: "_nil_"}}
	default:
		return []row{{key: orValue(prefix), value: fmt.Sprint(t)}}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func orValue(key string) string {
	if key == "" {
		return "value"
	}
	return key
}

func writeTable(b *strings.Builder, header string, rows []row) {
	fmt.Fprintf(b, "| %s | Value |\n|---|---|\n", header)
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", escapeCell(r.key), escapeCell(r.value))
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

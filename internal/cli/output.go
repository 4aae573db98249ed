package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output печатает schedules, частоты и выполнения: таблицей, карточкой или JSON.
// Данные идут в w, сообщения о результате команды в errW.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// Field — строка карточки: подпись и значение.
type Field struct {
	Label string
	Value string
}

// NewOutput создаёт Output поверх stdout/stderr.
func NewOutput(jsonMode bool) *Output {
	return newOutputTo(jsonMode, os.Stdout, os.Stderr)
}

func newOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{jsonMode: jsonMode, w: w, errW: errW}
}

// Print выводит список: таблицу или JSON.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(o.errW, "Nothing found")
		return
	}
	o.Table(headers, rows)
}

// Detail выводит один объект карточкой "LABEL  value" (или JSON).
func (o *Output) Detail(fields []Field, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	for _, f := range fields {
		fmt.Fprintf(tw, "%s:\t%s\n", f.Label, cell(f.Value))
	}
	tw.Flush()
}

// Table выводит таблицу. Пустые ячейки (нет due date, ad-hoc задача) печатаются как "-".
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	tw.Flush()
}

func cell(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

// JSON выводит данные с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success печатает сообщение о выполненной операции.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

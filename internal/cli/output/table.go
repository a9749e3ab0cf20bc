package output

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"
)

// TableFormatter renders a slice of row structs as aligned columns.
//
// Column headers come from the json tag (or field name) in upper snake
// case. The table tag controls each column:
//
//	table:"-"     never shown
//	table:"wide"  shown only with Wide
//	table:"hex"   unsigned values printed as 0x-prefixed hex
//
// Anything other than a slice of structs is written as JSON.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

// Format writes data as a table.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	rows := reflect.Indirect(reflect.ValueOf(data))
	if !rows.IsValid() {
		return nil
	}
	if rows.Kind() != reflect.Slice || derefType(rows.Type().Elem()).Kind() != reflect.Struct {
		return (&JSONFormatter{}).Format(w, data)
	}
	if rows.Len() == 0 {
		return nil
	}

	cols := columnsOf(derefType(rows.Type().Elem()), f.Wide)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		headers := make([]string, len(cols))
		for i, c := range cols {
			headers[i] = c.header
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	cells := make([]string, len(cols))
	for i := 0; i < rows.Len(); i++ {
		row := reflect.Indirect(rows.Index(i))
		for j, c := range cols {
			if !row.IsValid() {
				cells[j] = "-"
				continue
			}
			cells[j] = c.cell(row)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

type column struct {
	index  int
	header string
	hex    bool
}

func (c column) cell(row reflect.Value) string {
	v := row.Field(c.index)
	if c.hex {
		switch v.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return fmt.Sprintf("%#x", v.Uint())
		}
	}
	return cellText(v)
}

func columnsOf(t reflect.Type, wide bool) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("table")
		if tag == "-" || (hasOption(tag, "wide") && !wide) {
			continue
		}
		cols = append(cols, column{
			index:  i,
			header: headerName(field),
			hex:    hasOption(tag, "hex"),
		})
	}
	return cols
}

func hasOption(tag, opt string) bool {
	for _, o := range strings.Split(tag, ",") {
		if o == opt {
			return true
		}
	}
	return false
}

// headerName is the json name in upper snake case: CREATED_AT.
func headerName(field reflect.StructField) string {
	name := field.Name
	if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag != "" && tag != "-" {
		return strings.ToUpper(tag)
	}
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

var timeType = reflect.TypeOf(time.Time{})

// cellText renders one field. Zero times and empty strings show as "-".
func cellText(v reflect.Value) string {
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}

	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	}
	if v.CanInterface() {
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String()
		}
	}

	switch v.Kind() {
	case reflect.String:
		if v.Len() == 0 {
			return "-"
		}
		return v.String()
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%.2f", v.Float())
	case reflect.Slice:
		if v.Len() == 0 {
			return "-"
		}
		items := make([]string, v.Len())
		for i := range items {
			items[i] = cellText(v.Index(i))
		}
		return strings.Join(items, ",")
	default:
		return fmt.Sprint(v.Interface())
	}
}

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

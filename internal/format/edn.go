package format

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteEDN writes v as EDN. Values go through their JSON encoding first so json tags
// name the keys; object keys become keywords with underscores turned into dashes.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := ednEncoder{pretty: pretty, indent: 2}
	enc.value(&buf, x, 0)
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

type ednEncoder struct {
	pretty bool
	indent int
}

func (e ednEncoder) value(buf *bytes.Buffer, v any, level int) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("nil")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case string:
		buf.WriteString(strconv.Quote(t))
	case json.Number:
		buf.WriteString(t.String())
	case []any:
		e.open(buf, '[', len(t) == 0)
		for i, it := range t {
			e.sep(buf, i, level)
			e.value(buf, it, level+1)
		}
		e.close(buf, ']', len(t) == 0, level)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.open(buf, '{', len(keys) == 0)
		for i, k := range keys {
			e.sep(buf, i, level)
			buf.WriteByte(':')
			buf.WriteString(keyword(k))
			buf.WriteByte(' ')
			e.value(buf, t[k], level+1)
		}
		e.close(buf, '}', len(keys) == 0, level)
	}
}

func (e ednEncoder) open(buf *bytes.Buffer, c byte, empty bool) {
	buf.WriteByte(c)
	if e.pretty && !empty {
		buf.WriteByte('\n')
	}
}

func (e ednEncoder) sep(buf *bytes.Buffer, i, level int) {
	if i > 0 {
		if e.pretty {
			buf.WriteByte('\n')
		} else {
			buf.WriteByte(' ')
		}
	}
	if e.pretty {
		buf.WriteString(strings.Repeat(" ", (level+1)*e.indent))
	}
}

func (e ednEncoder) close(buf *bytes.Buffer, c byte, empty bool, level int) {
	if e.pretty && !empty {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(" ", level*e.indent))
	}
	buf.WriteByte(c)
}

func keyword(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "-")
	return strings.ReplaceAll(s, "_", "-")
}

package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// defaultTimestampFormat is RFC3339 with millisecond precision.
const defaultTimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// TextFormatter renders entries as a single human-readable line:
// "ts LEVEL message key=value ...". Fields are sorted by key so output is
// stable across runs.
type TextFormatter struct {
	// TimestampFormat overrides the default millisecond RFC3339 format.
	TimestampFormat string
	// DisableTimestamp omits the timestamp column.
	DisableTimestamp bool
}

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	if !f.DisableTimestamp {
		format := f.TimestampFormat
		if format == "" {
			format = defaultTimestampFormat
		}
		buf.WriteString(entry.Timestamp.Format(format))
		buf.WriteByte(' ')
	}
	fmt.Fprintf(&buf, "%-5s %s", entry.Level.String(), entry.Message)
	if entry.Error != nil {
		fmt.Fprintf(&buf, " error=%q", entry.Error.Error())
	}
	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&buf, " %s=%v", k, entry.Fields[k])
		}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// JSONFormatter renders entries as single-line JSON documents with the
// reserved keys ts, level and msg plus all attached fields.
type JSONFormatter struct {
	// TimestampFormat overrides the default millisecond RFC3339 format.
	TimestampFormat string
	// PrettyPrint indents the output. Intended for debugging only.
	PrettyPrint bool
}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	format := f.TimestampFormat
	if format == "" {
		format = defaultTimestampFormat
	}
	doc := make(map[string]interface{}, len(entry.Fields)+5)
	for k, v := range entry.Fields {
		doc[k] = v
	}
	doc["ts"] = entry.Timestamp.Format(format)
	doc["level"] = entry.Level.String()
	doc["msg"] = entry.Message
	if entry.Error != nil {
		doc["error"] = entry.Error.Error()
	}
	if entry.Caller != "" {
		doc["caller"] = entry.Caller
	}

	var out []byte
	var err error
	if f.PrettyPrint {
		out, err = json.MarshalIndent(doc, "", "  ")
	} else {
		out, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

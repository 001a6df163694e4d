package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// prettyHandler writes one header line per record followed by its fields.
// Info records show a curated field list; debug records show every key.
type prettyHandler struct {
	out       *consoleOutput
	level     *slog.LevelVar
	addSource bool
	attrs     []kv
	prefix    string
}

// consoleOutput is shared by a handler and all handlers derived from it.
type consoleOutput struct {
	mu     sync.Mutex
	w      io.Writer
	memory map[string]map[string]string
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{
		out:       &consoleOutput{w: w, memory: make(map[string]map[string]string)},
		level:     lvl,
		addSource: addSource,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// consoleRecord is a record reduced to what the console layout needs.
type consoleRecord struct {
	ts        time.Time
	level     slog.Level
	component string
	subject   subject
	message   string
	source    *slog.Source
	fields    []kv
}

// subject holds the render coordinates pulled out of a record for the header.
type subject struct {
	jobID string
	frame string
	view  string
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	rec := h.collect(record)

	var buf bytes.Buffer
	rec.writeHeader(&buf, h.addSource)
	buf.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	if rec.level < slog.LevelInfo {
		for _, field := range rec.fields {
			fmt.Fprintf(&buf, "    %s: %s\n", field.key, quotedValue(field.value))
		}
	} else {
		fields, hidden := infoFields(rec.fields)
		fields = h.out.forgetRepeated(infoSummaryKey(rec.component, rec.subject.jobID), fields, rec.level)
		for _, field := range fields {
			fmt.Fprintf(&buf, "    - %s: %s\n", field.label, field.value)
		}
		if hidden > 0 {
			fmt.Fprintf(&buf, "    + %d more %s hidden\n", hidden, plural(hidden, "field", "fields"))
		}
	}
	_, err := h.out.w.Write(buf.Bytes())
	return err
}

func (h *prettyHandler) collect(record slog.Record) consoleRecord {
	rec := consoleRecord{
		ts:      record.Time,
		level:   record.Level,
		message: strings.TrimSpace(record.Message),
		source:  record.Source(),
	}
	if rec.ts.IsZero() {
		rec.ts = time.Now()
	}
	if rec.message == "" {
		rec.message = "(no message)"
	}

	fields := slices.Clone(h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFlat(fields, h.prefix, attr)
		return true
	})
	fields = lastWins(fields)

	rec.fields = fields[:0:0]
	for _, field := range fields {
		switch field.key {
		case FieldComponent:
			if rec.component == "" {
				rec.component = plainValue(field.value)
			}
			continue
		case FieldJobID:
			rec.subject.jobID = plainValue(field.value)
		case FieldFrame:
			rec.subject.frame = plainValue(field.value)
		case FieldView:
			rec.subject.view = plainValue(field.value)
		}
		rec.fields = append(rec.fields, field)
	}
	return rec
}

// writeHeader writes "ts LEVEL [component] subject – message [file:line]".
func (r consoleRecord) writeHeader(buf *bytes.Buffer, addSource bool) {
	buf.WriteString(consoleTime(r.ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(r.level))
	if r.component != "" {
		fmt.Fprintf(buf, " [%s]", r.component)
	}
	if text := FormatSubject(r.subject.jobID, r.subject.frame, r.subject.view); text != "" {
		buf.WriteByte(' ')
		buf.WriteString(text)
	}
	buf.WriteString(" – ")
	buf.WriteString(r.message)
	if addSource && r.source != nil && r.source.File != "" {
		fmt.Fprintf(buf, " [%s:%d]", filepath.Base(r.source.File), r.source.Line)
	}
}

// forgetRepeated drops info fields whose value has not changed since the last
// record of the same job or component. Warnings and errors always show every
// field but still update the memory.
func (o *consoleOutput) forgetRepeated(key string, fields []infoField, level slog.Level) []infoField {
	if key == "" || len(fields) == 0 {
		return fields
	}
	seen, ok := o.memory[key]
	if !ok {
		seen = make(map[string]string)
		o.memory[key] = seen
	}
	kept := fields[:0:0]
	for _, field := range fields {
		prev, known := seen[field.label]
		seen[field.label] = field.value
		if level == slog.LevelInfo && known && prev == field.value {
			continue
		}
		kept = append(kept, field)
	}
	return kept
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = slices.Clone(h.attrs)
	for _, attr := range attrs {
		next.attrs = appendFlat(next.attrs, h.prefix, attr)
	}
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.attrs = slices.Clone(h.attrs)
	next.prefix = joinKey(h.prefix, name)
	return &next
}

type kv struct {
	key   string
	value slog.Value
}

// appendFlat appends attr to dst, expanding groups into dotted keys.
func appendFlat(dst []kv, prefix string, attr slog.Attr) []kv {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() != slog.KindGroup {
		key := joinKey(prefix, attr.Key)
		if key == "" {
			return dst
		}
		return append(dst, kv{key: key, value: value})
	}
	inner := prefix
	if attr.Key != "" {
		inner = joinKey(prefix, attr.Key)
	}
	for _, member := range value.Group() {
		dst = appendFlat(dst, inner, member)
	}
	return dst
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// lastWins keeps the first position of every key with its last value.
func lastWins(fields []kv) []kv {
	index := make(map[string]int, len(fields))
	out := make([]kv, 0, len(fields))
	for _, field := range fields {
		if pos, ok := index[field.key]; ok {
			out[pos].value = field.value
			continue
		}
		index[field.key] = len(out)
		out = append(out, field)
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

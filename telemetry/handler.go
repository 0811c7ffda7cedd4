// Package telemetry provides the structured-logging handler installed by
// the CLI tools. The mcts, search and inference packages never log — they
// return errors and let the caller decide.
package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PrettyHandler is a slog.Handler that writes one indented JSON object
// per record, meant for a human watching a terminal rather than a log
// aggregator.
type PrettyHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Leveler
	addSource bool

	attrs  []slog.Attr
	groups []string
}

// NewPrettyHandler builds a handler writing to w. A nil opts behaves
// like &slog.HandlerOptions{Level: slog.LevelInfo}.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{w: w, mu: &sync.Mutex{}, level: slog.LevelInfo}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.addSource = opts.AddSource
	}
	return h
}

// Default returns a ready-to-use *slog.Logger writing pretty JSON to w
// at Info level — the handler every cmd/ entry point installs via
// slog.SetDefault.
func Default(w io.Writer) *slog.Logger {
	return slog.New(NewPrettyHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	fields := map[string]any{
		"time":  timeOrNow(r.Time).Format(time.RFC3339Nano),
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	if h.addSource && r.PC != 0 {
		fields["source"] = sourceLocation(r.PC)
	}

	all := make([]slog.Attr, 0, len(h.attrs)+8)
	all = append(all, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, a)
		return true
	})
	for _, a := range all {
		writeAttr(fields, h.groups, a)
	}

	b, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		b = fallbackLine(fields["time"].(string), fields["level"].(string), r.Message)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(append(b, '\n'))
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func fallbackLine(when, level, msg string) []byte {
	return []byte(`{"time":` + strconv.Quote(when) + `,"level":` + strconv.Quote(level) + `,"msg":` + strconv.Quote(msg) + `}`)
}

// writeAttr descends into the groups path (creating nested maps as
// needed) and stores attr's resolved value at the leaf.
func writeAttr(root map[string]any, groups []string, attr slog.Attr) {
	if attr.Key == "" {
		return
	}
	attr.Value = attr.Value.Resolve()

	dst := root
	for _, g := range groups {
		next, ok := dst[g].(map[string]any)
		if !ok {
			next = map[string]any{}
			dst[g] = next
		}
		dst = next
	}
	storeAttr(dst, attr)
}

func storeAttr(dst map[string]any, attr slog.Attr) {
	v := attr.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		child := map[string]any{}
		for _, ga := range v.Group() {
			if ga.Key != "" {
				storeAttr(child, ga)
			}
		}
		dst[attr.Key] = child
		return
	}
	dst[attr.Key] = scalarValue(v)
}

func scalarValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		return v.Any()
	default:
		return v.String()
	}
}

func sourceLocation(pc uintptr) string {
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	if f.File == "" {
		return ""
	}
	file := f.File
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(f.Line)
}

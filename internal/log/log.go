package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
)

var (
	sectionsMu      sync.RWMutex
	enabledSections = []string{
		"coherence",
	}
)

var level = &slog.LevelVar{}

var LoggerOpts = &slog.HandlerOptions{
	AddSource: false,
	Level:     level,
	ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == "time" {
			return slog.Attr{}
		}
		return a
	},
}

var DefaultLogger = slog.New(&filteringHandler{underlying: slog.NewTextHandler(os.Stderr, LoggerOpts)})

// SetLevel sets the minimum level of every logger derived from DefaultLogger
func SetLevel(l slog.Level) {
	level.Set(l)
}

// EnableSection lets records below Warn through when their section starts with prefix
func EnableSection(prefix ...string) {
	sectionsMu.Lock()
	defer sectionsMu.Unlock()
	for _, p := range prefix {
		if !slices.Contains(enabledSections, p) {
			enabledSections = append(enabledSections, p)
		}
	}
}

// SetSections replaces the enabled sections
func SetSections(prefix ...string) {
	sectionsMu.Lock()
	defer sectionsMu.Unlock()
	enabledSections = slices.Clone(prefix)
}

// SetOutput points DefaultLogger at w, as JSON when asJSON is set and as text otherwise
func SetOutput(w io.Writer, asJSON bool) {
	var h slog.Handler
	if asJSON {
		h = slog.NewJSONHandler(w, LoggerOpts)
	} else {
		h = slog.NewTextHandler(w, LoggerOpts)
	}
	DefaultLogger = slog.New(&filteringHandler{underlying: h})
}

// Section returns a child of DefaultLogger whose records carry the given section
func Section(name string, attrs ...any) *slog.Logger {
	return DefaultLogger.With(append([]any{"section", name}, attrs...)...)
}

func sectionEnabled(section string) bool {
	sectionsMu.RLock()
	defer sectionsMu.RUnlock()
	return slices.ContainsFunc(enabledSections, func(enabled string) bool {
		return strings.HasPrefix(section, enabled)
	})
}

var _ slog.Handler = &filteringHandler{}

type filteringHandler struct {
	underlying slog.Handler
	// sections were attached with WithAttrs, they are not re-emitted per record
	sections []string
}

func (f filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return f.underlying.Enabled(ctx, level)
}

func (f filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= slog.LevelWarn {
		return f.underlying.Handle(ctx, record)
	}
	wantSection := slices.ContainsFunc(f.sections, sectionEnabled)
	if !wantSection {
		record.Attrs(func(attr slog.Attr) bool {
			wantSection = attr.Key == "section" && sectionEnabled(attr.Value.String())
			// iterate as long as we have not found our section
			return !wantSection
		})
	}
	if !wantSection {
		return nil
	}
	return f.underlying.Handle(ctx, record)
}

func (f filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sections := slices.Clone(f.sections)
	for _, attr := range attrs {
		if attr.Key == "section" {
			sections = append(sections, attr.Value.String())
		}
	}
	return &filteringHandler{
		underlying: f.underlying.WithAttrs(attrs),
		sections:   sections,
	}
}

func (f filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{
		underlying: f.underlying.WithGroup(name),
		sections:   f.sections,
	}
}

package main

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"iter"
	"strings"
)

// RenderedCommand and RenderArgs represent a command line: a slice of
// argv-style strings, rendered from a slice of Go templates against a
// map of named substitutions read from stdin.
type (
	RenderedCommand []string
	RenderArgs      map[string]string
)

// Generator streams RenderArgs from an input stream until it's
// exhausted, the consumer stops iterating, or a read/parse error is
// reported through the cancel function; see generators.go for the
// three concrete generators. Those generators do not watch the context
// themselves, so cancelling it does not stop them.
type Generator func(context.Context, context.CancelCauseFunc, io.Reader) iter.Seq[RenderArgs]

// ParseCommandline compiles each argv element as a Go template.
func ParseCommandline(command []string) ([]*template.Template, error) {
	result := make([]*template.Template, len(command))
	for i, part := range command {
		t, err := template.New("ArgParser").Parse(part)
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// Render executes each compiled template against args, producing one
// concrete command line.
func Render(command []*template.Template, args RenderArgs) (RenderedCommand, error) {
	result := make([]string, 0, len(command))
	for _, part := range command {
		var sb strings.Builder
		if err := part.Execute(&sb, args); err != nil {
			return nil, fmt.Errorf("could not render %v with %q: %w", part, args, err)
		}
		result = append(result, sb.String())
	}
	return result, nil
}

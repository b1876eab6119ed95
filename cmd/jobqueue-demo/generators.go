package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"iter"
	"log/slog"
	"strings"
)

// LineReader yields trimmed, non-empty lines from in, cancelling cancel
// on any read error other than EOF.
func LineReader(in io.Reader, cancel context.CancelCauseFunc) iter.Seq[string] {
	return func(yield func(string) bool) {
		r := bufio.NewReader(in)
		for {
			text, err := r.ReadString('\n')
			text = strings.TrimRight(text, "\n")
			if err != nil {
				if err == io.EOF {
					if len(text) > 0 {
						yield(text)
					}
					return
				}
				if cancel != nil {
					cancel(err)
				}
				return
			}
			if len(text) == 0 {
				continue
			}
			if !yield(text) {
				return
			}
		}
	}
}

// SimpleLineGenerator treats each line of stdin as the value of a
// single "value" template argument.
func SimpleLineGenerator(ctx context.Context, cancel context.CancelCauseFunc, in io.Reader) iter.Seq[RenderArgs] {
	return func(yield func(RenderArgs) bool) {
		for text := range LineReader(in, cancel) {
			text = strings.TrimSpace(text)
			if !yield(RenderArgs{"value": text}) {
				return
			}
		}
	}
}

// JsonLineGenerator treats each line of stdin as a JSON object of
// string fields.
func JsonLineGenerator(ctx context.Context, cancel context.CancelCauseFunc, in io.Reader) iter.Seq[RenderArgs] {
	return func(yield func(RenderArgs) bool) {
		for text := range LineReader(in, cancel) {
			result := make(RenderArgs)
			if err := json.Unmarshal([]byte(text), &result); err != nil {
				if cancel != nil {
					cancel(err)
				}
				return
			}
			if !yield(result) {
				return
			}
		}
	}
}

// CsvGenerator treats stdin as a CSV file, using the header row as
// field names. Malformed data rows are logged and skipped rather than
// aborting the whole stream.
func CsvGenerator(ctx context.Context, cancel context.CancelCauseFunc, in io.Reader) iter.Seq[RenderArgs] {
	r := csv.NewReader(in)
	return func(yield func(RenderArgs) bool) {
		header, err := r.Read()
		if err != nil {
			if cancel != nil {
				cancel(err)
			}
			return
		}
		lineNumber := 0
		for {
			lineNumber++
			record, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				logger.Warn("could not parse a CSV line", slog.Int("line", lineNumber), slog.Any("error", err))
				continue
			}
			if len(record) != len(header) {
				logger.Warn("unexpected number of columns", slog.Int("line", lineNumber), slog.Int("header size", len(header)), slog.Int("record size", len(record)))
			}
			result := make(RenderArgs, len(header))
			for i, h := range header {
				if i >= len(record) {
					break
				}
				result[strings.TrimSpace(h)] = strings.TrimSpace(record[i])
			}
			if !yield(result) {
				return
			}
		}
	}
}

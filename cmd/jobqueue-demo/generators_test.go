package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleLineGenerator(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	in := strings.NewReader("foo\nbar\n\nbaz\n")

	var got []RenderArgs
	for args := range SimpleLineGenerator(ctx, cancel, in) {
		got = append(got, args)
	}
	require.Equal(t, []RenderArgs{{"value": "foo"}, {"value": "bar"}, {"value": "baz"}}, got)
}

func TestJsonLineGenerator(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	in := strings.NewReader(`{"foo":"1","bar":"2"}` + "\n" + `{"foo":"3","bar":"4"}` + "\n")

	var got []RenderArgs
	for args := range JsonLineGenerator(ctx, cancel, in) {
		got = append(got, args)
	}
	require.Equal(t, []RenderArgs{{"foo": "1", "bar": "2"}, {"foo": "3", "bar": "4"}}, got)
	require.NoError(t, context.Cause(ctx))
}

func TestJsonLineGeneratorCancelsOnMalformedInput(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	in := strings.NewReader("not json\n")

	for range JsonLineGenerator(ctx, cancel, in) {
		t.Fatal("expected no values from malformed input")
	}
	require.Error(t, context.Cause(ctx))
}

func TestCsvGenerator(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	in := strings.NewReader("foo,bar\n1,2\n3,4\n")

	var got []RenderArgs
	for args := range CsvGenerator(ctx, cancel, in) {
		got = append(got, args)
	}
	require.Equal(t, []RenderArgs{{"foo": "1", "bar": "2"}, {"foo": "3", "bar": "4"}}, got)
}

func TestCsvGeneratorSkipsRowsWithWrongFieldCount(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	in := strings.NewReader("foo,bar,baz\n1,2\n5,6,7\n")

	var got []RenderArgs
	for args := range CsvGenerator(ctx, cancel, in) {
		got = append(got, args)
	}
	require.Equal(t, []RenderArgs{{"foo": "5", "bar": "6", "baz": "7"}}, got)
}

func TestSimpleLineGeneratorStopsWhenYieldReturnsFalse(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	in := strings.NewReader("foo\nbar\nbaz\n")

	var got []RenderArgs
	for args := range SimpleLineGenerator(ctx, cancel, in) {
		got = append(got, args)
		if len(got) == 1 {
			break
		}
	}
	require.Equal(t, []RenderArgs{{"value": "foo"}}, got)
}

package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommandlineAndRender(t *testing.T) {
	templ, err := ParseCommandline([]string{"echo", "value is {{.value}}"})
	require.NoError(t, err)

	rendered, err := Render(templ, RenderArgs{"value": "hello"})
	require.NoError(t, err)
	require.Equal(t, RenderedCommand{"echo", "value is hello"}, rendered)
}

func TestRenderMissingKeyProducesEmptyString(t *testing.T) {
	templ, err := ParseCommandline([]string{"echo", "{{.missing}}"})
	require.NoError(t, err)

	rendered, err := Render(templ, RenderArgs{"value": "hello"})
	require.NoError(t, err)
	require.Equal(t, RenderedCommand{"echo", ""}, rendered)
}

func TestParseCommandlineRejectsBadTemplate(t *testing.T) {
	_, err := ParseCommandline([]string{"echo", "{{.value"})
	require.Error(t, err)
}

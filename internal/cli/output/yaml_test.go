package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintYAML(t *testing.T) {
	data := struct {
		Ring string `yaml:"ring"`
		Next int    `yaml:"next_offset"`
	}{
		Ring: "journal",
		Next: 128,
	}

	var buf bytes.Buffer
	err := PrintYAML(&buf, data)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "ring: journal")
	assert.Contains(t, output, "next_offset: 128")
}

func TestPrintYAMLArray(t *testing.T) {
	data := []struct {
		Ring string `yaml:"ring"`
	}{
		{Ring: "journal"},
		{Ring: "decisions"},
	}

	var buf bytes.Buffer
	err := PrintYAML(&buf, data)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "- ring: journal")
	assert.Contains(t, output, "- ring: decisions")
}

package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableData(t *testing.T) {
	table := NewTableData("Context", "Server", "Role")

	assert.Equal(t, []string{"Context", "Server", "Role"}, table.Headers())
	assert.Empty(t, table.Rows())

	table.AddRow("lab", "127.0.0.1:5640", "queen")
	table.AddRow("field", "10.0.0.7:5640", "worker_heartbeat")

	rows := table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"lab", "127.0.0.1:5640", "queen"}, rows[0])
	assert.Equal(t, []string{"field", "10.0.0.7:5640", "worker_heartbeat"}, rows[1])
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("Path", "State")
	table.AddRow("/proc/lifecycle/state", "online")
	table.AddRow("/proc/pressure/busy", "0")

	var buf bytes.Buffer
	err := PrintTable(&buf, table)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "PATH")
	assert.Contains(t, output, "STATE")
	assert.Contains(t, output, "/proc/lifecycle/state")
	assert.Contains(t, output, "online")
	assert.Contains(t, output, "/proc/pressure/busy")
	assert.Contains(t, output, "0")
}

func TestSimpleTable(t *testing.T) {
	pairs := [][2]string{
		{"Context", "lab"},
		{"Server", "127.0.0.1:5640"},
	}

	var buf bytes.Buffer
	err := SimpleTable(&buf, pairs)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Context")
	assert.Contains(t, output, "lab")
	assert.Contains(t, output, "Server")
	assert.Contains(t, output, "127.0.0.1:5640")
}

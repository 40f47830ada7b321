package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPreview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Week Ending,Quotes Sent,Sales Value\n"+
			"6/1/2024,12,\"$15,000.00\"\n"), 0644))

	assert.NoError(t, runPreview([]string{path}))
}

func TestRunPreviewMissingFile(t *testing.T) {
	assert.Error(t, runPreview([]string{filepath.Join(t.TempDir(), "nope.csv")}))
}

func TestRunPreviewArgCount(t *testing.T) {
	assert.Error(t, runPreview(nil))
}

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_ReportsErrorsToStderr(t *testing.T) {
	t.Setenv("BOARD_STORAGE", "memory")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"noticeboard", "migrate"}, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "migrate needs postgres or sqlite storage")
}

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDue(t *testing.T) {
	now := time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC) // Monday

	due, err := parseDue("", now)
	require.NoError(t, err)
	assert.Nil(t, due)

	due, err = parseDue("2024-09-20", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 9, 20, 0, 0, 0, 0, time.UTC), *due)

	due, err = parseDue("2024-09-20T15:04:05Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 9, 20, 15, 4, 5, 0, time.UTC), *due)

	due, err = parseDue("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, 3, due.Day())

	_, err = parseDue("banana", now)
	assert.Error(t, err)
}

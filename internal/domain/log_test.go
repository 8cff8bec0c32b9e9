package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupLogEntries(t *testing.T) {
	entries := []RawLogEntry{
		{Timestamp: "t1", Level: "info", Message: "copying disk"},
		{Timestamp: "t2", Level: "info", Message: "copying disk"},
		{Timestamp: "t3", Level: "error", Message: "copying disk"},
		{Timestamp: "t4", Level: "info", Message: "snapshot created"},
		{Timestamp: "t5", Level: "info", Message: "copying disk"},
	}

	groups := GroupLogEntries(entries)
	require.Len(t, groups, 3)

	// Same message at a different level is a distinct group.
	require.Equal(t, GroupedLogEntry{
		Level: "info", Message: "copying disk", Count: 3, FirstSeen: "t1", LastSeen: "t5",
	}, groups[0])
	require.Equal(t, "error", groups[1].Level)
	require.Equal(t, 1, groups[1].Count)
	require.Equal(t, "snapshot created", groups[2].Message)
}

func TestGroupLogEntriesEmpty(t *testing.T) {
	require.Empty(t, GroupLogEntries(nil))
}

func TestMergeStacktrace(t *testing.T) {
	entry := &PanicEntry{Stacktrace: "short"}
	entry.MergeStacktrace("a longer stacktrace")
	require.Equal(t, "a longer stacktrace", entry.Stacktrace)
	entry.MergeStacktrace("tiny")
	require.Equal(t, "a longer stacktrace", entry.Stacktrace)
}

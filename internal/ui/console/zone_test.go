package console

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeWorkerZoneID(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		expected string
	}{
		{name: "index 0", index: 0, expected: "worker:0"},
		{name: "index 3", index: 3, expected: "worker:3"},
		{name: "large index", index: 42, expected: "worker:42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := makeWorkerZoneID(tt.index)
			require.Equal(t, tt.expected, result)
		})
	}
}

func TestParseWorkerZoneID(t *testing.T) {
	tests := []struct {
		name          string
		zoneID        string
		expectedIndex int
		expectedOK    bool
	}{
		{name: "valid zone 0", zoneID: "worker:0", expectedIndex: 0, expectedOK: true},
		{name: "valid zone 3", zoneID: "worker:3", expectedIndex: 3, expectedOK: true},
		{name: "valid large zone", zoneID: "worker:42", expectedIndex: 42, expectedOK: true},
		{name: "invalid prefix", zoneID: "task:0", expectedIndex: 0, expectedOK: false},
		{name: "invalid format", zoneID: "worker-0", expectedIndex: 0, expectedOK: false},
		{name: "non-numeric", zoneID: "worker:abc", expectedIndex: 0, expectedOK: false},
		{name: "empty string", zoneID: "", expectedIndex: 0, expectedOK: false},
		{name: "input zone", zoneID: "command-input", expectedIndex: 0, expectedOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, ok := parseWorkerZoneID(tt.zoneID)
			require.Equal(t, tt.expectedOK, ok)
			if tt.expectedOK {
				require.Equal(t, tt.expectedIndex, index)
			}
		})
	}
}

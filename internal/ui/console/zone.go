package console

import (
	"fmt"
	"strconv"
	"strings"
)

// Zone ID prefixes and names for clickable regions.
const (
	zoneWorkerPrefix = "worker:"
	zoneCommandInput = "command-input"
)

// makeWorkerZoneID builds the zone ID for the worker row at index i.
func makeWorkerZoneID(i int) string {
	return fmt.Sprintf("%s%d", zoneWorkerPrefix, i)
}

// parseWorkerZoneID extracts the row index from a worker zone ID.
//
//nolint:unused // Used in zone_test.go for round-trip verification
func parseWorkerZoneID(id string) (int, bool) {
	if !strings.HasPrefix(id, zoneWorkerPrefix) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(id, zoneWorkerPrefix))
	if err != nil {
		return 0, false
	}
	return i, true
}

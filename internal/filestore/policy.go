package filestore

import (
	"fmt"
	"strings"
)

// CorruptPolicy decides what Open does with a log it cannot decode.
type CorruptPolicy string

const (
	// CorruptFail refuses to open and returns eventlog.ErrCorruptLog.
	CorruptFail CorruptPolicy = "fail"
	// CorruptEmpty moves the corrupt file aside and starts an empty log.
	// The loss is logged at ERROR level.
	CorruptEmpty CorruptPolicy = "empty"
)

// ParseCorruptPolicy parses "fail" or "empty". The empty string means CorruptFail.
func ParseCorruptPolicy(s string) (CorruptPolicy, error) {
	switch CorruptPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CorruptFail:
		return CorruptFail, nil
	case CorruptEmpty:
		return CorruptEmpty, nil
	default:
		return "", fmt.Errorf("unknown corrupt policy %q (want fail or empty)", s)
	}
}

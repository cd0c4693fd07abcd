// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"fmt"
	"strings"
	"time"
)

// TimeFormat is a time.Format layout for message timestamps.
type TimeFormat string

const (
	// Clock12 renders 13:05 as "01:05 PM".
	Clock12 TimeFormat = "03:04 PM"
	// Clock24 renders 13:05 as "13:05".
	Clock24 TimeFormat = "15:04"
)

// ParseTimeFormat maps a config value ("12h", "24h") to a TimeFormat.
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "12h":
		return Clock12, nil
	case "24h":
		return Clock24, nil
	default:
		return "", fmt.Errorf("invalid time format %q (want 12h or 24h)", s)
	}
}

// FormatTimestamp renders t's hour and minute in the local time zone.
func FormatTimestamp(t time.Time, f TimeFormat) string {
	if f == "" {
		f = Clock12
	}
	return t.Local().Format(string(f))
}

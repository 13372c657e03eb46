package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPart = regexp.MustCompile(`(\d+)([dhms])`)

// ParseSince resolves an archive filter to an absolute time. It accepts a
// timestamp ("2024-05-12", RFC 3339) or an age such as "7d" or "1d12h",
// which is subtracted from now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	input := strings.TrimSpace(s)
	if input == "" {
		return time.Time{}, fmt.Errorf("since value is empty")
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, input); err == nil {
			return t, nil
		}
	}

	d, err := ParseDuration(input)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-d), nil
}

// ParseDuration parses a Go duration, also accepting a day unit ("2d",
// "1d6h"). Used for llm.timeout and llm.ollama.keep_alive.
func ParseDuration(s string) (time.Duration, error) {
	input := strings.TrimSpace(s)
	if d, err := time.ParseDuration(input); err == nil {
		return d, nil
	}

	matches := durationPart.FindAllStringSubmatch(input, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	consumed := 0
	var total time.Duration
	for _, m := range matches {
		consumed += len(m[0])
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %q", s)
		}
		switch m[2] {
		case "d":
			total += 24 * time.Hour * time.Duration(n)
		case "h":
			total += time.Hour * time.Duration(n)
		case "m":
			total += time.Minute * time.Duration(n)
		case "s":
			total += time.Second * time.Duration(n)
		}
	}

	if consumed != len(input) {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	return total, nil
}

package calibre

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// RunJSON runs command in machine-readable mode and decodes stdout into T.
// Malformed JSON, and a literal null, fail with a KindDecode error that keeps the raw text.
func RunJSON[T any](ctx context.Context, r *Runner, command string, args []string) (T, error) {
	var out T

	text, err := r.Run(ctx, command, args, RunOptions{MachineReadable: true})
	if err != nil {
		return out, err
	}

	if strings.TrimSpace(text) == "null" {
		return out, newDecodeError(command, text, errors.New("unexpected null document"))
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, newDecodeError(command, text, err)
	}
	return out, nil
}

// addedIDsPattern matches the confirmation line calibredb add prints, e.g.
// "Added book ids: 4, 5, 6".
var addedIDsPattern = regexp.MustCompile(`(?im)^\s*added book ids?[ \t]*:[ \t]*([\d, \t]*\d)`)

var idRunPattern = regexp.MustCompile(`\d+(?:\s*,\s*\d+)*`)

// ParseAddedIDs extracts the ids from the "Added book ids:" line. A missing
// line, e.g. when every file was skipped as a duplicate, yields an empty slice.
func ParseAddedIDs(text string) []int {
	m := addedIDsPattern.FindStringSubmatch(text)
	if m == nil {
		return []int{}
	}
	return splitIDs(m[1])
}

// ParseIDList extracts the first comma-separated run of integers in text.
func ParseIDList(text string) []int {
	run := idRunPattern.FindString(text)
	if run == "" {
		return []int{}
	}
	return splitIDs(run)
}

func splitIDs(run string) []int {
	ids := []int{}
	for _, part := range strings.Split(run, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// Package extract recovers the translated payload from a completion's text.
// The model is instructed to fence its output between triple backticks, but a
// missing fence is tolerated rather than rejected: discarding valid output is
// worse than accepting it unfenced.
package extract

import (
	"regexp"
	"strings"
)

const fence = "```"

var fencedPayload = regexp.MustCompile("(?s)```(.+?)```")

// Payload returns the fenced region of raw with any embedded fence markers
// stripped. When no fenced region exists, it falls back to raw with fence
// markers stripped. Payload never fails.
func Payload(raw string) string {
	if m := fencedPayload.FindStringSubmatch(raw); m != nil {
		return strings.ReplaceAll(m[1], fence, "")
	}
	return strings.ReplaceAll(raw, fence, "")
}

package agent

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// maxLineSize bounds a single stream-json line (1 MiB).
const maxLineSize = 1024 * 1024

// streamRecord is the subset of the agent CLI's stream-json envelope
// we care about: incremental text content. Everything else (tool
// calls, usage, lifecycle records) is ignored.
type streamRecord struct {
	Type    string `json:"type"`
	Message *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
	Delta *struct {
		Text string `json:"text"`
	} `json:"delta"`
}

// ExtractFragment pulls the incremental text fragment out of one
// stream-json line. The second return is false when the line carries
// no text content or cannot be parsed; malformed lines never abort a
// parse, they are simply skipped.
func ExtractFragment(line []byte) (string, bool) {
	var rec streamRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return "", false
	}

	if rec.Delta != nil && rec.Delta.Text != "" {
		return rec.Delta.Text, true
	}

	if rec.Type == "assistant" && rec.Message != nil {
		var sb strings.Builder
		for _, c := range rec.Message.Content {
			if c.Type == "text" {
				sb.WriteString(c.Text)
			}
		}
		if sb.Len() > 0 {
			return sb.String(), true
		}
	}

	return "", false
}

// ParseStream scans line-delimited stream-json records from r and
// concatenates their text fragments in arrival order.
func ParseStream(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), maxLineSize)

	var sb strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if frag, ok := ExtractFragment([]byte(line)); ok {
			sb.WriteString(frag)
		}
	}

	return sb.String()
}

package nlp

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("no JSON object in reply")

// decodeReply unmarshals the first JSON object in content. Models sometimes
// wrap JSON in code fences or prose even in JSON mode.
func decodeReply(content string, v any) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return errNoJSON
	}
	return json.Unmarshal([]byte(content[start:end+1]), v)
}

package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeRequest renders the request envelope. Nil arguments encode as an
// empty object so the daemon always sees an "arguments" member.
func EncodeRequest(req Request) ([]byte, error) {
	method := strings.TrimSpace(req.Method)
	if method == "" {
		return nil, InvalidOperation("rpc method required")
	}
	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}
	out, err := json.Marshal(Request{Method: method, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", method, err)
	}
	return out, nil
}

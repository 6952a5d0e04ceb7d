package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodeResponse parses a response envelope. The result tag is passed
// through verbatim; checking it belongs to the method wrappers.
func DecodeResponse(body []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Arguments == nil {
		resp.Arguments = map[string]any{}
	}
	return resp, nil
}

// DecodeRequest parses a request envelope as sent by EncodeRequest.
func DecodeRequest(body []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	req.Method = strings.TrimSpace(req.Method)
	if req.Arguments == nil {
		req.Arguments = map[string]any{}
	}
	return req, nil
}

// ParseVersion reads an integer rpc-version out of a decoded JSON value.
// Values outside [0, math.MaxInt32] are rejected.
func ParseVersion(raw any) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, ErrVersionUnknown
	case int:
		return versionInRange(int64(v))
	case int64:
		return versionInRange(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: non-integer %v", ErrVersionUnknown, v)
		}
		if v < 0 || v > math.MaxInt32 {
			return 0, fmt.Errorf("%w: out of range %v", ErrVersionUnknown, v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrVersionUnknown, err)
		}
		return versionInRange(n)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrVersionUnknown, v)
		}
		return versionInRange(n)
	default:
		return 0, fmt.Errorf("%w: unexpected type %T", ErrVersionUnknown, raw)
	}
}

func versionInRange(n int64) (int, error) {
	if n < 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: out of range %d", ErrVersionUnknown, n)
	}
	return int(n), nil
}

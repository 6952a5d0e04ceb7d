package transmission

import (
	"math"
	"strconv"
	"strings"

	"github.com/danmuck/trctl/internal/protocol"
)

// RecentlyActive selects torrents that changed recently, in place of an ids list.
const RecentlyActive = "recently-active"

// NormalizeIDs validates torrent identifiers: numeric ids or hash strings.
func NormalizeIDs(ids []any) ([]any, error) {
	out := make([]any, 0, len(ids))
	for i, id := range ids {
		switch v := id.(type) {
		case int:
			out = append(out, v)
		case int32:
			out = append(out, int(v))
		case int64:
			out = append(out, int(v))
		case float64:
			if v != math.Trunc(v) {
				return nil, protocol.InvalidOperation("ids[%d]: non-integer id %v", i, v)
			}
			out = append(out, int(v))
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				return nil, protocol.InvalidOperation("ids[%d]: empty id", i)
			}
			out = append(out, s)
		default:
			return nil, protocol.InvalidOperation("ids[%d]: unsupported id type %T", i, id)
		}
	}
	return out, nil
}

// idsArgument renders ids for the wire. A lone RecentlyActive selector is
// sent as a bare string.
func idsArgument(ids []any) (any, error) {
	if len(ids) == 1 {
		if s, ok := ids[0].(string); ok && strings.TrimSpace(s) == RecentlyActive {
			return RecentlyActive, nil
		}
	}
	return NormalizeIDs(ids)
}

// ParseID turns a command-line token into a numeric id or a hash string.
func ParseID(raw string) any {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return raw
}

// ParseIDs applies ParseID to every token.
func ParseIDs(raw []string) []any {
	out := make([]any, 0, len(raw))
	for _, r := range raw {
		out = append(out, ParseID(r))
	}
	return out
}

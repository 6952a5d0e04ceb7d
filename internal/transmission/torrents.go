package transmission

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/danmuck/trctl/internal/protocol"
)

var (
	DefaultGetFields  = []string{"id", "name", "status", "doneDate", "haveValid", "totalSize"}
	DefaultListFields = []string{"id", "name", "status", "doneDate", "haveValid", "totalSize", "percentDone", "peersConnected", "eta"}
)

// Torrent is the subset of torrent-get fields this client reads.
type Torrent struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Status         int     `json:"status"`
	HashString     string  `json:"hashString,omitempty"`
	DoneDate       int64   `json:"doneDate"`
	HaveValid      int64   `json:"haveValid"`
	TotalSize      int64   `json:"totalSize"`
	PercentDone    float64 `json:"percentDone"`
	PeersConnected int     `json:"peersConnected"`
	ETA            int64   `json:"eta"`
	DownloadDir    string  `json:"downloadDir,omitempty"`
}

// AddedTorrent describes the torrent created or matched by torrent-add.
type AddedTorrent struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	HashString string `json:"hashString"`
	Duplicate  bool   `json:"-"`
}

func (c *Client) StartTorrents(ctx context.Context, ids ...any) (map[string]any, error) {
	return c.idsMethod(ctx, "torrent-start", ids)
}

func (c *Client) StopTorrents(ctx context.Context, ids ...any) (map[string]any, error) {
	return c.idsMethod(ctx, "torrent-stop", ids)
}

func (c *Client) VerifyTorrents(ctx context.Context, ids ...any) (map[string]any, error) {
	return c.idsMethod(ctx, "torrent-verify", ids)
}

func (c *Client) ReannounceTorrents(ctx context.Context, ids ...any) (map[string]any, error) {
	return c.idsMethod(ctx, "torrent-reannounce", ids)
}

// SetTorrents applies torrent-set arguments to ids. args is not modified.
func (c *Client) SetTorrents(ctx context.Context, ids []any, args map[string]any) (map[string]any, error) {
	normalized, err := idsArgument(ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(args)+1)
	maps.Copy(out, args)
	out["ids"] = normalized
	return c.invoke(ctx, "torrent-set", out)
}

// GetTorrent fetches fields for ids; nil fields selects DefaultGetFields.
func (c *Client) GetTorrent(ctx context.Context, ids []any, fields []string) ([]Torrent, error) {
	normalized, err := idsArgument(ids)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = DefaultGetFields
	}
	args, err := c.invoke(ctx, "torrent-get", map[string]any{
		"fields": fields,
		"ids":    normalized,
	})
	if err != nil {
		return nil, err
	}
	return decodeTorrents(args)
}

// ListTorrents fetches every torrent; nil fields selects DefaultListFields.
func (c *Client) ListTorrents(ctx context.Context, fields []string) ([]Torrent, error) {
	if len(fields) == 0 {
		fields = DefaultListFields
	}
	args, err := c.invoke(ctx, "torrent-get", map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}
	return decodeTorrents(args)
}

// AddFile adds a torrent by URL, magnet link or daemon-side path.
func (c *Client) AddFile(ctx context.Context, filename, downloadDir string, extra map[string]any) (AddedTorrent, error) {
	args := make(map[string]any, len(extra)+2)
	maps.Copy(args, extra)
	args["download-dir"] = downloadDir
	args["filename"] = filename
	return c.add(ctx, args)
}

// AddMetaInfo adds a torrent from raw .torrent contents.
func (c *Client) AddMetaInfo(ctx context.Context, meta []byte, downloadDir string, extra map[string]any) (AddedTorrent, error) {
	args := make(map[string]any, len(extra)+2)
	maps.Copy(args, extra)
	args["download-dir"] = downloadDir
	args["metainfo"] = base64.StdEncoding.EncodeToString(meta)
	return c.add(ctx, args)
}

func (c *Client) RemoveTorrent(ctx context.Context, ids []any, deleteData bool) (map[string]any, error) {
	normalized, err := idsArgument(ids)
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, "torrent-remove", map[string]any{
		"ids":               normalized,
		"delete-local-data": deleteData,
	})
}

// MoveTorrent sets a new download location; move relocates existing data.
func (c *Client) MoveTorrent(ctx context.Context, ids []any, location string, move bool) (map[string]any, error) {
	normalized, err := idsArgument(ids)
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, "torrent-set-location", map[string]any{
		"ids":      normalized,
		"location": location,
		"move":     move,
	})
}

// RenameTorrent renames path inside exactly one torrent. More than one id
// fails with protocol.ErrInvalidOperation before any request is sent.
func (c *Client) RenameTorrent(ctx context.Context, ids []any, path, name string) (map[string]any, error) {
	if len(ids) != 1 {
		return nil, fmt.Errorf("cannot rename more than one torrent at a time: %w", invalidRename(len(ids)))
	}
	normalized, err := idsArgument(ids)
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, "torrent-rename-path", map[string]any{
		"ids":  normalized,
		"path": path,
		"name": name,
	})
}

func invalidRename(n int) error {
	return protocol.InvalidOperation("torrent-rename-path needs exactly one id, got %d", n)
}

func (c *Client) add(ctx context.Context, args map[string]any) (AddedTorrent, error) {
	out, err := c.invoke(ctx, "torrent-add", args)
	if err != nil {
		return AddedTorrent{}, err
	}
	var added AddedTorrent
	raw, ok := out["torrent-added"]
	if !ok {
		raw, ok = out["torrent-duplicate"]
		added.Duplicate = ok
	}
	if !ok {
		return AddedTorrent{}, fmt.Errorf("%w: torrent-add: no torrent in response", ErrRPCResult)
	}
	if err := remarshal(raw, &added); err != nil {
		return AddedTorrent{}, err
	}
	return added, nil
}

func decodeTorrents(args map[string]any) ([]Torrent, error) {
	raw, ok := args["torrents"]
	if !ok {
		return []Torrent{}, nil
	}
	var out []Torrent
	if err := remarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// remarshal converts a decoded JSON value into a typed one.
func remarshal(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("transmission: re-encode: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("transmission: decode: %w", err)
	}
	return nil
}

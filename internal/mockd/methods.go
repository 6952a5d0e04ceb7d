package mockd

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"path"
	"strings"
	"time"

	"github.com/danmuck/trctl/internal/protocol"
)

type methodFunc func(args map[string]any) (map[string]any, error)

var (
	errNoTorrentSource  = errors.New("no filename or metainfo specified")
	errInvalidMetaInfo  = errors.New("invalid or corrupt torrent file")
	errRenameOneTorrent = errors.New("torrent-rename-path requires 1 torrent")
	errInvalidRename    = errors.New("invalid argument")
	errMissingLocation  = errors.New("no location")
)

// defaultTorrentSize is reported for torrents added without real metainfo.
const defaultTorrentSize = 1 << 30

func (d *Daemon) methodCatalog() map[string]methodFunc {
	return map[string]methodFunc{
		"session-get":          d.sessionGet,
		"session-set":          d.sessionSet,
		"session-stats":        d.sessionStats,
		"torrent-get":          d.torrentGet,
		"torrent-start":        d.setStatus(startedStatus),
		"torrent-start-now":    d.setStatus(startedStatus),
		"torrent-stop":         d.setStatus(func(Torrent) int { return protocol.StatusStopped }),
		"torrent-verify":       d.setStatus(func(Torrent) int { return protocol.StatusCheckWait }),
		"torrent-reannounce":   d.torrentReannounce,
		"torrent-add":          d.torrentAdd,
		"torrent-remove":       d.torrentRemove,
		"torrent-set":          d.torrentSet,
		"torrent-set-location": d.torrentSetLocation,
		"torrent-rename-path":  d.torrentRenamePath,
	}
}

func (d *Daemon) sessionGet(map[string]any) (map[string]any, error) {
	d.mu.Lock()
	out := maps.Clone(d.settings)
	d.mu.Unlock()
	out["rpc-version"] = d.cfg.RPCVersion
	out["rpc-version-minimum"] = 1
	out["version"] = d.cfg.Version
	return out, nil
}

func (d *Daemon) sessionSet(args map[string]any) (map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, value := range args {
		switch key {
		case "rpc-version", "rpc-version-minimum", "version":
			continue
		}
		d.settings[key] = value
	}
	return map[string]any{}, nil
}

func (d *Daemon) sessionStats(map[string]any) (map[string]any, error) {
	all := d.torrents.All()
	active := 0
	for _, t := range all {
		if t.Status != protocol.StatusStopped {
			active++
		}
	}
	return map[string]any{
		"torrentCount":       len(all),
		"activeTorrentCount": active,
		"pausedTorrentCount": len(all) - active,
		"downloadSpeed":      0,
		"uploadSpeed":        0,
	}, nil
}

func (d *Daemon) torrentGet(args map[string]any) (map[string]any, error) {
	fields := stringList(args["fields"])
	if len(fields) == 0 {
		fields = []string{"id", "name", "status"}
	}
	ids := d.torrents.Resolve(idSelector(args))
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		t, ok := d.torrents.Get(id)
		if !ok {
			continue
		}
		out = append(out, d.render(t, fields))
	}
	return map[string]any{"torrents": out}, nil
}

// setStatus returns a method moving every selected torrent to next(t).
func (d *Daemon) setStatus(next func(Torrent) int) methodFunc {
	return func(args map[string]any) (map[string]any, error) {
		for _, id := range d.torrents.Resolve(idSelector(args)) {
			d.torrents.Update(id, func(t *Torrent) {
				t.Status = next(*t)
			})
		}
		return map[string]any{}, nil
	}
}

func startedStatus(t Torrent) int {
	if t.PercentDone >= 1 {
		return protocol.StatusSeed
	}
	return protocol.StatusDownload
}

func (d *Daemon) torrentReannounce(args map[string]any) (map[string]any, error) {
	_ = d.torrents.Resolve(idSelector(args))
	return map[string]any{}, nil
}

func (d *Daemon) torrentAdd(args map[string]any) (map[string]any, error) {
	filename, _ := args["filename"].(string)
	metainfo, _ := args["metainfo"].(string)
	filename = strings.TrimSpace(filename)
	metainfo = strings.TrimSpace(metainfo)

	var (
		name   string
		source []byte
	)
	switch {
	case metainfo != "":
		raw, err := base64.StdEncoding.DecodeString(metainfo)
		if err != nil || len(raw) == 0 {
			return nil, errInvalidMetaInfo
		}
		source = raw
	case filename != "":
		source = []byte(filename)
		name = torrentName(filename)
	default:
		return nil, errNoTorrentSource
	}
	sum := sha1.Sum(source)
	hash := hex.EncodeToString(sum[:])
	if name == "" {
		name = "metainfo-" + hash[:8]
	}

	dir, _ := args["download-dir"].(string)
	if strings.TrimSpace(dir) == "" {
		dir = d.downloadDir()
	}
	status := protocol.StatusDownload
	if paused, _ := args["paused"].(bool); paused {
		status = protocol.StatusStopped
	}
	t, duplicate := d.torrents.Add(Torrent{
		Name:        name,
		HashString:  hash,
		DownloadDir: dir,
		Status:      status,
		TotalSize:   defaultTorrentSize,
		ETA:         -1,
		AddedAt:     time.Now(),
	})
	key := "torrent-added"
	if duplicate {
		key = "torrent-duplicate"
	}
	return map[string]any{
		key: map[string]any{
			"id":         t.ID,
			"name":       t.Name,
			"hashString": t.HashString,
		},
	}, nil
}

func (d *Daemon) torrentRemove(args map[string]any) (map[string]any, error) {
	for _, id := range d.torrents.Resolve(idSelector(args)) {
		d.torrents.Remove(id)
	}
	return map[string]any{}, nil
}

func (d *Daemon) torrentSet(args map[string]any) (map[string]any, error) {
	labels, hasLabels := args["labels"]
	for _, id := range d.torrents.Resolve(idSelector(args)) {
		d.torrents.Update(id, func(t *Torrent) {
			if hasLabels {
				t.Labels = stringList(labels)
			}
		})
	}
	return map[string]any{}, nil
}

func (d *Daemon) torrentSetLocation(args map[string]any) (map[string]any, error) {
	location, _ := args["location"].(string)
	if strings.TrimSpace(location) == "" {
		return nil, errMissingLocation
	}
	for _, id := range d.torrents.Resolve(idSelector(args)) {
		d.torrents.Update(id, func(t *Torrent) {
			t.DownloadDir = location
		})
	}
	return map[string]any{}, nil
}

// torrentRenamePath only supports renaming the torrent root.
func (d *Daemon) torrentRenamePath(args map[string]any) (map[string]any, error) {
	ids := d.torrents.Resolve(idSelector(args))
	if len(ids) != 1 {
		return nil, errRenameOneTorrent
	}
	oldPath, _ := args["path"].(string)
	newName, _ := args["name"].(string)
	if newName == "" || strings.Contains(newName, "/") {
		return nil, errInvalidRename
	}
	var renamed bool
	d.torrents.Update(ids[0], func(t *Torrent) {
		if t.Name != oldPath {
			return
		}
		t.Name = newName
		renamed = true
	})
	if !renamed {
		return nil, fmt.Errorf("%w: no such path %q", errInvalidRename, oldPath)
	}
	return map[string]any{
		"id":   ids[0],
		"path": oldPath,
		"name": newName,
	}, nil
}

// render selects fields of t, translating status for legacy rpc versions.
func (d *Daemon) render(t Torrent, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		switch field {
		case "id":
			out[field] = t.ID
		case "name":
			out[field] = t.Name
		case "hashString":
			out[field] = t.HashString
		case "status":
			out[field] = d.wireStatus(t.Status)
		case "downloadDir":
			out[field] = t.DownloadDir
		case "totalSize":
			out[field] = t.TotalSize
		case "haveValid":
			out[field] = t.HaveValid
		case "percentDone":
			out[field] = t.PercentDone
		case "doneDate":
			out[field] = t.DoneDate
		case "peersConnected":
			out[field] = t.PeersConnected
		case "eta":
			out[field] = t.ETA
		case "labels":
			out[field] = append([]string{}, t.Labels...)
		case "addedDate":
			out[field] = t.AddedAt.Unix()
		}
	}
	return out
}

// legacyWireStatus folds the sequential codes into the bit flags used
// before rpc-version 14. Queued states report as their active state.
var legacyWireStatus = map[int]int{
	protocol.StatusStopped:      protocol.LegacyStatusStopped,
	protocol.StatusCheckWait:    protocol.LegacyStatusCheckWait,
	protocol.StatusCheck:        protocol.LegacyStatusCheck,
	protocol.StatusDownloadWait: protocol.LegacyStatusDownload,
	protocol.StatusDownload:     protocol.LegacyStatusDownload,
	protocol.StatusSeedWait:     protocol.LegacyStatusSeed,
	protocol.StatusSeed:         protocol.LegacyStatusSeed,
}

func (d *Daemon) wireStatus(status int) int {
	if !protocol.IsLegacy(d.cfg.RPCVersion) {
		return status
	}
	if legacy, ok := legacyWireStatus[status]; ok {
		return legacy
	}
	return status
}

func (d *Daemon) downloadDir() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dir, ok := d.settings["download-dir"].(string); ok && dir != "" {
		return dir
	}
	return d.cfg.DownloadDir
}

// idSelector returns nil when args carry no ids, selecting everything.
// recently-active is treated as everything.
func idSelector(args map[string]any) []any {
	switch v := args["ids"].(type) {
	case nil:
		return nil
	case []any:
		return v
	case string:
		if v == "recently-active" {
			return nil
		}
		return []any{v}
	default:
		return []any{v}
	}
}

func stringList(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func torrentName(filename string) string {
	if strings.HasPrefix(filename, "magnet:") {
		if _, query, ok := strings.Cut(filename, "?"); ok {
			for _, pair := range strings.Split(query, "&") {
				if value, ok := strings.CutPrefix(pair, "dn="); ok && value != "" {
					return strings.ReplaceAll(value, "+", " ")
				}
			}
		}
		return "magnet"
	}
	base := path.Base(filename)
	return strings.TrimSuffix(base, ".torrent")
}

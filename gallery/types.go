package gallery

import (
	"github.com/tidwall/gjson"
	"golang.org/x/text/unicode/norm"
)

// NodeKind distinguishes traversable folders from album leaves.
// A node's kind is immutable once fetched.
type NodeKind string

const (
	NodeFolder NodeKind = "folder"
	NodeAlbum  NodeKind = "album"
)

// ProcessingStatus is the per-photo AI processing state as reported by
// the store.
type ProcessingStatus string

const (
	StatusNotSynced    ProcessingStatus = "not_synced"
	StatusNotProcessed ProcessingStatus = "not_processed"
	StatusProcessing   ProcessingStatus = "processing"
	StatusCompleted    ProcessingStatus = "completed"
	StatusFailed       ProcessingStatus = "failed"
)

// Node is a directory-tree entry: a folder or an album. Photo counts and
// IsSynced are only meaningful for albums and may change after a sync
// mutation.
type Node struct {
	ID string
	// LegacyID carries the alternate identifier older API shapes use for
	// the same node. Empty when the response only carried one key.
	LegacyID       string
	Kind           NodeKind
	Name           string
	PhotoCount     int
	ProcessedCount int
	IsSynced       bool
}

// Matches reports whether the node answers to the given identity key:
// its primary id, its legacy id, or its NFC-normalized display name.
// Display names round-trip through more than one API shape, so names are
// compared after Unicode normalization.
func (n Node) Matches(key string) bool {
	if key == "" {
		return false
	}

	if n.ID == key || n.LegacyID == key {
		return true
	}

	return norm.NFC.String(n.Name) == norm.NFC.String(key)
}

// BreadcrumbEntry is one step of the path from root to the current
// position.
type BreadcrumbEntry struct {
	NodeID string
	Name   string
}

// PhotoRef identifies one photo in a loaded collection. LocalID is the
// processing-database id; it is zero exactly when the photo has not been
// synced, in which case the photo is not eligible for selection or batch
// processing.
type PhotoRef struct {
	RemoteID string
	LocalID  int64
	IsSynced bool
	Status   ProcessingStatus
}

// NodesResponse is a normalized node listing. Breadcrumbs is nil when the
// server omitted the path, which indicates the listing is root.
type NodesResponse struct {
	Nodes       []Node
	Breadcrumbs []BreadcrumbEntry
}

// SyncResult is the outcome of a sync mutation on one album.
type SyncResult struct {
	SyncedPhotoCount int
	AlbumName        string
}

// BatchResult is the authoritative outcome of one batch-process call.
type BatchResult struct {
	Total     int
	Processed int
}

// Wire-shape normalization. The store's API has grown several record
// shapes over its versions: node ids arrive as "id", "folder_id" or
// "album_id"; names as "name", "display_name" or "title". Everything is
// flattened here so nothing past this boundary branches on shape.

func normalizeNode(raw gjson.Result) Node {
	n := Node{
		Name: firstString(raw, "name", "display_name", "title"),
	}

	ids := collectStrings(raw, "id", "folder_id", "album_id", "uuid")
	if len(ids) > 0 {
		n.ID = ids[0]
	}
	if len(ids) > 1 {
		n.LegacyID = ids[1]
	}

	switch firstString(raw, "kind", "type") {
	case "folder", "directory":
		n.Kind = NodeFolder
	case "album":
		n.Kind = NodeAlbum
	default:
		// Older responses omit the kind; albums are the only nodes that
		// carry photo counts.
		if raw.Get("photo_count").Exists() || raw.Get("photos").Exists() {
			n.Kind = NodeAlbum
		} else {
			n.Kind = NodeFolder
		}
	}

	if n.Kind == NodeAlbum {
		n.PhotoCount = int(firstInt(raw, "photo_count", "photos"))
		n.ProcessedCount = int(firstInt(raw, "processed_count", "processed"))
		n.IsSynced = firstBool(raw, "is_synced", "synced")
	}

	return n
}

func normalizePhoto(raw gjson.Result) PhotoRef {
	p := PhotoRef{
		RemoteID: firstString(raw, "id", "remote_id", "uuid"),
		LocalID:  firstInt(raw, "local_id", "db_id"),
		IsSynced: firstBool(raw, "is_synced", "synced"),
	}

	switch firstString(raw, "status", "processing_status") {
	case "processing":
		p.Status = StatusProcessing
	case "completed", "done":
		p.Status = StatusCompleted
	case "failed", "error":
		p.Status = StatusFailed
	case "not_processed", "pending":
		p.Status = StatusNotProcessed
	default:
		if p.IsSynced {
			p.Status = StatusNotProcessed
		} else {
			p.Status = StatusNotSynced
		}
	}

	// Unsynced photos have no processing-database row. Drop any local id
	// a buggy response carries so the eligibility invariant holds.
	if !p.IsSynced {
		p.LocalID = 0
		p.Status = StatusNotSynced
	}

	return p
}

func normalizeBreadcrumb(raw gjson.Result) BreadcrumbEntry {
	return BreadcrumbEntry{
		NodeID: firstString(raw, "id", "node_id", "folder_id"),
		Name:   firstString(raw, "name", "display_name", "title"),
	}
}

func firstString(raw gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := raw.Get(key); v.Exists() && v.Str != "" {
			return v.Str
		}
	}

	return ""
}

func collectStrings(raw gjson.Result, keys ...string) []string {
	var out []string

	for _, key := range keys {
		v := raw.Get(key)
		if !v.Exists() || v.String() == "" {
			continue
		}

		s := v.String()

		dup := false
		for _, seen := range out {
			if seen == s {
				dup = true
				break
			}
		}

		if !dup {
			out = append(out, s)
		}
	}

	return out
}

func firstInt(raw gjson.Result, keys ...string) int64 {
	for _, key := range keys {
		if v := raw.Get(key); v.Exists() {
			return v.Int()
		}
	}

	return 0
}

func firstBool(raw gjson.Result, keys ...string) bool {
	for _, key := range keys {
		if v := raw.Get(key); v.Exists() {
			return v.Bool()
		}
	}

	return false
}

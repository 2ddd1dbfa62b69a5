package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/jwhitmore/gallery-sync/internal/errors"
	"github.com/jwhitmore/gallery-sync/gallery"
)

// Position is the current navigation position. NodeID/NodeName describe
// the current folder ("" means root). When InAlbum is set the user has
// descended into an album leaf of that folder; albums are never traversed
// further.
type Position struct {
	NodeID    string
	NodeName  string
	InAlbum   bool
	AlbumID   string
	AlbumName string
}

// HistoryFrame captures the position the user was at before descending
// into a folder. Popped on back-navigation. Entering an album does not
// push a frame.
type HistoryFrame struct {
	NodeID string
	Name   string
}

// NavigationController owns the current position, the breadcrumb trail,
// the back-history stack, and the loaded node/photo listings.
//
// Every navigation method fetches outside the lock and commits under it,
// guarded by a monotonically increasing request token: a response that
// arrives after a newer navigation was issued is discarded, so overlapping
// calls supersede rather than interleave. Fetch failures commit nothing.
type NavigationController struct {
	client    DirectoryClient
	selection *SelectionManager
	hooks     Hooks
	logger    *slog.Logger

	mu          sync.Mutex
	seq         uint64
	pos         Position
	breadcrumbs []gallery.BreadcrumbEntry
	history     []HistoryFrame
	nodes       []gallery.Node
	photos      []gallery.PhotoRef
}

// NewNavigationController creates a controller with no position; call
// EnterRoot before anything else.
func NewNavigationController(client DirectoryClient, selection *SelectionManager, hooks Hooks, logger *slog.Logger) *NavigationController {
	return &NavigationController{
		client:    client,
		selection: selection,
		hooks:     hooks,
		logger:    logger,
	}
}

// begin claims a request token for a navigation fetch. Any token claimed
// later supersedes this one.
func (n *NavigationController) begin() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++

	return n.seq
}

// staleLocked reports whether a newer navigation superseded the holder of
// token. Callers hold n.mu.
func (n *NavigationController) staleLocked(token uint64) bool {
	return token != n.seq
}

// EnterRoot clears history and breadcrumbs and loads the root listing.
// Fetch errors leave all state as it was.
func (n *NavigationController) EnterRoot(ctx context.Context) error {
	token := n.begin()

	resp, err := n.client.FetchNodes(ctx, "")

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.staleLocked(token) {
		n.logger.Debug("discarding stale root response")
		return nil
	}

	if err != nil {
		return n.fetchFailedLocked("root", err)
	}

	n.pos = Position{}
	n.history = nil
	n.breadcrumbs = nil
	n.nodes = resp.Nodes
	n.photos = nil
	n.selection.Clear()
	n.notifyNodesLocked()

	return nil
}

// EnterFolder descends into a folder node: pushes a history frame for the
// previous position, loads the child listing, and rebuilds breadcrumbs
// from the server path when one is reported.
func (n *NavigationController) EnterFolder(ctx context.Context, node gallery.Node) error {
	if node.Kind != gallery.NodeFolder {
		return fmt.Errorf("cannot enter %q: not a folder", node.Name)
	}

	token := n.begin()

	resp, err := n.client.FetchNodes(ctx, node.ID)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.staleLocked(token) {
		n.logger.Debug("discarding stale folder response", slog.String("node", node.ID))
		return nil
	}

	if err != nil {
		return n.fetchFailedLocked(node.Name, err)
	}

	n.history = append(n.history, HistoryFrame{NodeID: n.pos.NodeID, Name: n.pos.NodeName})
	n.breadcrumbs = resolveBreadcrumbs(folderCrumbs(n.breadcrumbs, n.pos), node, resp.Breadcrumbs)
	n.pos = Position{NodeID: node.ID, NodeName: node.Name}
	n.nodes = resp.Nodes
	n.photos = nil
	n.selection.Clear()
	n.notifyNodesLocked()

	n.logger.Debug("entered folder",
		slog.String("node", node.ID),
		slog.Int("children", len(resp.Nodes)),
	)

	return nil
}

// EnterAlbum loads an album's photo collection. Albums are leaves: the
// history stack is untouched and the containing folder remains the
// current node. The album appears as the final breadcrumb while open.
func (n *NavigationController) EnterAlbum(ctx context.Context, node gallery.Node) error {
	if node.Kind != gallery.NodeAlbum {
		return fmt.Errorf("cannot open %q: not an album", node.Name)
	}

	token := n.begin()

	photos, err := n.client.FetchAlbumPhotos(ctx, node.ID)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.staleLocked(token) {
		n.logger.Debug("discarding stale album response", slog.String("album", node.ID))
		return nil
	}

	if err != nil {
		return n.fetchFailedLocked(node.Name, err)
	}

	n.breadcrumbs = append(folderCrumbs(n.breadcrumbs, n.pos),
		gallery.BreadcrumbEntry{NodeID: node.ID, Name: node.Name})
	n.pos.InAlbum = true
	n.pos.AlbumID = node.ID
	n.pos.AlbumName = node.Name
	n.photos = photos
	n.selection.Clear()
	n.notifyNodesLocked()
	n.notifyPhotosLocked()

	n.logger.Debug("opened album",
		slog.String("album", node.ID),
		slog.Int("photos", len(photos)),
	)

	return nil
}

// GoToBreadcrumb jumps to the breadcrumb at index, truncating the trail
// and any deeper history frames. Jumping to the trailing album crumb
// refreshes the open album.
func (n *NavigationController) GoToBreadcrumb(ctx context.Context, index int) error {
	n.mu.Lock()
	crumbs := n.breadcrumbs
	pos := n.pos

	if index < 0 || index >= len(crumbs) {
		n.mu.Unlock()
		return fmt.Errorf("breadcrumb index %d out of range", index)
	}

	target := crumbs[index]
	albumCrumb := pos.InAlbum && index == len(crumbs)-1
	n.mu.Unlock()

	if albumCrumb {
		return n.ReloadCurrent(ctx)
	}

	token := n.begin()

	resp, err := n.client.FetchNodes(ctx, target.NodeID)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.staleLocked(token) {
		n.logger.Debug("discarding stale breadcrumb response", slog.String("node", target.NodeID))
		return nil
	}

	if err != nil {
		return n.fetchFailedLocked(target.Name, err)
	}

	folders := folderCrumbs(n.breadcrumbs, n.pos)
	if index < len(folders) {
		folders = folders[:index+1]
	}
	if resp.Breadcrumbs != nil {
		folders = dedupeAdjacent(resp.Breadcrumbs)
	}

	n.breadcrumbs = folders
	if len(n.history) > index+1 {
		n.history = n.history[:index+1]
	}
	n.pos = Position{NodeID: target.NodeID, NodeName: target.Name}
	n.nodes = resp.Nodes
	n.photos = nil
	n.selection.Clear()
	n.notifyNodesLocked()

	return nil
}

// Back pops one level: out of the open album first, then up the folder
// history. At root with no history it is a no-op.
func (n *NavigationController) Back(ctx context.Context) error {
	n.mu.Lock()
	pos := n.pos
	var frame HistoryFrame
	hasFrame := len(n.history) > 0
	if hasFrame {
		frame = n.history[len(n.history)-1]
	}
	n.mu.Unlock()

	// Leaving an album returns to its containing folder without touching
	// the history stack, mirroring how entering it pushed nothing.
	if pos.InAlbum {
		token := n.begin()

		resp, err := n.client.FetchNodes(ctx, pos.NodeID)

		n.mu.Lock()
		defer n.mu.Unlock()

		if n.staleLocked(token) {
			return nil
		}

		if err != nil {
			return n.fetchFailedLocked(pos.NodeName, err)
		}

		n.breadcrumbs = folderCrumbs(n.breadcrumbs, n.pos)
		n.pos = Position{NodeID: pos.NodeID, NodeName: pos.NodeName}
		n.nodes = resp.Nodes
		n.photos = nil
		n.selection.Clear()
		n.notifyNodesLocked()

		return nil
	}

	if !hasFrame {
		return nil
	}

	if frame.NodeID == "" {
		return n.EnterRoot(ctx)
	}

	token := n.begin()

	resp, err := n.client.FetchNodes(ctx, frame.NodeID)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.staleLocked(token) {
		return nil
	}

	if err != nil {
		return n.fetchFailedLocked(frame.Name, err)
	}

	n.history = n.history[:len(n.history)-1]

	folders := folderCrumbs(n.breadcrumbs, n.pos)
	if len(folders) > 0 {
		folders = folders[:len(folders)-1]
	}
	if resp.Breadcrumbs != nil {
		folders = dedupeAdjacent(resp.Breadcrumbs)
	}

	n.breadcrumbs = folders
	n.pos = Position{NodeID: frame.NodeID, NodeName: frame.Name}
	n.nodes = resp.Nodes
	n.photos = nil
	n.selection.Clear()
	n.notifyNodesLocked()

	return nil
}

// ReloadCurrent refetches the current listing in place: the folder's
// nodes and, when an album is open, its photo collection. The server is
// the only source of truth for per-photo status, so batch terminal states
// funnel through here. Position, breadcrumbs, and history are untouched;
// the selection is pruned to members still eligible in the fresh
// collection rather than cleared, since the collection identity is
// unchanged.
func (n *NavigationController) ReloadCurrent(ctx context.Context) error {
	n.mu.Lock()
	pos := n.pos
	n.mu.Unlock()

	token := n.begin()

	resp, err := n.client.FetchNodes(ctx, pos.NodeID)

	var photos []gallery.PhotoRef
	if err == nil && pos.InAlbum {
		photos, err = n.client.FetchAlbumPhotos(ctx, pos.AlbumID)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.staleLocked(token) {
		n.logger.Debug("discarding stale reload response")
		return nil
	}

	if err != nil {
		return n.fetchFailedLocked(pos.NodeName, err)
	}

	n.nodes = resp.Nodes
	n.notifyNodesLocked()

	if pos.InAlbum {
		n.photos = photos
		n.selection.Prune(photos)
		n.notifyPhotosLocked()
	}

	return nil
}

// Position returns the current position.
func (n *NavigationController) Position() Position {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.pos
}

// Breadcrumbs returns a copy of the breadcrumb trail, root-first. Empty
// means the position is root.
func (n *NavigationController) Breadcrumbs() []gallery.BreadcrumbEntry {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]gallery.BreadcrumbEntry(nil), n.breadcrumbs...)
}

// HistoryDepth returns the number of back-navigation frames.
func (n *NavigationController) HistoryDepth() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.history)
}

// Nodes returns a copy of the loaded node listing.
func (n *NavigationController) Nodes() []gallery.Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]gallery.Node(nil), n.nodes...)
}

// Photos returns a copy of the loaded photo collection, nil when no album
// is open.
func (n *NavigationController) Photos() []gallery.PhotoRef {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]gallery.PhotoRef(nil), n.photos...)
}

// fetchFailedLocked surfaces a navigation fetch failure once and wraps it
// in the directory-fetch sentinel. No state was committed.
func (n *NavigationController) fetchFailedLocked(what string, err error) error {
	wrapped := fmt.Errorf("%w: %s: %v", apperrors.ErrDirectoryFetch, what, err)

	n.logger.Warn("navigation fetch failed",
		slog.String("target", what),
		slog.String("error", err.Error()),
	)

	if n.hooks.Error != nil {
		n.hooks.Error(ErrorKindFetch, wrapped.Error())
	}

	return wrapped
}

func (n *NavigationController) notifyNodesLocked() {
	if n.hooks.NodesChanged != nil {
		n.hooks.NodesChanged(
			append([]gallery.Node(nil), n.nodes...),
			append([]gallery.BreadcrumbEntry(nil), n.breadcrumbs...),
		)
	}
}

func (n *NavigationController) notifyPhotosLocked() {
	if n.hooks.PhotosChanged != nil {
		n.hooks.PhotosChanged(append([]gallery.PhotoRef(nil), n.photos...))
	}
}

package session

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/jwhitmore/gallery-sync/internal/errors"
	"github.com/jwhitmore/gallery-sync/gallery"
)

// ContextSnapshot is a point-in-time capture of navigation state, taken
// immediately before a mutating remote call and consumed exactly once by
// Restore. The selection is deliberately not captured: it never survives
// a mutation, since the set of syncable photos may have changed.
type ContextSnapshot struct {
	Position    Position
	Breadcrumbs []gallery.BreadcrumbEntry
	History     []HistoryFrame
}

// Snapshot captures the live navigation state.
func (n *NavigationController) Snapshot() ContextSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	return ContextSnapshot{
		Position:    n.pos,
		Breadcrumbs: append([]gallery.BreadcrumbEntry(nil), n.breadcrumbs...),
		History:     append([]HistoryFrame(nil), n.history...),
	}
}

// Restore replays navigation back to the snapshot's position after a
// mutation replaced the data it was derived from. The folder listing is
// re-fetched; breadcrumbs and history come from the snapshot values
// rather than being recomputed. If the snapshot was inside an album, the
// fresh listing is searched for a node answering to any of the album's
// identity keys and the album is re-entered with a cleared selection.
//
// When the position cannot be relocated, Restore falls back to the root
// view, then attempts the album directly by id. It never leaves the
// session without a valid current position; the returned
// ErrContextRestore only tells the UI that the user's place was reset.
func (n *NavigationController) Restore(ctx context.Context, snap ContextSnapshot) error {
	token := n.begin()

	resp, err := n.client.FetchNodes(ctx, snap.Position.NodeID)

	n.mu.Lock()

	if n.staleLocked(token) {
		n.mu.Unlock()
		n.logger.Debug("discarding stale restore response")
		return nil
	}

	if err != nil {
		n.mu.Unlock()
		n.logger.Warn("restore fetch failed, falling back to root",
			slog.String("node", snap.Position.NodeID),
			slog.String("error", err.Error()),
		)
		return n.restoreFallback(ctx, snap)
	}

	n.pos = Position{NodeID: snap.Position.NodeID, NodeName: snap.Position.NodeName}
	n.breadcrumbs = folderCrumbs(snap.Breadcrumbs, snap.Position)
	n.history = append([]HistoryFrame(nil), snap.History...)
	n.nodes = resp.Nodes
	n.photos = nil
	n.selection.Clear()
	n.notifyNodesLocked()

	nodes := resp.Nodes
	n.mu.Unlock()

	if !snap.Position.InAlbum {
		return nil
	}

	album, found := findAlbum(nodes, snap.Position.AlbumID, snap.Position.AlbumName)
	if !found {
		n.logger.Warn("album missing after refresh, falling back",
			slog.String("album_id", snap.Position.AlbumID),
		)
		return n.restoreFallback(ctx, snap)
	}

	if err := n.EnterAlbum(ctx, album); err != nil {
		return n.restoreFallback(ctx, snap)
	}

	return nil
}

// restoreFallback degrades to the root view and, when the original album
// id is still directly resolvable, re-enters the album from there.
func (n *NavigationController) restoreFallback(ctx context.Context, snap ContextSnapshot) error {
	if err := n.EnterRoot(ctx); err != nil {
		return fmt.Errorf("%w: root fallback failed: %v", apperrors.ErrContextRestore, err)
	}

	if snap.Position.InAlbum && snap.Position.AlbumID != "" {
		album := gallery.Node{
			ID:   snap.Position.AlbumID,
			Kind: gallery.NodeAlbum,
			Name: snap.Position.AlbumName,
		}

		if err := n.EnterAlbum(ctx, album); err != nil {
			return fmt.Errorf("%w: album %q no longer resolvable", apperrors.ErrContextRestore, snap.Position.AlbumID)
		}
	}

	return fmt.Errorf("%w: position reset", apperrors.ErrContextRestore)
}

// findAlbum searches a listing for an album node answering to either
// identity key. Ids are matched before display names, since names can
// legitimately collide across shapes.
func findAlbum(nodes []gallery.Node, albumID, albumName string) (gallery.Node, bool) {
	for _, node := range nodes {
		if node.Kind == gallery.NodeAlbum && node.Matches(albumID) {
			return node, true
		}
	}

	for _, node := range nodes {
		if node.Kind == gallery.NodeAlbum && albumName != "" && node.Matches(albumName) {
			return node, true
		}
	}

	return gallery.Node{}, false
}

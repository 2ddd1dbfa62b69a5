// Package session implements the navigation and selection state manager
// for a remote hierarchical photo store: folder/album traversal with
// breadcrumbs and back-history, a selection set bound to the loaded photo
// collection, the batch-processing state machine, and the snapshot/restore
// protocol that preserves the user's position across remote mutations.
package session

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/jwhitmore/gallery-sync/internal/errors"
	"github.com/jwhitmore/gallery-sync/gallery"
)

//go:generate mockgen -source=session.go -destination=mock_directory_test.go -package=session DirectoryClient

// DirectoryClient is the narrow interface the session needs from the
// remote photo store. Satisfied by *gallery.Client.
type DirectoryClient interface {
	// FetchNodes lists folders and albums under nodeID; empty nodeID
	// lists the root. Breadcrumbs are present for non-root listings on
	// servers that report paths.
	FetchNodes(ctx context.Context, nodeID string) (*gallery.NodesResponse, error)

	// FetchAlbumPhotos lists the photos of one album.
	FetchAlbumPhotos(ctx context.Context, albumID string) ([]gallery.PhotoRef, error)

	// SyncAlbum materializes the album's photos into the processing
	// database. Mutating: prior photo listings are stale afterwards.
	SyncAlbum(ctx context.Context, albumID string) (*gallery.SyncResult, error)

	// UpdatePhotoStatus marks processing-database rows. Best-effort.
	UpdatePhotoStatus(ctx context.Context, localIDs []int64, status gallery.ProcessingStatus) error

	// SubmitBatch runs AI processing over processing-database rows and
	// returns the authoritative result.
	SubmitBatch(ctx context.Context, localIDs []int64) (*gallery.BatchResult, error)
}

// Hooks are the render callbacks consumed by the hosting UI layer. Nil
// funcs are skipped. Hooks only read session state; they must not call
// back into the session.
type Hooks struct {
	NodesChanged     func(nodes []gallery.Node, breadcrumbs []gallery.BreadcrumbEntry)
	PhotosChanged    func(photos []gallery.PhotoRef)
	SelectionChanged func(count int)
	BatchProgress    func(processed, total int)
	Error            func(kind, message string)
}

// Error kinds passed to the Error hook.
const (
	ErrorKindFetch     = "directory_fetch"
	ErrorKindSelection = "selection_rejected"
	ErrorKindBatch     = "batch"
	ErrorKindRestore   = "context_restore"
)

// Session owns all mutable browsing state for one user. It is the only
// writer of its controllers; UI layers read through the render hooks.
type Session struct {
	client DirectoryClient
	logger *slog.Logger
	hooks  Hooks

	nav       *NavigationController
	selection *SelectionManager
	batch     *BatchCoordinator
}

// New creates a session around the given remote client.
func New(client DirectoryClient, hooks Hooks, logger *slog.Logger) *Session {
	s := &Session{
		client: client,
		logger: logger,
		hooks:  hooks,
	}

	s.selection = NewSelectionManager(hooks.SelectionChanged, logger)
	s.nav = NewNavigationController(client, s.selection, hooks, logger)
	s.batch = NewBatchCoordinator(client, hooks.BatchProgress, s.nav.ReloadCurrent, logger)

	return s
}

// Navigation returns the navigation controller.
func (s *Session) Navigation() *NavigationController { return s.nav }

// Selection returns the selection manager.
func (s *Session) Selection() *SelectionManager { return s.selection }

// Batch returns the batch coordinator.
func (s *Session) Batch() *BatchCoordinator { return s.batch }

// ProcessSelected resolves the selection against the loaded collection and
// submits a batch job. Submission is refused when nothing resolvable is
// selected, so the user syncs before processing.
func (s *Session) ProcessSelected(ctx context.Context) (*gallery.BatchResult, error) {
	localIDs, unresolved := s.selection.ResolveLocalIDs(s.nav.Photos())
	if unresolved > 0 {
		s.logger.Debug("selection entries without local ids excluded",
			slog.Int("unresolved", unresolved),
		)
	}

	if len(localIDs) == 0 {
		err := fmt.Errorf("%w: %d selected", apperrors.ErrBatchRefused, s.selection.Count())
		s.surfaceError(ErrorKindBatch, err)
		return nil, err
	}

	res, err := s.batch.Submit(ctx, s.selection.IDs(), localIDs)
	if err != nil {
		s.surfaceError(ErrorKindBatch, err)
		return nil, err
	}

	return res, nil
}

// SyncCurrentAlbum runs the sync mutation on the open album and restores
// the navigation position afterwards. The selection never survives a
// sync: the set of syncable photos may have changed.
func (s *Session) SyncCurrentAlbum(ctx context.Context) (*gallery.SyncResult, error) {
	pos := s.nav.Position()
	if !pos.InAlbum {
		return nil, fmt.Errorf("no album open")
	}

	snap := s.nav.Snapshot()

	res, err := s.client.SyncAlbum(ctx, pos.AlbumID)
	if err != nil {
		// State is untouched; the user retries manually.
		wrapped := fmt.Errorf("syncing album %q: %w", pos.AlbumID, err)
		s.surfaceError(ErrorKindFetch, wrapped)
		return nil, wrapped
	}

	s.logger.Info("album synced",
		slog.String("album", res.AlbumName),
		slog.Int("photos", res.SyncedPhotoCount),
	)

	if err := s.nav.Restore(ctx, snap); err != nil {
		// Restore already fell back to a valid position; the user only
		// gets a notice that their place was lost.
		s.surfaceError(ErrorKindRestore, err)
	}

	return res, nil
}

// HandleEvent reacts to a change-feed event. Changes to the open album
// trigger the same context-preserving refresh a local mutation uses;
// everything else is picked up on the next natural fetch.
func (s *Session) HandleEvent(ctx context.Context, ev gallery.Event) {
	pos := s.nav.Position()
	if !pos.InAlbum || !s.albumMatches(pos, ev) {
		s.logger.Debug("ignoring event for other album",
			slog.String("op", ev.Op),
			slog.String("album_id", ev.AlbumID),
		)
		return
	}

	s.logger.Info("open album changed remotely, refreshing",
		slog.String("op", ev.Op),
		slog.String("album_id", ev.AlbumID),
	)

	if err := s.nav.Restore(ctx, s.nav.Snapshot()); err != nil {
		s.surfaceError(ErrorKindRestore, err)
	}
}

func (s *Session) albumMatches(pos Position, ev gallery.Event) bool {
	probe := gallery.Node{ID: pos.AlbumID, Name: pos.AlbumName}

	return probe.Matches(ev.AlbumID) || (ev.Name != "" && probe.Matches(ev.Name))
}

// OpenAlbumDirect enters an album by id without a listing fetch, used to
// resume the previous session's position. Failure leaves the current
// position untouched.
func (s *Session) OpenAlbumDirect(ctx context.Context, albumID, name string) error {
	return s.nav.EnterAlbum(ctx, gallery.Node{
		ID:   albumID,
		Kind: gallery.NodeAlbum,
		Name: name,
	})
}

func (s *Session) surfaceError(kind string, err error) {
	if s.hooks.Error != nil {
		s.hooks.Error(kind, err.Error())
	}
}

package session

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/jwhitmore/gallery-sync/gallery"
	"go.uber.org/mock/gomock"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func folder(id, name string) gallery.Node {
	return gallery.Node{ID: id, Kind: gallery.NodeFolder, Name: name}
}

func album(id, name string, photoCount, processedCount int, synced bool) gallery.Node {
	return gallery.Node{
		ID:             id,
		Kind:           gallery.NodeAlbum,
		Name:           name,
		PhotoCount:     photoCount,
		ProcessedCount: processedCount,
		IsSynced:       synced,
	}
}

func photo(remoteID string, localID int64, synced bool) gallery.PhotoRef {
	status := gallery.StatusNotSynced
	if synced {
		status = gallery.StatusNotProcessed
	}

	return gallery.PhotoRef{
		RemoteID: remoteID,
		LocalID:  localID,
		IsSynced: synced,
		Status:   status,
	}
}

func crumb(id, name string) gallery.BreadcrumbEntry {
	return gallery.BreadcrumbEntry{NodeID: id, Name: name}
}

func listing(crumbs []gallery.BreadcrumbEntry, nodes ...gallery.Node) *gallery.NodesResponse {
	return &gallery.NodesResponse{Nodes: nodes, Breadcrumbs: crumbs}
}

// hookRecorder captures every render callback for assertions.
type hookRecorder struct {
	mu sync.Mutex

	nodeRenders   [][]gallery.Node
	crumbRenders  [][]gallery.BreadcrumbEntry
	photoRenders  [][]gallery.PhotoRef
	selectionSeen []int
	progressSeen  [][2]int
	errorsSeen    []string
}

func (r *hookRecorder) hooks() Hooks {
	return Hooks{
		NodesChanged: func(nodes []gallery.Node, crumbs []gallery.BreadcrumbEntry) {
			r.mu.Lock()
			r.nodeRenders = append(r.nodeRenders, nodes)
			r.crumbRenders = append(r.crumbRenders, crumbs)
			r.mu.Unlock()
		},
		PhotosChanged: func(photos []gallery.PhotoRef) {
			r.mu.Lock()
			r.photoRenders = append(r.photoRenders, photos)
			r.mu.Unlock()
		},
		SelectionChanged: func(count int) {
			r.mu.Lock()
			r.selectionSeen = append(r.selectionSeen, count)
			r.mu.Unlock()
		},
		BatchProgress: func(processed, total int) {
			r.mu.Lock()
			r.progressSeen = append(r.progressSeen, [2]int{processed, total})
			r.mu.Unlock()
		},
		Error: func(kind, message string) {
			r.mu.Lock()
			r.errorsSeen = append(r.errorsSeen, kind+": "+message)
			r.mu.Unlock()
		},
	}
}

func (r *hookRecorder) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.errorsSeen)
}

// newTestSession builds a session around a mock client and a recorder.
func newTestSession(t *testing.T, ctrl *gomock.Controller) (*Session, *MockDirectoryClient, *hookRecorder) {
	t.Helper()

	mock := NewMockDirectoryClient(ctrl)
	rec := &hookRecorder{}

	return New(mock, rec.hooks(), quietLogger), mock, rec
}

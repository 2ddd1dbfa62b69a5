package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	apperrors "github.com/jwhitmore/gallery-sync/internal/errors"
	"github.com/jwhitmore/gallery-sync/gallery"
)

// SelectionManager owns the set of selected photo ids, scoped to exactly
// one loaded photo collection at a time. Only synced photos are ever
// members; the set is cleared whenever the loaded collection changes
// identity.
type SelectionManager struct {
	logger   *slog.Logger
	onChange func(count int)

	mu       sync.Mutex
	selected map[string]struct{}
}

// NewSelectionManager creates an empty selection. onChange may be nil.
func NewSelectionManager(onChange func(count int), logger *slog.Logger) *SelectionManager {
	return &SelectionManager{
		logger:   logger,
		onChange: onChange,
		selected: make(map[string]struct{}),
	}
}

// Toggle adds or removes photoID. Toggling a photo that is absent from
// the collection, or not synced, is a silent no-op: the UI and the data
// can race during renders, and stale single toggles should not spam the
// user with errors.
func (m *SelectionManager) Toggle(photoID string, selected bool, collection []gallery.PhotoRef) {
	m.mu.Lock()

	if !selected {
		if _, ok := m.selected[photoID]; ok {
			delete(m.selected, photoID)
			m.notifyLocked()
		}
		m.mu.Unlock()
		return
	}

	photo, ok := findPhoto(collection, photoID)
	if !ok || !photo.IsSynced {
		m.logger.Debug("dropping toggle for ineligible photo", slog.String("photo", photoID))
		m.mu.Unlock()
		return
	}

	if _, dup := m.selected[photoID]; !dup {
		m.selected[photoID] = struct{}{}
		m.notifyLocked()
	}
	m.mu.Unlock()
}

// Select explicitly adds photoID. Unlike Toggle, an explicit selection of
// an ineligible photo is a deliberate user action and must be explained,
// so it returns ErrSelectionRejected.
func (m *SelectionManager) Select(photoID string, collection []gallery.PhotoRef) error {
	photo, ok := findPhoto(collection, photoID)
	if !ok {
		return fmt.Errorf("%w: photo %q is not in the loaded collection", apperrors.ErrSelectionRejected, photoID)
	}
	if !photo.IsSynced {
		return fmt.Errorf("%w: photo %q", apperrors.ErrSelectionRejected, photoID)
	}

	m.mu.Lock()
	if _, dup := m.selected[photoID]; !dup {
		m.selected[photoID] = struct{}{}
		m.notifyLocked()
	}
	m.mu.Unlock()

	return nil
}

// SelectAllEligible adds every synced photo in the collection and returns
// the number now selected. Unsynced photos are never added.
func (m *SelectionManager) SelectAllEligible(collection []gallery.PhotoRef) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false

	for _, p := range collection {
		if !p.IsSynced {
			continue
		}

		if _, dup := m.selected[p.RemoteID]; !dup {
			m.selected[p.RemoteID] = struct{}{}
			changed = true
		}
	}

	if changed {
		m.notifyLocked()
	}

	return len(m.selected)
}

// Clear empties the set unconditionally.
func (m *SelectionManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.selected) == 0 {
		return
	}

	m.selected = make(map[string]struct{})
	m.notifyLocked()
}

// Prune drops members that are absent or no longer synced in the given
// collection. Used after an in-place reload, where the collection keeps
// its identity but individual photos may have changed.
func (m *SelectionManager) Prune(collection []gallery.PhotoRef) {
	eligible := make(map[string]struct{}, len(collection))
	for _, p := range collection {
		if p.IsSynced {
			eligible[p.RemoteID] = struct{}{}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false

	for id := range m.selected {
		if _, ok := eligible[id]; !ok {
			delete(m.selected, id)
			changed = true
		}
	}

	if changed {
		m.notifyLocked()
	}
}

// Count returns the number of selected photos.
func (m *SelectionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.selected)
}

// IDs returns the selected remote ids in stable order.
func (m *SelectionManager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// ResolveLocalIDs maps the selection to processing-database ids via the
// given collection. Entries without a local id are excluded and counted,
// so callers can detect a selection with nothing syncable and refuse to
// submit. The result never exceeds the selection size.
func (m *SelectionManager) ResolveLocalIDs(collection []gallery.PhotoRef) (localIDs []int64, unresolved int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.selected {
		photo, ok := findPhoto(collection, id)
		if !ok || photo.LocalID == 0 {
			unresolved++
			continue
		}

		localIDs = append(localIDs, photo.LocalID)
	}

	sort.Slice(localIDs, func(i, j int) bool { return localIDs[i] < localIDs[j] })

	return localIDs, unresolved
}

func (m *SelectionManager) notifyLocked() {
	if m.onChange != nil {
		m.onChange(len(m.selected))
	}
}

func findPhoto(collection []gallery.PhotoRef, remoteID string) (gallery.PhotoRef, bool) {
	for _, p := range collection {
		if p.RemoteID == remoteID {
			return p, true
		}
	}

	return gallery.PhotoRef{}, false
}

package session

import (
	"context"
	"fmt"
	"testing"

	apperrors "github.com/jwhitmore/gallery-sync/internal/errors"
	"github.com/jwhitmore/gallery-sync/gallery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// entersRoot expects the root listing fetch and drives the session there.
func entersRoot(t *testing.T, sess *Session, mock *MockDirectoryClient, nodes ...gallery.Node) {
	t.Helper()

	mock.EXPECT().FetchNodes(gomock.Any(), "").Return(listing(nil, nodes...), nil)
	require.NoError(t, sess.Navigation().EnterRoot(context.Background()))
}

func TestEnterRoot_LoadsListing(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, rec := newTestSession(t, ctrl)

	entersRoot(t, sess, mock, folder("a", "Archive"), album("al1", "Loose", 3, 0, false))

	nav := sess.Navigation()
	assert.Equal(t, Position{}, nav.Position())
	assert.Empty(t, nav.Breadcrumbs())
	assert.Zero(t, nav.HistoryDepth())
	assert.Len(t, nav.Nodes(), 2)
	assert.Len(t, rec.nodeRenders, 1)
}

func TestEnterRoot_FetchErrorLeavesStateAndSurfacesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, rec := newTestSession(t, ctrl)

	entersRoot(t, sess, mock, folder("a", "Archive"))

	mock.EXPECT().FetchNodes(gomock.Any(), "").Return(nil, fmt.Errorf("boom"))

	err := sess.Navigation().EnterRoot(context.Background())
	require.ErrorIs(t, err, apperrors.ErrDirectoryFetch)

	// Last-known-good listing survives and exactly one error reached the UI.
	assert.Len(t, sess.Navigation().Nodes(), 1)
	assert.Equal(t, 1, rec.errorCount())
}

func TestEnterFolder_PushesExactlyOneFrame(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)
	nav := sess.Navigation()

	entersRoot(t, sess, mock, folder("a", "Archive"))

	mock.EXPECT().FetchNodes(gomock.Any(), "a").
		Return(listing(nil, folder("b", "2024")), nil)
	require.NoError(t, nav.EnterFolder(context.Background(), folder("a", "Archive")))

	assert.Equal(t, 1, nav.HistoryDepth())
	assert.Equal(t, Position{NodeID: "a", NodeName: "Archive"}, nav.Position())
	assert.Equal(t, []gallery.BreadcrumbEntry{crumb("a", "Archive")}, nav.Breadcrumbs())

	mock.EXPECT().FetchNodes(gomock.Any(), "b").
		Return(listing(nil, album("al1", "Regionals", 10, 0, false)), nil)
	require.NoError(t, nav.EnterFolder(context.Background(), folder("b", "2024")))

	assert.Equal(t, 2, nav.HistoryDepth())
	assert.Equal(t, []gallery.BreadcrumbEntry{crumb("a", "Archive"), crumb("b", "2024")}, nav.Breadcrumbs())
}

func TestEnterFolder_ServerPathIsSourceOfTruth(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)
	nav := sess.Navigation()

	entersRoot(t, sess, mock, folder("b", "2024"))

	// Server reports the full path, including a parent this client never
	// visited (deep link).
	serverPath := []gallery.BreadcrumbEntry{crumb("a", "Archive"), crumb("b", "2024")}
	mock.EXPECT().FetchNodes(gomock.Any(), "b").Return(listing(serverPath), nil)

	require.NoError(t, nav.EnterFolder(context.Background(), folder("b", "2024")))
	assert.Equal(t, serverPath, nav.Breadcrumbs())
}

func TestEnterFolder_RejectsAlbum(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, _, _ := newTestSession(t, ctrl)

	err := sess.Navigation().EnterFolder(context.Background(), album("al1", "Regionals", 1, 0, true))
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrDirectoryFetch)
}

func TestEnterFolder_FetchErrorCommitsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, rec := newTestSession(t, ctrl)
	nav := sess.Navigation()

	entersRoot(t, sess, mock, folder("a", "Archive"))

	mock.EXPECT().FetchNodes(gomock.Any(), "a").Return(nil, fmt.Errorf("timeout"))

	err := nav.EnterFolder(context.Background(), folder("a", "Archive"))
	require.ErrorIs(t, err, apperrors.ErrDirectoryFetch)

	assert.Equal(t, Position{}, nav.Position())
	assert.Empty(t, nav.Breadcrumbs())
	assert.Zero(t, nav.HistoryDepth())
	assert.Equal(t, 1, rec.errorCount())
}

func TestEnterAlbum_LeavesHistoryAlone(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, rec := newTestSession(t, ctrl)
	nav := sess.Navigation()

	entersRoot(t, sess, mock, folder("a", "Archive"))
	mock.EXPECT().FetchNodes(gomock.Any(), "a").
		Return(listing(nil, album("al1", "Regionals", 2, 0, true)), nil)
	require.NoError(t, nav.EnterFolder(context.Background(), folder("a", "Archive")))

	depthBefore := nav.HistoryDepth()

	mock.EXPECT().FetchAlbumPhotos(gomock.Any(), "al1").
		Return([]gallery.PhotoRef{photo("p1", 1, true), photo("p2", 0, false)}, nil)
	require.NoError(t, nav.EnterAlbum(context.Background(), album("al1", "Regionals", 2, 0, true)))

	assert.Equal(t, depthBefore, nav.HistoryDepth())

	pos := nav.Position()
	assert.True(t, pos.InAlbum)
	assert.Equal(t, "al1", pos.AlbumID)
	assert.Equal(t, "a", pos.NodeID, "containing folder remains the current node")

	crumbs := nav.Breadcrumbs()
	assert.Equal(t, "al1", crumbs[len(crumbs)-1].NodeID, "album is the final breadcrumb")
	assert.Len(t, nav.Photos(), 2)
	assert.Len(t, rec.photoRenders, 1)
}

func TestEnterAlbum_ResetsSelection(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)
	nav := sess.Navigation()

	entersRoot(t, sess, mock)
	mock.EXPECT().FetchAlbumPhotos(gomock.Any(), "al1").
		Return([]gallery.PhotoRef{photo("p1", 1, true)}, nil)
	require.NoError(t, nav.EnterAlbum(context.Background(), album("al1", "A", 1, 0, true)))

	sess.Selection().SelectAllEligible(nav.Photos())
	require.Equal(t, 1, sess.Selection().Count())

	// Opening another album clears the old album's selection.
	mock.EXPECT().FetchAlbumPhotos(gomock.Any(), "al2").
		Return([]gallery.PhotoRef{photo("q1", 2, true)}, nil)
	require.NoError(t, nav.EnterAlbum(context.Background(), album("al2", "B", 1, 0, true)))

	assert.Zero(t, sess.Selection().Count())
}

func TestEnterAlbum_RejectsFolder(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, _, _ := newTestSession(t, ctrl)

	err := sess.Navigation().EnterAlbum(context.Background(), folder("a", "Archive"))
	require.Error(t, err)
}

func TestGoToBreadcrumb_TruncatesTrailAndHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)
	nav := sess.Navigation()
	ctx := context.Background()

	entersRoot(t, sess, mock, folder("a", "Archive"))
	mock.EXPECT().FetchNodes(gomock.Any(), "a").Return(listing(nil, folder("b", "2024")), nil)
	require.NoError(t, nav.EnterFolder(ctx, folder("a", "Archive")))
	mock.EXPECT().FetchNodes(gomock.Any(), "b").Return(listing(nil), nil)
	require.NoError(t, nav.EnterFolder(ctx, folder("b", "2024")))

	require.Equal(t, 2, nav.HistoryDepth())

	mock.EXPECT().FetchNodes(gomock.Any(), "a").Return(listing(nil, folder("b", "2024")), nil)
	require.NoError(t, nav.GoToBreadcrumb(ctx, 0))

	assert.Equal(t, []gallery.BreadcrumbEntry{crumb("a", "Archive")}, nav.Breadcrumbs())
	assert.Equal(t, 1, nav.HistoryDepth())
	assert.Equal(t, Position{NodeID: "a", NodeName: "Archive"}, nav.Position())
}

func TestGoToBreadcrumb_OutOfRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)

	entersRoot(t, sess, mock)

	require.Error(t, sess.Navigation().GoToBreadcrumb(context.Background(), 0))
	require.Error(t, sess.Navigation().GoToBreadcrumb(context.Background(), -1))
}

func TestBack_FromAlbumReturnsToFolder(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)
	nav := sess.Navigation()
	ctx := context.Background()

	entersRoot(t, sess, mock, folder("a", "Archive"))
	mock.EXPECT().FetchNodes(gomock.Any(), "a").
		Return(listing(nil, album("al1", "Regionals", 1, 0, true)), nil)
	require.NoError(t, nav.EnterFolder(ctx, folder("a", "Archive")))

	mock.EXPECT().FetchAlbumPhotos(gomock.Any(), "al1").
		Return([]gallery.PhotoRef{photo("p1", 1, true)}, nil)
	require.NoError(t, nav.EnterAlbum(ctx, album("al1", "Regionals", 1, 0, true)))

	mock.EXPECT().FetchNodes(gomock.Any(), "a").
		Return(listing(nil, album("al1", "Regionals", 1, 0, true)), nil)
	require.NoError(t, nav.Back(ctx))

	pos := nav.Position()
	assert.False(t, pos.InAlbum)
	assert.Equal(t, "a", pos.NodeID)
	assert.Equal(t, 1, nav.HistoryDepth(), "leaving an album pops no frame")
	assert.Equal(t, []gallery.BreadcrumbEntry{crumb("a", "Archive")}, nav.Breadcrumbs())
	assert.Empty(t, nav.Photos())
}

func TestBack_PopsOneFrame(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)
	nav := sess.Navigation()
	ctx := context.Background()

	entersRoot(t, sess, mock, folder("a", "Archive"))
	mock.EXPECT().FetchNodes(gomock.Any(), "a").Return(listing(nil, folder("b", "2024")), nil)
	require.NoError(t, nav.EnterFolder(ctx, folder("a", "Archive")))
	mock.EXPECT().FetchNodes(gomock.Any(), "b").Return(listing(nil), nil)
	require.NoError(t, nav.EnterFolder(ctx, folder("b", "2024")))

	mock.EXPECT().FetchNodes(gomock.Any(), "a").Return(listing(nil, folder("b", "2024")), nil)
	require.NoError(t, nav.Back(ctx))

	assert.Equal(t, Position{NodeID: "a", NodeName: "Archive"}, nav.Position())
	assert.Equal(t, 1, nav.HistoryDepth())
	assert.Equal(t, []gallery.BreadcrumbEntry{crumb("a", "Archive")}, nav.Breadcrumbs())
}

func TestBack_ToRootClearsEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)
	nav := sess.Navigation()
	ctx := context.Background()

	entersRoot(t, sess, mock, folder("a", "Archive"))
	mock.EXPECT().FetchNodes(gomock.Any(), "a").Return(listing(nil), nil)
	require.NoError(t, nav.EnterFolder(ctx, folder("a", "Archive")))

	mock.EXPECT().FetchNodes(gomock.Any(), "").Return(listing(nil, folder("a", "Archive")), nil)
	require.NoError(t, nav.Back(ctx))

	assert.Equal(t, Position{}, nav.Position())
	assert.Empty(t, nav.Breadcrumbs())
	assert.Zero(t, nav.HistoryDepth())
}

func TestBack_AtRootIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)

	entersRoot(t, sess, mock)

	// No further fetch expectations: Back must not call the client.
	require.NoError(t, sess.Navigation().Back(context.Background()))
	assert.Equal(t, Position{}, sess.Navigation().Position())
}

func TestOverlappingNavigation_StaleResponseDiscarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)
	nav := sess.Navigation()
	ctx := context.Background()

	entersRoot(t, sess, mock, folder("slow", "Slow"), folder("fast", "Fast"))

	release := make(chan struct{})
	slowStarted := make(chan struct{})

	mock.EXPECT().FetchNodes(gomock.Any(), "slow").
		DoAndReturn(func(context.Context, string) (*gallery.NodesResponse, error) {
			close(slowStarted)
			<-release
			return listing(nil, folder("stale-child", "Stale")), nil
		})
	mock.EXPECT().FetchNodes(gomock.Any(), "fast").
		Return(listing(nil, folder("fresh-child", "Fresh")), nil)

	done := make(chan error, 1)
	go func() {
		done <- nav.EnterFolder(ctx, folder("slow", "Slow"))
	}()

	<-slowStarted
	require.NoError(t, nav.EnterFolder(ctx, folder("fast", "Fast")))

	close(release)
	require.NoError(t, <-done, "superseded navigation is discarded, not failed")

	// The newer navigation wins even though its response arrived first.
	assert.Equal(t, Position{NodeID: "fast", NodeName: "Fast"}, nav.Position())
	require.Len(t, nav.Nodes(), 1)
	assert.Equal(t, "fresh-child", nav.Nodes()[0].ID)
	assert.Equal(t, 1, nav.HistoryDepth())
}

func TestReloadCurrent_RefreshesListingAndPhotos(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess, mock, _ := newTestSession(t, ctrl)
	nav := sess.Navigation()
	ctx := context.Background()

	entersRoot(t, sess, mock, folder("a", "Archive"))
	mock.EXPECT().FetchNodes(gomock.Any(), "a").
		Return(listing(nil, album("al1", "Regionals", 3, 0, true)), nil)
	require.NoError(t, nav.EnterFolder(ctx, folder("a", "Archive")))

	mock.EXPECT().FetchAlbumPhotos(gomock.Any(), "al1").
		Return([]gallery.PhotoRef{photo("p1", 1, true), photo("p2", 2, true)}, nil)
	require.NoError(t, nav.EnterAlbum(ctx, album("al1", "Regionals", 3, 0, true)))

	sess.Selection().SelectAllEligible(nav.Photos())
	require.Equal(t, 2, sess.Selection().Count())

	crumbsBefore := nav.Breadcrumbs()

	// After reload, p2 is gone from the collection. The selection keeps
	// surviving members and drops the rest.
	mock.EXPECT().FetchNodes(gomock.Any(), "a").
		Return(listing(nil, album("al1", "Regionals", 3, 2, true)), nil)
	mock.EXPECT().FetchAlbumPhotos(gomock.Any(), "al1").
		Return([]gallery.PhotoRef{photo("p1", 1, true)}, nil)
	require.NoError(t, nav.ReloadCurrent(ctx))

	assert.Equal(t, crumbsBefore, nav.Breadcrumbs())
	assert.True(t, nav.Position().InAlbum)
	assert.Equal(t, []string{"p1"}, sess.Selection().IDs())
}

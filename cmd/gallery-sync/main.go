package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/jwhitmore/gallery-sync/gallery"
	"github.com/jwhitmore/gallery-sync/internal/config"
	apperrors "github.com/jwhitmore/gallery-sync/internal/errors"
	"github.com/jwhitmore/gallery-sync/internal/logging"
	"github.com/jwhitmore/gallery-sync/internal/session"
	"github.com/jwhitmore/gallery-sync/internal/settings"
	"github.com/jwhitmore/gallery-sync/internal/state"
	"golang.org/x/sync/errgroup"
)

var Version = "dev"

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)
	logger.Info("gallery-sync starting",
		slog.String("version", Version),
		slog.String("server", cfg.ServerURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appState, err := state.Load()
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer appState.Close()

	prefs, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	client := gallery.NewClient(cfg.ServerURL, nil)

	token, err := authenticate(ctx, client, cfg, appState, logger)
	if err != nil {
		return err
	}
	client.SetToken(token)

	ui := newConsoleUI(prefs, client.SearchAlbums)
	sess := session.New(client, ui.hooks(), logger)

	if err := sess.Navigation().EnterRoot(ctx); err != nil {
		return fmt.Errorf("loading root listing: %w", err)
	}

	resumeLastAlbum(ctx, sess, appState, prefs, logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.EnableEvents {
		feed := gallery.NewEventFeed(cfg.EventsURL(), token, cfg.DeviceName, func(ev gallery.Event) {
			sess.HandleEvent(gctx, ev)
		}, logger)

		g.Go(func() error {
			return feed.Run(gctx)
		})
	}

	g.Go(func() error {
		defer stop()
		return repl(gctx, sess, ui)
	})

	err = g.Wait()

	savePosition(sess, appState, logger)

	return err
}

// authenticate tries the cached token first, then signs in fresh with the
// configured credentials. A fresh token is cached for the next run.
func authenticate(ctx context.Context, client *gallery.Client, cfg *config.Config, appState *state.State, logger *slog.Logger) (string, error) {
	if token := appState.Token(); token != "" {
		logger.Debug("trying cached token")
		client.SetToken(token)

		if _, err := client.FetchNodes(ctx, ""); err == nil {
			logger.Info("authenticated with cached token")
			return token, nil
		}

		client.SetToken("")
		logger.Debug("cached token expired, signing in fresh")
	}

	if cfg.Email == "" || cfg.Password == "" {
		return "", fmt.Errorf("%w: no cached session, set GALLERY_EMAIL and GALLERY_PASSWORD", apperrors.ErrInvalidCredentials)
	}

	logger.Info("signing in", slog.String("email", cfg.Email))

	token, err := client.Signin(ctx, cfg.Email, cfg.Password)
	if err != nil {
		return "", fmt.Errorf("signing in: %w", err)
	}

	if err := appState.SetToken(token); err != nil {
		logger.Warn("failed to cache token", slog.String("error", err.Error()))
	}

	return token, nil
}

// resumeLastAlbum re-opens the album the previous session ended in.
// Best-effort: any failure just leaves the user at root.
func resumeLastAlbum(ctx context.Context, sess *session.Session, appState *state.State, prefs settings.Settings, logger *slog.Logger) {
	if !prefs.ResumeLastAlbum {
		return
	}

	pos, err := appState.LastPosition()
	if err != nil || pos == nil || pos.AlbumID == "" {
		return
	}

	if err := sess.OpenAlbumDirect(ctx, pos.AlbumID, pos.Name); err != nil {
		logger.Debug("could not resume last album",
			slog.String("album_id", pos.AlbumID),
			slog.String("error", err.Error()),
		)
	}
}

func savePosition(sess *session.Session, appState *state.State, logger *slog.Logger) {
	pos := sess.Navigation().Position()

	saved := state.LastPosition{NodeID: pos.NodeID}
	if pos.InAlbum {
		saved.AlbumID = pos.AlbumID
		saved.Name = pos.AlbumName
	}

	if err := appState.SetLastPosition(saved); err != nil {
		logger.Warn("failed to save position", slog.String("error", err.Error()))
	}
}

// consoleUI renders session state to stdout and remembers the latest
// listings so commands can address entries by index.
type consoleUI struct {
	prefs      settings.Settings
	search     func(ctx context.Context, query string) ([]gallery.Node, error)
	confirmAll bool

	mu     sync.Mutex
	nodes  []gallery.Node
	crumbs []gallery.BreadcrumbEntry
	photos []gallery.PhotoRef
}

func newConsoleUI(prefs settings.Settings, search func(ctx context.Context, query string) ([]gallery.Node, error)) *consoleUI {
	return &consoleUI{prefs: prefs, search: search}
}

func (u *consoleUI) hooks() session.Hooks {
	return session.Hooks{
		NodesChanged:     u.renderNodes,
		PhotosChanged:    u.renderPhotos,
		SelectionChanged: u.renderSelection,
		BatchProgress:    u.renderBatchProgress,
		Error:            u.renderError,
	}
}

func (u *consoleUI) renderNodes(nodes []gallery.Node, crumbs []gallery.BreadcrumbEntry) {
	u.mu.Lock()
	u.nodes = nodes
	u.crumbs = crumbs
	u.mu.Unlock()

	var path []string
	for _, c := range crumbs {
		path = append(path, c.Name)
	}

	fmt.Printf("\n/%s\n", strings.Join(path, "/"))

	for i, n := range nodes {
		if n.Kind == gallery.NodeAlbum {
			synced := " "
			if n.IsSynced {
				synced = "s"
			}
			fmt.Printf("  %2d  [%s] %s (%d photos, %d processed)\n", i, synced, n.Name, n.PhotoCount, n.ProcessedCount)
			continue
		}

		fmt.Printf("  %2d  %s/\n", i, n.Name)
	}
}

func (u *consoleUI) renderPhotos(photos []gallery.PhotoRef) {
	u.mu.Lock()
	u.photos = photos
	u.mu.Unlock()

	fmt.Printf("  %d photos:\n", len(photos))

	for i, p := range photos {
		mark := " "
		if p.IsSynced {
			mark = "s"
		}
		fmt.Printf("  %3d  [%s] %s (%s)\n", i, mark, p.RemoteID, p.Status)
	}
}

func (u *consoleUI) renderSelection(count int) {
	fmt.Printf("  selected: %d\n", count)
}

func (u *consoleUI) renderBatchProgress(processed, total int) {
	fmt.Printf("  batch: %d/%d\n", processed, total)
}

func (u *consoleUI) renderError(kind, message string) {
	fmt.Printf("  ! %s: %s\n", kind, message)
}

func (u *consoleUI) nodeAt(index int) (gallery.Node, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if index < 0 || index >= len(u.nodes) {
		return gallery.Node{}, false
	}

	return u.nodes[index], true
}

func (u *consoleUI) photoAt(index int) (gallery.PhotoRef, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if index < 0 || index >= len(u.photos) {
		return gallery.PhotoRef{}, false
	}

	return u.photos[index], true
}

// repl is the line-oriented command loop. It is deliberately thin glue:
// the session exposes methods and emits render hooks, and this loop only
// translates lines into calls.
func repl(ctx context.Context, sess *session.Session, ui *consoleUI) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: ls, cd N, open N, back, crumb N, root, find Q, sel N, unsel N, all, none, sync, process, quit")

	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		cmd := fields[0]
		arg := -1
		rest := strings.Join(fields[1:], " ")
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil {
				arg = v
			}
		}

		if err := dispatch(ctx, sess, ui, cmd, arg, rest); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			// Session errors were already surfaced through the Error
			// hook; anything else is command-level feedback.
			if !surfacedBySession(err) {
				fmt.Printf("  ! %v\n", err)
			}
		}
	}
}

var errQuit = errors.New("quit")

func surfacedBySession(err error) bool {
	return errors.Is(err, apperrors.ErrDirectoryFetch) ||
		errors.Is(err, apperrors.ErrBatchRefused) ||
		errors.Is(err, apperrors.ErrBatchFailed) ||
		errors.Is(err, apperrors.ErrContextRestore) ||
		errors.Is(err, apperrors.ErrAPIRequest) ||
		errors.Is(err, apperrors.ErrAPIResponse)
}

func dispatch(ctx context.Context, sess *session.Session, ui *consoleUI, cmd string, arg int, rest string) error {
	nav := sess.Navigation()

	switch cmd {
	case "quit", "exit":
		return errQuit

	case "ls":
		ui.renderNodes(nav.Nodes(), nav.Breadcrumbs())
		if nav.Position().InAlbum {
			ui.renderPhotos(nav.Photos())
		}
		return nil

	case "cd":
		node, ok := ui.nodeAt(arg)
		if !ok {
			return fmt.Errorf("no entry %d", arg)
		}
		return nav.EnterFolder(ctx, node)

	case "open":
		node, ok := ui.nodeAt(arg)
		if !ok {
			return fmt.Errorf("no entry %d", arg)
		}
		return nav.EnterAlbum(ctx, node)

	case "back":
		return nav.Back(ctx)

	case "crumb":
		return nav.GoToBreadcrumb(ctx, arg)

	case "root":
		return nav.EnterRoot(ctx)

	case "sel":
		photo, ok := ui.photoAt(arg)
		if !ok {
			return fmt.Errorf("no photo %d", arg)
		}
		return sess.Selection().Select(photo.RemoteID, nav.Photos())

	case "unsel":
		photo, ok := ui.photoAt(arg)
		if !ok {
			return fmt.Errorf("no photo %d", arg)
		}
		sess.Selection().Toggle(photo.RemoteID, false, nav.Photos())
		return nil

	case "all":
		photos := nav.Photos()
		if t := ui.prefs.SelectAllThreshold; t > 0 && len(photos) > t && !ui.confirmAll {
			ui.confirmAll = true
			fmt.Printf("  selecting from %d photos, repeat 'all' to confirm\n", len(photos))
			return nil
		}
		ui.confirmAll = false
		count := sess.Selection().SelectAllEligible(photos)
		fmt.Printf("  %d selected\n", count)
		return nil

	case "none":
		sess.Selection().Clear()
		return nil

	case "find":
		if rest == "" {
			return fmt.Errorf("usage: find <query>")
		}
		results, err := ui.search(ctx, rest)
		if err != nil {
			return err
		}
		// Results replace the listing so open/cd can address them by index.
		ui.renderNodes(results, nav.Breadcrumbs())
		return nil

	case "sync":
		res, err := sess.SyncCurrentAlbum(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  synced %q: %d photos\n", res.AlbumName, res.SyncedPhotoCount)
		return nil

	case "process":
		res, err := sess.ProcessSelected(ctx)
		if err != nil {
			return err
		}
		if res.Processed < res.Total {
			fmt.Printf("  processed %d/%d, %d failed\n", res.Processed, res.Total, res.Total-res.Processed)
		} else {
			fmt.Printf("  processed %d/%d\n", res.Processed, res.Total)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

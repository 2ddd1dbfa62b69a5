package session

import "github.com/jwhitmore/gallery-sync/gallery"

// resolveBreadcrumbs builds the trail after descending into a folder.
// A server-reported path is the source of truth when present; otherwise
// one entry for the entered node is appended locally, since servers that
// omit the path only do so at root. Ordering is root-first and the last
// entry always matches the node just entered.
func resolveBreadcrumbs(prev []gallery.BreadcrumbEntry, entered gallery.Node, server []gallery.BreadcrumbEntry) []gallery.BreadcrumbEntry {
	if server != nil {
		return dedupeAdjacent(server)
	}

	entry := gallery.BreadcrumbEntry{NodeID: entered.ID, Name: entered.Name}

	if len(prev) > 0 && prev[len(prev)-1].NodeID == entry.NodeID {
		return append([]gallery.BreadcrumbEntry(nil), prev...)
	}

	out := make([]gallery.BreadcrumbEntry, 0, len(prev)+1)
	out = append(out, prev...)

	return append(out, entry)
}

// dedupeAdjacent collapses consecutive entries sharing an id, guarding
// against redundant server data.
func dedupeAdjacent(crumbs []gallery.BreadcrumbEntry) []gallery.BreadcrumbEntry {
	out := make([]gallery.BreadcrumbEntry, 0, len(crumbs))

	for _, c := range crumbs {
		if len(out) > 0 && out[len(out)-1].NodeID == c.NodeID {
			continue
		}

		out = append(out, c)
	}

	return out
}

// folderCrumbs strips the trailing album excursion from the trail, if the
// position is inside one. The result is the pure folder path.
func folderCrumbs(crumbs []gallery.BreadcrumbEntry, pos Position) []gallery.BreadcrumbEntry {
	if pos.InAlbum && len(crumbs) > 0 {
		return append([]gallery.BreadcrumbEntry(nil), crumbs[:len(crumbs)-1]...)
	}

	return append([]gallery.BreadcrumbEntry(nil), crumbs...)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"github.com/go-chi/chi/v5"
	"tangled.sh/tangled.sh/notifications/notification"
	"tangled.sh/tangled.sh/notifications/pagination"
)

// set at build time with -ldflags "-X .../server.version=..."
var version string

const maxBodyBytes = 64 << 10

func (h *Handle) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("pong"))
}

func Version() string {
	if version != "" {
		return version
	}
	return versioninfo.Short()
}

func (h *Handle) Version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "notifyd/%s", Version())
}

func username(r *http.Request) (string, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "username"))
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

// FetchNotifications serves one page of a user's notifications, newest
// first. A request without a Range header reads the first page, which
// also marks everything newer than the user's cursor as unseen and moves
// the cursor up to the newest notification.
func (h *Handle) FetchNotifications(w http.ResponseWriter, r *http.Request) {
	name, ok := username(r)
	if !ok {
		http.Error(w, "invalid username", http.StatusBadRequest)
		return
	}
	l := h.logger(r).With("handler", "FetchNotifications", "username", name)

	rng := pagination.RangeHeader{Field: "id"}
	raw := r.Header.Get(pagination.HeaderRange)
	firstPage := raw == ""
	if !firstPage {
		var err error
		rng, err = pagination.ParseRange(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if rng.Field != "id" {
			http.Error(w, fmt.Sprintf("cannot range over %q", rng.Field), http.StatusBadRequest)
			return
		}
	}
	rng = rng.Clamp(h.c.Page.DefaultLimit, h.c.Page.MaxLimit)

	items, err := h.notifications.Fetch(r.Context(), name)
	if err != nil {
		l.Error("fetching notifications", "err", err)
		http.Error(w, "failed to fetch notifications", http.StatusInternalServerError)
		return
	}

	if firstPage {
		h.markUnseen(r.Context(), l, name, items)
	}

	page, next := pagination.Paginate(items, rng, notification.ID)

	status := http.StatusOK
	if next != nil {
		w.Header().Set(pagination.HeaderNextRange, next.String())
		status = http.StatusPartialContent
	}
	writeJSON(w, status, page)
}

// markUnseen flags items newer than the stored cursor and advances it. A
// failing cursor store is logged and leaves the items as they are.
func (h *Handle) markUnseen(ctx context.Context, l *slog.Logger, name string, items []notification.Notification) {
	if len(items) == 0 {
		return
	}

	last, ok, err := h.cursors.Fetch(ctx, name, CursorStream)
	if err != nil {
		l.Warn("not marking unseen notifications", "err", err)
		return
	}

	for i := range items {
		if !ok || items[i].ID > last {
			items[i].Unseen = true
		}
	}

	newest := items[0].ID
	if ok && newest <= last {
		return
	}
	if err := h.cursors.Store(ctx, name, CursorStream, newest); err != nil {
		l.Warn("failed to advance cursor", "newest", newest, "err", err)
	}
}

func (h *Handle) StoreNotification(w http.ResponseWriter, r *http.Request) {
	name, ok := username(r)
	if !ok {
		http.Error(w, "invalid username", http.StatusBadRequest)
		return
	}
	l := h.logger(r).With("handler", "StoreNotification", "username", name)

	var n notification.Notification
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&n); err != nil {
		http.Error(w, "invalid notification: "+err.Error(), http.StatusBadRequest)
		return
	}

	stored, err := h.notifications.Store(r.Context(), name, n)
	if errors.Is(err, notification.ErrEmptyMessage) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		l.Error("storing notification", "err", err)
		http.Error(w, "failed to store notification", http.StatusInternalServerError)
		return
	}

	l.Debug("stored notification", "id", stored.ID)
	w.Header().Set("Location", r.URL.Path)
	writeJSON(w, http.StatusCreated, stored)
}

// DeleteNotifications removes the ids listed in the ids query parameter,
// or everything, cursor included, when there is none.
func (h *Handle) DeleteNotifications(w http.ResponseWriter, r *http.Request) {
	name, ok := username(r)
	if !ok {
		http.Error(w, "invalid username", http.StatusBadRequest)
		return
	}
	l := h.logger(r).With("handler", "DeleteNotifications", "username", name)

	raw := r.URL.Query().Get("ids")
	if raw == "" {
		if err := h.notifications.RemoveAll(r.Context(), name); err != nil {
			l.Error("removing notifications", "err", err)
			http.Error(w, "failed to delete notifications", http.StatusInternalServerError)
			return
		}
		if err := h.cursors.Delete(r.Context(), name, CursorStream); err != nil {
			http.Error(w, "failed to delete cursor", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ids, err := parseIDs(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	removed, err := h.notifications.Remove(r.Context(), name, ids)
	if err != nil {
		l.Error("removing notifications", "err", err)
		http.Error(w, "failed to delete notifications", http.StatusInternalServerError)
		return
	}
	l.Debug("removed notifications", "requested", len(ids), "removed", removed)
	w.WriteHeader(http.StatusNoContent)
}

func parseIDs(raw string) ([]uint64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no ids given")
	}
	return ids, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to serialize JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

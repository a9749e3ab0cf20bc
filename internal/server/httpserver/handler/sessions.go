package handler

import (
	"net/http"
	"sort"

	"github.com/yndnr/snapcoord/internal/core/domain"
)

// handleListSessions handles GET /v1/sessions.
//
// Query parameters:
//   - phase: only sessions in this phase (pending, dispatched, prepared)
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	phase := r.URL.Query().Get("phase")
	if phase != "" && !livePhase(phase) {
		h.handleServiceError(w, r, domain.ErrInvalidRequest.WithDetailsf("unknown phase %q", phase))
		return
	}

	views := h.sessions.Sessions()
	items := make([]domain.SessionView, 0, len(views))
	for _, v := range views {
		if phase != "" && v.Phase.String() != phase {
			continue
		}
		items = append(items, v)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	h.writeJSON(w, r, http.StatusOK, &ListSessionsResponse{
		Items: items,
		Total: len(items),
	})
}

func livePhase(name string) bool {
	for _, p := range []domain.Phase{domain.PhasePending, domain.PhaseDispatched, domain.PhasePrepared} {
		if p.String() == name {
			return true
		}
	}
	return false
}

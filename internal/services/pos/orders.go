package pos

import (
	"net/http"
	"strconv"

	"cafe-pos/internal/models"
)

type statusChangeRequest struct {
	ChangedBy string `json:"changed_by"`
	Reason    string `json:"reason"`
}

func (s *Server) listCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Items())
}

func (s *Server) listAttendants(w http.ResponseWriter, r *http.Request) {
	out := []map[string]interface{}{}
	for _, a := range s.attendants.List() {
		out = append(out, map[string]interface{}{
			"id":           a.ID,
			"first_name":   a.FirstName,
			"last_name":    a.LastName,
			"display_name": a.DisplayName(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// getQueue serves one page of processing orders. A missing page means the
// first one; out of range pages are clamped.
func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	n := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, models.NewValidationError("page", "must be an integer"))
			return
		}
		n = v
	}
	page, err := s.queue.Page(r.Context(), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) statusChange(w http.ResponseWriter, r *http.Request, apply func(id int64, req statusChangeRequest) error) {
	id, err := orderID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := apply(id, req); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := s.tracking.GetOrderStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) markReady(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, func(id int64, req statusChangeRequest) error {
		return s.orders.MarkReady(r.Context(), id, req.ChangedBy)
	})
}

func (s *Server) markServed(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, func(id int64, req statusChangeRequest) error {
		return s.orders.MarkServed(r.Context(), id, req.ChangedBy)
	})
}

func (s *Server) cancelOrderStatus(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, func(id int64, req statusChangeRequest) error {
		return s.orders.Cancel(r.Context(), id, req.ChangedBy, req.Reason)
	})
}

func (s *Server) orderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := s.tracking.GetOrderStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) orderHistory(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := s.tracking.GetOrderHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) listReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, models.NewValidationError("limit", "must be an integer"))
			return
		}
		limit = v
	}
	receipts, err := s.tracking.ListReceipts(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) baristaStatus(w http.ResponseWriter, r *http.Request) {
	baristas, err := s.tracking.GetBaristaStatus(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, baristas)
}

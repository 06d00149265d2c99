package pos

import (
	"net/http"

	"cafe-pos/internal/models"
	"cafe-pos/internal/services/checkout"
)

type selectItemRequest struct {
	ItemID int64 `json:"item_id"`
}

type confirmRequest struct {
	Customization *models.Customization `json:"customization"`
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

type attendantRequest struct {
	AttendantID int64 `json:"attendant_id"`
}

type keyRequest struct {
	Key string `json:"key"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session(r).View())
}

// sessionView answers a mutating call with the resulting session.
func (s *Server) sessionView(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session(r).View())
}

func (s *Server) selectItem(w http.ResponseWriter, r *http.Request) {
	var req selectItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ItemID <= 0 {
		writeError(w, r, models.NewValidationError("item_id", "item_id is required"))
		return
	}
	draft, err := s.session(r).SelectItem(req.ItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// confirmAdd adds the open draft. Without a customization in the body the
// draft's current values are used.
func (s *Server) confirmAdd(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess := s.session(r)
	custom := req.Customization
	if custom == nil {
		draft := sess.View().Draft
		if draft == nil {
			writeError(w, r, models.NewValidationError("draft", "no item selected"))
			return
		}
		custom = &draft.Customization
	}
	line, err := sess.ConfirmAdd(*custom)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (s *Server) cancelDraft(w http.ResponseWriter, r *http.Request) {
	s.sessionView(w, r, s.session(r).CancelDraft())
}

func (s *Server) removeLine(w http.ResponseWriter, r *http.Request) {
	index, err := intParam(r, "index")
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.sessionView(w, r, s.session(r).RemoveLine(index))
}

func (s *Server) changeQuantity(w http.ResponseWriter, r *http.Request) {
	index, err := intParam(r, "index")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s.sessionView(w, r, s.session(r).ChangeQuantity(index, req.Delta))
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	s.sessionView(w, r, s.session(r).CancelOrder())
}

func (s *Server) selectAttendant(w http.ResponseWriter, r *http.Request) {
	var req attendantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	_, err := s.session(r).SelectAttendant(req.AttendantID)
	s.sessionView(w, r, err)
}

func (s *Server) clearAttendant(w http.ResponseWriter, r *http.Request) {
	s.sessionView(w, r, s.session(r).ClearAttendant())
}

func (s *Server) beginCash(w http.ResponseWriter, r *http.Request) {
	quote, err := s.session(r).BeginCash()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) pressKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	quote, err := s.session(r).PressKey(req.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) commitCash(w http.ResponseWriter, r *http.Request) {
	result, err := s.session(r).CommitCash(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) beginQR(w http.ResponseWriter, r *http.Request) {
	view, err := s.session(r).BeginQR(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) cancelPayment(w http.ResponseWriter, r *http.Request) {
	s.sessionView(w, r, s.session(r).CancelPayment())
}

type callbackRequest struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// paymentCallback receives intent outcomes. A reference no terminal is
// waiting on belongs to an order committed earlier, so a late succeeded or a
// refund is written to its receipt instead.
func (s *Server) paymentCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Reference == "" {
		writeError(w, r, models.NewValidationError("reference", "reference is required"))
		return
	}

	requestID := requestIDOf(r)
	if req.Status == models.ReceiptRefunded {
		s.settle(w, r, req)
		return
	}
	if !checkout.Outcome(req.Status).Valid() {
		writeError(w, r, models.NewValidationError("status", "status must be succeeded, cancelled or refunded"))
		return
	}

	res, err := s.checkout.Resolve(r.Context(), req.Reference, checkout.Outcome(req.Status))
	switch {
	case err == nil:
		s.logger.Info("payment_callback_resolved", "Payment callback resolved a waiting terminal", requestID, map[string]interface{}{
			"payment_ref": req.Reference,
			"status":      req.Status,
			"state":       res.State,
		})
		writeJSON(w, http.StatusOK, res)
	case models.ErrorKind(err) == "not_found" && req.Status == models.ReceiptSucceeded:
		s.settle(w, r, req)
	default:
		writeError(w, r, err)
	}
}

func (s *Server) settle(w http.ResponseWriter, r *http.Request, req callbackRequest) {
	if err := s.orders.SettleReceipt(r.Context(), req.Reference, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	s.logger.Info("receipt_settled", "Late payment outcome written to receipt", requestIDOf(r), map[string]interface{}{
		"payment_ref": req.Reference,
		"status":      req.Status,
	})
	writeJSON(w, http.StatusOK, map[string]string{"reference": req.Reference, "payment_status": req.Status})
}

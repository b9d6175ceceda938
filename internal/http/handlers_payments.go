package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"cuotas/internal/core"
	"cuotas/internal/services"
)

// handlePayments lists recorded payments and accepts new ones.
func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderPayments(w, r)
	case http.MethodPost:
		s.recordPayment(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderPayments(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	payments, err := s.ledger.All(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Payment list error", "error", err)
		http.Error(w, "failed to load payments", http.StatusInternalServerError)
		return
	}
	members, err := s.directory.List(r.Context(), services.ActiveOnly)
	if err != nil {
		slog.ErrorContext(r.Context(), "Member list error", "error", err)
		http.Error(w, "failed to load members", http.StatusInternalServerError)
		return
	}
	fees, err := s.schedule.ListAll(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Fee schedule list error", "error", err)
		http.Error(w, "failed to load fee schedule", http.StatusInternalServerError)
		return
	}

	type paymentView struct {
		ID         int64
		MemberName string
		Month      string
		Amount     string
		RecordedAt string
	}
	type memberOption struct {
		ID   int64
		Name string
	}
	data := struct {
		Payments []paymentView
		Members  []memberOption
		Months   []string
	}{}
	for _, p := range payments {
		data.Payments = append(data.Payments, paymentView{
			ID:         p.ID,
			MemberName: p.MemberName,
			Month:      p.Month.String(),
			Amount:     p.Amount.Format(),
			RecordedAt: p.RecordedAt.Format("2006-01-02 15:04"),
		})
	}
	for _, m := range members {
		data.Members = append(data.Members, memberOption{ID: m.ID, Name: m.Name})
	}
	for _, f := range fees {
		data.Months = append(data.Months, f.Month.String())
	}

	if err := s.templates.ExecuteTemplate(w, "payments.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Payments template execution failed", "error", err, "template", "payments.html")
	}
}

func (s *Server) recordPayment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	memberID, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("member_id")), 10, 64)
	if err != nil || memberID <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid member id</div>`))
		return
	}
	month, err := core.ParseMonth(strings.TrimSpace(r.Form.Get("month")))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payment, err := s.ledger.Record(r.Context(), memberID, month)
	if err != nil {
		slog.WarnContext(r.Context(), "Payment rejected",
			"member_id", memberID, "month", month.String(), "error", err)
		writeDomainError(w, err)
		return
	}

	s.structured.LogPaymentRecorded(r.Context(), payment.ID, memberID, month.String(), payment.Amount.Cents)
	s.invalidatePanel()
	http.Redirect(w, r, "/payments", http.StatusSeeOther)
}

// handleDeletePayment removes a payment. Deleting an already-deleted payment
// succeeds; double-submitted forms are not user errors.
func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("id")), 10, 64)
	if err != nil || id <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid payment id</div>`))
		return
	}

	if err := s.ledger.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Payment delete error", "payment_id", id, "error", err)
		writeDomainError(w, err)
		return
	}

	s.invalidatePanel()
	http.Redirect(w, r, "/payments", http.StatusSeeOther)
}

// handleSchedule lists the fee schedule and accepts amount edits.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderSchedule(w, r)
	case http.MethodPost:
		s.setFee(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderSchedule(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	fees, err := s.schedule.ListAll(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Fee schedule list error", "error", err)
		http.Error(w, "failed to load fee schedule", http.StatusInternalServerError)
		return
	}

	type feeView struct {
		Month  string
		Amount string
	}
	data := struct{ Fees []feeView }{}
	for _, f := range fees {
		data.Fees = append(data.Fees, feeView{Month: f.Month.String(), Amount: f.Amount.Format()})
	}

	if err := s.templates.ExecuteTemplate(w, "schedule.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Schedule template execution failed", "error", err, "template", "schedule.html")
	}
}

func (s *Server) setFee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	month, err := core.ParseMonth(strings.TrimSpace(r.Form.Get("month")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.schedule.Set(r.Context(), month, core.Money{Cents: cents}); err != nil {
		slog.WarnContext(r.Context(), "Fee schedule edit rejected",
			"month", month.String(), "error", err)
		writeDomainError(w, err)
		return
	}

	s.invalidatePanel()
	http.Redirect(w, r, "/schedule", http.StatusSeeOther)
}

// handleReceipt renders a single payment receipt as HTML, or JSON with
// ?format=json for the external receipt renderer.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/receipts/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}

	receipt, err := s.query.ReceiptData(r.Context(), id)
	if err != nil {
		slog.WarnContext(r.Context(), "Receipt lookup failed", "payment_id", id, "error", err)
		writeDomainError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		payload := struct {
			PaymentID   int64   `json:"payment_id"`
			MemberName  string  `json:"member_name"`
			Month       string  `json:"month"`
			Amount      float64 `json:"amount"`
			AmountCents int64   `json:"amount_cents"`
			RecordedAt  string  `json:"recorded_at"`
		}{
			PaymentID:   receipt.PaymentID,
			MemberName:  receipt.MemberName,
			Month:       receipt.Month.String(),
			Amount:      receipt.Amount.Units(),
			AmountCents: receipt.Amount.Cents,
			RecordedAt:  receipt.RecordedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.ErrorContext(r.Context(), "Receipt JSON encode failed", "payment_id", id, "error", err)
		}
		return
	}

	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	data := struct {
		PaymentID  int64
		MemberName string
		Month      string
		Amount     string
		RecordedAt string
	}{
		PaymentID:  receipt.PaymentID,
		MemberName: receipt.MemberName,
		Month:      receipt.Month.String(),
		Amount:     receipt.Amount.Format(),
		RecordedAt: receipt.RecordedAt.Format("2006-01-02 15:04"),
	}
	if err := s.templates.ExecuteTemplate(w, "receipt.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Receipt template execution failed", "error", err, "template", "receipt.html")
	}
}

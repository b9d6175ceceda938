package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"cuotas/internal/core"
	applog "cuotas/internal/log"
)

// handleLogin renders the login form and checks submitted credentials.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.enabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.renderLogin(w, r, "", http.StatusOK)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		user := strings.TrimSpace(r.Form.Get("user"))
		password := r.Form.Get("password")

		token, ok := s.sessions.login(user, password)
		if !ok {
			s.logger.WarnContext(r.Context(), "Login failed",
				"user", user,
				applog.FieldOperation, applog.OpLogin,
				"error_type", applog.ErrorTypeAuth)
			s.renderLogin(w, r, "Invalid credentials", http.StatusUnauthorized)
			return
		}

		s.logger.InfoContext(r.Context(), "Login succeeded",
			"user", user,
			applog.FieldOperation, applog.OpLogin)
		setSessionCookie(w, token, s.sessions.ttl)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, errMsg string, status int) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	data := struct{ Error string }{Error: errMsg}
	if err := s.templates.ExecuteTemplate(w, "login.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Login template execution failed", "error", err)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.sessions.destroy(cookie.Value)
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type panelRowView struct {
	MemberID int64
	Name     string
	Balance  string
	Overdue  bool
	Cells    []bool
}

type panelSection struct {
	Label string
	Rows  []panelRowView
}

// handlePanel renders the paid/unpaid matrix for every active member,
// optionally filtered to one cuadro.
func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			"error_type", applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var filter core.Group
	if v := strings.TrimSpace(r.URL.Query().Get("cuadro")); v != "" {
		filter = core.ParseGroup(v)
	}

	snap, err := s.getSnapshot(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Panel snapshot error", "error", err)
		http.Error(w, "failed to load panel", http.StatusInternalServerError)
		return
	}

	months := make([]string, 0, len(snap.Months))
	for _, m := range snap.Months {
		months = append(months, m.String())
	}

	var sections []panelSection
	for _, g := range core.Groups() {
		rows, ok := snap.Groups[g]
		if !ok {
			continue
		}
		section := panelSection{Label: g.Label()}
		for _, row := range rows {
			view := panelRowView{
				MemberID: row.Member.ID,
				Name:     row.Member.Name,
				Balance:  row.Balance.Format(),
				Overdue:  row.Balance.Cents > 0,
				Cells:    make([]bool, 0, len(snap.Months)),
			}
			for _, m := range snap.Months {
				view.Cells = append(view.Cells, row.Paid[m])
			}
			section.Rows = append(section.Rows, view)
		}
		sections = append(sections, section)
	}

	type groupOption struct {
		Value, Label string
		Selected     bool
	}
	data := struct {
		Months   []string
		Sections []panelSection
		Filter   string
		Groups   []groupOption
	}{
		Months:   months,
		Sections: sections,
		Filter:   filter.String(),
	}
	for _, g := range core.Groups() {
		data.Groups = append(data.Groups, groupOption{
			Value:    g.String(),
			Label:    g.Label(),
			Selected: g == filter,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "panel.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Panel template execution failed", "error", err, "template", "panel.html")
	}
}

// writeDomainError maps domain errors to HTTP statuses with a small HTML
// fragment, mirroring how form posts report failures.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "Internal error"
	switch {
	case errors.Is(err, core.ErrDuplicatePayment):
		status = http.StatusConflict
		msg = "Payment already recorded for that member and month"
	case errors.Is(err, core.ErrUnknownMonth):
		status = http.StatusUnprocessableEntity
		msg = "Month is not on the fee schedule"
	case errors.Is(err, core.ErrUnknownMember):
		status = http.StatusUnprocessableEntity
		msg = "Unknown member"
	case errors.Is(err, core.ErrInvalidName):
		status = http.StatusUnprocessableEntity
		msg = "Name cannot be empty"
	case errors.Is(err, core.ErrInvalidAmount):
		status = http.StatusUnprocessableEntity
		msg = "Amount must be a positive number"
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		msg = "Not found"
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

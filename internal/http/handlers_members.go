package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"cuotas/internal/core"
	"cuotas/internal/services"
)

// handleMembers lists the roster and accepts new members.
func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderMembers(w, r)
	case http.MethodPost:
		s.createMember(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderMembers(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	filter := services.ActiveOnly
	if r.URL.Query().Get("all") == "1" {
		filter = services.All
	}

	members, err := s.directory.List(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Member list error", "error", err)
		http.Error(w, "failed to load members", http.StatusInternalServerError)
		return
	}

	type memberView struct {
		ID     int64
		Name   string
		Cuadro string
		Group  string
		Active bool
	}
	type groupOption struct{ Value, Label string }
	data := struct {
		Members    []memberView
		ShowingAll bool
		Groups     []groupOption
	}{ShowingAll: filter == services.All}
	for _, m := range members {
		data.Members = append(data.Members, memberView{
			ID:     m.ID,
			Name:   m.Name,
			Cuadro: m.Group.Label(),
			Group:  m.Group.String(),
			Active: m.Active,
		})
	}
	for _, g := range core.Groups() {
		data.Groups = append(data.Groups, groupOption{Value: g.String(), Label: g.Label()})
	}

	if err := s.templates.ExecuteTemplate(w, "members.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Members template execution failed", "error", err, "template", "members.html")
	}
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	group := core.ParseGroup(r.Form.Get("cuadro"))

	member, err := s.directory.Add(r.Context(), name, group)
	if err != nil {
		slog.WarnContext(r.Context(), "Member add rejected", "error", err)
		writeDomainError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Member created", "member_id", member.ID, "cuadro", group.String())
	s.invalidatePanel()
	http.Redirect(w, r, "/members", http.StatusSeeOther)
}

// handleEditMember updates a member's name and cuadro.
func (s *Server) handleEditMember(w http.ResponseWriter, r *http.Request) {
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
		_, _ = w.Write([]byte(`<div class="error">Invalid member id</div>`))
		return
	}
	name := sanitizeInput(r.Form.Get("name"))
	group := core.ParseGroup(r.Form.Get("cuadro"))

	if err := s.directory.Edit(r.Context(), id, name, group); err != nil {
		slog.WarnContext(r.Context(), "Member edit rejected", "member_id", id, "error", err)
		writeDomainError(w, err)
		return
	}

	s.invalidatePanel()
	http.Redirect(w, r, "/members", http.StatusSeeOther)
}

// handleToggleMember flips a member's active flag. Deactivation is the only
// removal the roster supports; payment history stays attached.
func (s *Server) handleToggleMember(w http.ResponseWriter, r *http.Request) {
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
		_, _ = w.Write([]byte(`<div class="error">Invalid member id</div>`))
		return
	}
	active := r.Form.Get("active") == "1"

	if err := s.directory.SetActive(r.Context(), id, active); err != nil {
		slog.WarnContext(r.Context(), "Member toggle rejected", "member_id", id, "error", err)
		writeDomainError(w, err)
		return
	}

	s.invalidatePanel()
	http.Redirect(w, r, "/members?all=1", http.StatusSeeOther)
}

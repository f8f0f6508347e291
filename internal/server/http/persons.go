package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

// personRequest is the wire form of a create or update body. Birthday is
// accepted as a calendar date ("2006-01-02") or an RFC 3339 timestamp.
type personRequest struct {
	Name         string          `json:"name"`
	LastName     string          `json:"lastName"`
	Gender       string          `json:"gender"`
	Birthday     string          `json:"birthday"`
	NationalCode string          `json:"nationalCode"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email"`
	Photo        []byte          `json:"photo"`
	Address      *models.Address `json:"address"`
}

// parseBirthday returns nil for a blank value. A value in neither layout is
// reported as malformed and left to the validator.
func parseBirthday(s string) (bday *time.Time, malformed bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, false
		}
	}
	return nil, true
}

func (req personRequest) input() models.PersonInput {
	bday, malformed := parseBirthday(req.Birthday)
	in := models.PersonInput{
		Name:              req.Name,
		LastName:          req.LastName,
		Gender:            req.Gender,
		NationalCode:      req.NationalCode,
		Phone:             req.Phone,
		Email:             req.Email,
		Photo:             req.Photo,
		Address:           req.Address,
		BirthdayMalformed: malformed,
	}
	if bday != nil {
		in.Birthday = *bday
	}
	return in
}

func (req personRequest) patch() models.PersonPatch {
	bday, malformed := parseBirthday(req.Birthday)
	return models.PersonPatch{
		Name:              req.Name,
		LastName:          req.LastName,
		Gender:            req.Gender,
		Birthday:          bday,
		NationalCode:      req.NationalCode,
		Phone:             req.Phone,
		Email:             req.Email,
		Photo:             req.Photo,
		Address:           req.Address,
		BirthdayMalformed: malformed,
	}
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.persons.Create(r.Context(), principalFrom(r.Context()).UserID, req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListPersons(w http.ResponseWriter, r *http.Request) {
	list, err := s.persons.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := s.persons.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.persons.Update(r.Context(), principalFrom(r.Context()).UserID, chi.URLParam(r, "id"), req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.persons.Delete(r.Context(), principalFrom(r.Context()).UserID, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	data, err := s.persons.Photo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

package server

import (
	"net/http"

	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/session"
)

type loginView struct {
	Nav      nav
	Username string
	Error    string
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Authenticated {
		http.Redirect(w, r, "/submit", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", loginView{Nav: s.nav(r, "login")})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), s.Logger)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login", loginView{Nav: s.nav(r, "login"), Error: "Formulário inválido"})
		return
	}
	username := r.PostFormValue("username")
	if !s.Gate.Check(username, r.PostFormValue("password")) {
		s.render(w, r, http.StatusUnauthorized, "login", loginView{
			Nav:      s.nav(r, "login"),
			Username: username,
			Error:    "Credenciais inválidas",
		})
		return
	}

	sess := session.FromContext(r.Context())
	sess.Authenticated = true
	if err := s.Sessions.Save(w, sess); err != nil {
		log.Error("http.login.session_error", "error", err)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/submit", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess.PendingImage != "" {
		if img, err := s.Images.Open(sess.PendingImage); err == nil {
			_ = s.Images.Discard(img)
		}
	}
	s.Sessions.Clear(w)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

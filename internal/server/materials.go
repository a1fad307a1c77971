package server

import (
	"net/http"

	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/repository"
)

type materialsView struct {
	Nav       nav
	Materials []string
	Notice    string
	Error     string
}

func (s *Server) materialsForm(w http.ResponseWriter, r *http.Request) {
	s.renderMaterials(w, r, http.StatusOK, "", "")
}

// saveMaterials handles action=add|remove|replace.
func (s *Server) saveMaterials(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), s.Logger)
	if err := r.ParseForm(); err != nil {
		s.renderMaterials(w, r, http.StatusBadRequest, "", "Formulário inválido")
		return
	}
	name := r.PostFormValue("name")

	var (
		notice string
		err    error
	)
	switch r.PostFormValue("action") {
	case "add":
		v := common.NewValidator().Field("name", name, common.Required, common.MaxLength(120))
		if err = v.Error(); err != nil {
			break
		}
		var added bool
		if added, err = s.Materials.Add(name); err == nil {
			notice = "Matéria-prima adicionada"
			if !added {
				notice = "Matéria-prima já cadastrada"
			}
		}
	case "remove":
		var removed bool
		if removed, err = s.Materials.Remove(name); err == nil {
			notice = "Matéria-prima removida"
			if !removed {
				notice = "Matéria-prima não encontrada"
			}
		}
	case "replace":
		if err = s.Materials.Save(repository.ParseMaterials(r.PostFormValue("list"))); err == nil {
			notice = "Lista atualizada"
		}
	default:
		s.renderMaterials(w, r, http.StatusBadRequest, "", "Ação desconhecida")
		return
	}

	if err != nil {
		log.Warn("http.materials.error", "action", r.PostFormValue("action"), "error", err)
		s.renderMaterials(w, r, common.HTTPStatus(err), "", err.Error())
		return
	}
	log.Info("http.materials.ok", "action", r.PostFormValue("action"), "name", name)
	s.renderMaterials(w, r, http.StatusOK, notice, "")
}

func (s *Server) renderMaterials(w http.ResponseWriter, r *http.Request, status int, notice, errMsg string) {
	view := materialsView{Nav: s.nav(r, "materials"), Notice: notice, Error: errMsg}
	names, err := s.Materials.Load()
	if err != nil {
		view.Error = err.Error()
		status = common.HTTPStatus(err)
	}
	view.Materials = names
	s.render(w, r, status, "materials", view)
}

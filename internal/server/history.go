package server

import (
	"net/http"
	"strings"

	"github.com/joseph-ayodele/sheet-extractor/constants"
	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/history"
)

type historyView struct {
	Nav    nav
	Tags   []string
	Filter history.Filter
	Result history.Result
	Error  string
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), s.Logger)
	q := r.URL.Query()
	view := historyView{
		Nav:  s.nav(r, "history"),
		Tags: s.Config.Tags,
		Filter: history.Filter{
			Name: strings.TrimSpace(q.Get("name")),
			Date: strings.TrimSpace(q.Get("date")),
			Tags: constants.FilterTags(s.Config.Tags, q["tags"]),
		},
	}

	v := common.NewValidator().
		Field("name", view.Filter.Name, common.MaxLength(255)).
		Field("date", view.Filter.Date, common.OptionalDate)
	if v.HasErrors() {
		view.Error = v.ErrorMessage()
		view.Result = history.Result{Empty: true}
		s.render(w, r, http.StatusBadRequest, "history", view)
		return
	}

	records, err := s.Ledger.LoadAll(r.Context())
	if err != nil {
		log.Error("http.history.load_error", "error", err)
		view.Error = "Falha ao carregar o histórico"
		view.Result = history.Result{Empty: true}
		s.render(w, r, common.HTTPStatus(err), "history", view)
		return
	}
	view.Result = view.Filter.Apply(records)
	s.render(w, r, http.StatusOK, "history", view)
}

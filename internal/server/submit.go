package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/sheet-extractor/constants"
	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/ingest"
	"github.com/joseph-ayodele/sheet-extractor/internal/pipeline"
	"github.com/joseph-ayodele/sheet-extractor/internal/session"
)

const uploadField = "image"

type submitView struct {
	Nav          nav
	Tags         []string
	Selected     []string
	PersistImage bool
	PendingImage string
	Result       *pipeline.Result
	Error        string
	Detail       string
	Raw          string
}

func (s *Server) submitView(r *http.Request) submitView {
	v := submitView{
		Nav:          s.nav(r, "submit"),
		Tags:         s.Config.Tags,
		PersistImage: s.Config.Features.PersistImage,
	}
	if v.PersistImage {
		v.PendingImage = session.FromContext(r.Context()).PendingImage
	}
	return v
}

func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "submit", s.submitView(r))
}

// preview stores the upload and remembers it in the session so the next
// submit can reuse it without a new upload.
func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), s.Logger)
	view := s.submitView(r)

	img, err := s.readUpload(w, r)
	if err != nil {
		view.Error = uploadFailure(err)
		view.Detail = err.Error()
		s.render(w, r, common.HTTPStatus(err), "submit", view)
		return
	}
	if img == nil {
		view.Error = "Nenhuma imagem enviada"
		s.render(w, r, http.StatusBadRequest, "submit", view)
		return
	}

	sess := session.FromContext(r.Context())
	s.discardPending(log, sess, img.Filename)
	sess.PendingImage = img.Filename
	if err := s.Sessions.Save(w, sess); err != nil {
		log.Error("http.preview.session_error", "error", err)
		_ = s.Images.Discard(img)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/submit", http.StatusSeeOther)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), s.Logger)
	view := s.submitView(r)
	sess := session.FromContext(r.Context())

	upload, err := s.readUpload(w, r)
	if err != nil {
		view.Error = uploadFailure(err)
		view.Detail = err.Error()
		s.render(w, r, common.HTTPStatus(err), "submit", view)
		return
	}
	view.Selected = constants.FilterTags(s.Config.Tags, r.MultipartForm.Value["tags"])

	req := pipeline.Request{Image: upload, OwnsImage: upload != nil, Tags: view.Selected}
	if upload == nil && s.Config.Features.PersistImage && sess.PendingImage != "" {
		pending, err := s.Images.Open(sess.PendingImage)
		if err != nil {
			log.Warn("http.submit.pending_missing", "image", sess.PendingImage, "error", err)
			sess.PendingImage = ""
			_ = s.Sessions.Save(w, sess)
			view.PendingImage = ""
		} else {
			req.Image = pending
		}
	}

	res, err := s.Processor.Process(r.Context(), req)
	if err != nil {
		status, msg := submissionFailure(err)
		view.Error = msg
		view.Detail = err.Error()
		var perr *pipeline.Error
		if errors.As(err, &perr) {
			view.Raw = perr.Raw
		}
		s.render(w, r, status, "submit", view)
		return
	}

	if s.Config.Features.PersistImage && sess.PendingImage != "" {
		if upload != nil {
			s.discardPending(log, sess, "")
		}
		sess.PendingImage = ""
		if err := s.Sessions.Save(w, sess); err != nil {
			log.Warn("http.submit.session_error", "error", err)
		}
		view.PendingImage = ""
	}
	view.Result = res
	s.render(w, r, http.StatusOK, "submit", view)
}

// readUpload returns nil, nil when the form carries no file.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*ingest.StoredImage, error) {
	limit := s.Config.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", "read upload form", errors.Join(common.ErrInvalidInput, err))
	}
	file, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", "read upload", errors.Join(common.ErrInvalidInput, err))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", "read upload", errors.Join(common.ErrInvalidInput, err))
	}
	return s.Images.Store(r.Context(), data, header.Filename)
}

// discardPending removes the session's previewed image unless it is keep.
func (s *Server) discardPending(log *slog.Logger, sess *session.Session, keep string) {
	if sess.PendingImage == "" || sess.PendingImage == keep {
		return
	}
	img, err := s.Images.Open(sess.PendingImage)
	if err != nil {
		return
	}
	if err := s.Images.Discard(img); err != nil {
		log.Warn("http.pending.discard_error", "image", img.Filename, "error", err)
	}
}

func uploadFailure(err error) string {
	if errors.Is(err, common.ErrConflict) {
		return "Outra imagem foi enviada neste mesmo segundo; envie novamente"
	}
	return "Imagem inválida"
}

func submissionFailure(err error) (int, string) {
	var perr *pipeline.Error
	if !errors.As(err, &perr) {
		return common.HTTPStatus(err), "Falha ao processar a imagem"
	}
	switch perr.Status {
	case constants.StatusIngestRejected:
		return http.StatusBadRequest, "Selecione uma imagem antes de enviar"
	case constants.StatusExtractFailed:
		return http.StatusBadGateway, "Falha ao consultar o modelo de visão"
	case constants.StatusParseFailed:
		return http.StatusUnprocessableEntity, "Não foi possível interpretar a resposta como JSON"
	default:
		return http.StatusInternalServerError, "Falha ao salvar a planilha"
	}
}

package server_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/sheet-extractor/internal/auth"
	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/export"
	"github.com/joseph-ayodele/sheet-extractor/internal/ingest"
	"github.com/joseph-ayodele/sheet-extractor/internal/llm"
	"github.com/joseph-ayodele/sheet-extractor/internal/pipeline"
	"github.com/joseph-ayodele/sheet-extractor/internal/repository"
	"github.com/joseph-ayodele/sheet-extractor/internal/server"
	"github.com/joseph-ayodele/sheet-extractor/internal/session"
)

var jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")

type stubExtractor struct {
	raw   string
	err   error
	calls int
}

func (s *stubExtractor) ExtractTable(context.Context, llm.ExtractRequest) (string, error) {
	s.calls++
	return s.raw, s.err
}

type harness struct {
	dir       string
	cfg       *common.Config
	extractor *stubExtractor
	ledger    *repository.JSONLedger
	materials *repository.MaterialRegistry
	ts        *httptest.Server
	client    *http.Client
}

func newHarness(configure func(*common.Config)) *harness {
	dir := GinkgoT().TempDir()
	cfg := common.Defaults()
	cfg.Auth.Username, cfg.Auth.Password = "operador", "s3nha"
	cfg.LLM.APIKey = "unused"
	cfg.Storage.ImagesDir = filepath.Join(dir, "imagens")
	cfg.Storage.SheetsDir = filepath.Join(dir, "planilhas")
	cfg.Storage.LedgerPath = filepath.Join(dir, "metadados.json")
	cfg.Storage.MaterialsPath = filepath.Join(dir, "materias_primas.txt")
	if configure != nil {
		configure(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		dir:       dir,
		cfg:       cfg,
		extractor: &stubExtractor{raw: "```json\n[{\"hora\":\"07:11\",\"materia_prima\":\"CMK\",\"quantidade\":\"50\"}]\n```"},
		ledger:    repository.NewJSONLedger(cfg.Storage.LedgerPath, logger),
	}
	Expect(h.ledger.EnsureFile()).To(Succeed())

	images := ingest.NewIngestor(cfg.Storage.ImagesDir, logger)
	exporter := export.NewService(cfg.Storage.SheetsDir, logger)
	var source pipeline.MaterialSource
	if cfg.Features.Materials {
		h.materials = repository.NewMaterialRegistry(cfg.Storage.MaterialsPath, logger)
		source = h.materials
	}

	srv, err := server.New(server.Deps{
		Config:    cfg,
		Gate:      auth.NewGate(cfg.Auth.Username, cfg.Auth.Password, logger),
		Sessions:  session.NewManager("test-secret", cfg.Session.CookieName, false, logger),
		Images:    images,
		Exporter:  exporter,
		Ledger:    h.ledger,
		Materials: h.materials,
		Processor: pipeline.NewProcessor(logger, h.extractor, exporter, h.ledger, images, source),
		Logger:    logger,
	})
	Expect(err).NotTo(HaveOccurred())

	h.ts = httptest.NewServer(srv.Router())
	DeferCleanup(h.ts.Close)

	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	h.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return h
}

func (h *harness) get(path string) (*http.Response, string) {
	resp, err := h.client.Get(h.ts.URL + path)
	Expect(err).NotTo(HaveOccurred())
	return resp, readBody(resp)
}

func (h *harness) postForm(path string, form url.Values) (*http.Response, string) {
	resp, err := h.client.PostForm(h.ts.URL+path, form)
	Expect(err).NotTo(HaveOccurred())
	return resp, readBody(resp)
}

func (h *harness) postUpload(path string, image []byte, filename string, tags ...string) (*http.Response, string) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if image != nil {
		fw, err := mw.CreateFormFile("image", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = fw.Write(image)
		Expect(err).NotTo(HaveOccurred())
	}
	for _, tag := range tags {
		Expect(mw.WriteField("tags", tag)).To(Succeed())
	}
	Expect(mw.Close()).To(Succeed())

	resp, err := h.client.Post(h.ts.URL+path, mw.FormDataContentType(), &body)
	Expect(err).NotTo(HaveOccurred())
	return resp, readBody(resp)
}

func (h *harness) login() {
	resp, _ := h.postForm("/login", url.Values{"username": {"operador"}, "password": {"s3nha"}})
	Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
	Expect(resp.Header.Get("Location")).To(Equal("/submit"))
}

func (h *harness) fileCount(dir string) int {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	Expect(err).NotTo(HaveOccurred())
	return len(entries)
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return string(b)
}

var _ = Describe("Server", func() {
	var h *harness

	Describe("authentication", func() {
		BeforeEach(func() {
			h = newHarness(nil)
		})

		It("serves the health check without a session", func() {
			resp, body := h.get("/healthz")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(Equal("ok"))
		})

		It("redirects protected pages to the login form", func() {
			for _, path := range []string{"/", "/submit", "/history", "/files/sheets/dados_20240101_000000.xlsx"} {
				resp, _ := h.get(path)
				Expect(resp.StatusCode).To(Equal(http.StatusSeeOther), path)
				Expect(resp.Header.Get("Location")).To(Equal("/login"), path)
			}
		})

		It("reports bad credentials inline and allows retrying", func() {
			for i := 0; i < 3; i++ {
				resp, body := h.postForm("/login", url.Values{"username": {"operador"}, "password": {"errada"}})
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(body).To(ContainSubstring("Credenciais inválidas"))
			}
			h.login()

			resp, body := h.get("/submit")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("nota fiscal"))
		})

		It("ends the session on logout", func() {
			h.login()
			resp, _ := h.postForm("/logout", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))

			resp, _ = h.get("/submit")
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		})
	})

	Describe("submission", func() {
		BeforeEach(func() {
			h = newHarness(nil)
			h.login()
		})

		It("extracts, exports and records a submission", func() {
			resp, body := h.postUpload("/submit", jpegBytes, "foto.jpg", "recibo", "inexistente")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("CMK"))
			Expect(body).To(MatchRegexp(`/files/sheets/dados_\d{8}_\d{6}\.xlsx`))

			records, err := h.ledger.LoadAll(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Tags).To(Equal([]string{"recibo"}))
			Expect(h.fileCount(h.cfg.Storage.ImagesDir)).To(Equal(1))

			Expect(body).To(ContainSubstring("Resposta do modelo:"))
			Expect(body).To(MatchRegexp("<pre class=\"raw\">```json\n"))
			Expect(body).To(ContainSubstring(`src="/files/images/` + records[0].ImageFilename + `"`))

			resp, sheet := h.get("/files/sheets/" + records[0].ExcelFilename)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring(records[0].ExcelFilename))
			Expect(strings.HasPrefix(sheet, "PK")).To(BeTrue())

			resp, _ = h.get("/files/images/" + records[0].ImageFilename)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("shows the raw response when it is not JSON and persists nothing", func() {
			h.extractor.raw = "not json at all"

			resp, body := h.postUpload("/submit", jpegBytes, "foto.jpg")
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			Expect(body).To(ContainSubstring("not json at all"))

			records, err := h.ledger.LoadAll(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
			Expect(h.fileCount(h.cfg.Storage.SheetsDir)).To(BeZero())
			Expect(h.fileCount(h.cfg.Storage.ImagesDir)).To(BeZero())
		})

		It("reports a model failure as a bad gateway", func() {
			h.extractor.err = errors.New("connection reset")

			resp, _ := h.postUpload("/submit", jpegBytes, "foto.jpg")
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
			Expect(h.fileCount(h.cfg.Storage.ImagesDir)).To(BeZero())
		})

		It("rejects a submit without an image", func() {
			resp, _ := h.postUpload("/submit", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(h.extractor.calls).To(BeZero())
		})

		It("rejects unsupported uploads", func() {
			resp, _ := h.postUpload("/submit", jpegBytes, "foto.gif")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(h.extractor.calls).To(BeZero())
		})

		It("does not expose the preview route when persistence is off", func() {
			resp, _ := h.postUpload("/submit/preview", jpegBytes, "foto.jpg")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("refuses file names outside the artifact directories", func() {
			resp, _ := h.get("/files/sheets/metadados.json")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp, _ = h.get("/files/images/dados_20240101_000000.xlsx")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("history", func() {
		BeforeEach(func() {
			h = newHarness(nil)
			h.login()
			resp, _ := h.postUpload("/submit", jpegBytes, "foto.jpg", "recibo")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("lists every record without filters", func() {
			resp, body := h.get("/history")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("dados_"))
			Expect(body).NotTo(ContainSubstring("Nenhum resultado"))
		})

		It("signals an empty result explicitly", func() {
			resp, body := h.get("/history?tags=" + url.QueryEscape("documento técnico"))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("Nenhum resultado encontrado com os filtros aplicados."))
		})

		It("rejects malformed dates", func() {
			resp, _ := h.get("/history?date=04/03/2024")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("image persistence", func() {
		BeforeEach(func() {
			h = newHarness(func(c *common.Config) { c.Features.PersistImage = true })
			h.login()
		})

		It("submits the previewed image without a new upload", func() {
			resp, _ := h.postUpload("/submit/preview", jpegBytes, "foto.png")
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))

			_, body := h.get("/submit")
			Expect(body).To(MatchRegexp(`/files/images/folha_\d{8}_\d{6}\.jpg`))

			h.extractor.raw = "not json at all"
			resp, _ = h.postUpload("/submit", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			Expect(h.fileCount(h.cfg.Storage.ImagesDir)).To(Equal(1))

			h.extractor.raw = `[{"a":1}]`
			resp, _ = h.postUpload("/submit", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			records, err := h.ledger.LoadAll(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))

			_, body = h.get("/submit")
			Expect(body).NotTo(ContainSubstring("Imagem selecionada"))
		})
	})

	Describe("materials", func() {
		It("is not routed when the variant is off", func() {
			h = newHarness(nil)
			h.login()
			resp, _ := h.get("/materials")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("manages the list when the variant is on", func() {
			h = newHarness(func(c *common.Config) { c.Features.Materials = true })
			h.login()

			resp, body := h.get("/materials")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("Nenhuma matéria-prima cadastrada."))

			resp, _ = h.postForm("/materials", url.Values{"action": {"add"}, "name": {"CMK"}})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp, _ = h.postForm("/materials", url.Values{"action": {"add"}, "name": {""}})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			names, err := h.materials.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"CMK"}))

			resp, _ = h.postForm("/materials", url.Values{"action": {"replace"}, "list": {"Areia\nBrita\n"}})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			names, err = h.materials.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"Areia", "Brita"}))
		})
	})
})

package devbackend

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"habit-gallery/internal/backend"
	"habit-gallery/internal/llm"
	"habit-gallery/internal/shared/config"
	"habit-gallery/internal/shared/metrics"
	"habit-gallery/internal/shared/server/respond"
	"habit-gallery/internal/shared/util"
	"habit-gallery/internal/works"
)

const (
	// MaxUploadBytes caps the whole multipart request body.
	MaxUploadBytes int64 = 16 << 20

	multipartMemory = 8 << 20
)

var (
	requiredFields = []string{"author-name", "current-habits", "reflection"}
	requiredFiles  = []string{"scorecard-image", "comic-image"}

	allowedExtensions = map[string]struct{}{
		"png":  {},
		"jpg":  {},
		"jpeg": {},
		"gif":  {},
	}
)

// Handler exposes the gallery backend over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the gallery routes at the router root.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/works", h.listWorks)
	r.POST("/upload", h.upload)
	r.GET("/uploads/:name", h.serveUpload)
	r.GET("/audio_cache/:name", h.serveAudio)
	r.POST("/analyze", h.analyzeInline)
	r.POST("/analyze/:id", h.analyzeWork)
}

func (h *Handler) listWorks(c *gin.Context) {
	list, err := h.svc.ListWorks(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Could not load works")
		return
	}
	out := make([]works.Record, 0, len(list))
	for _, w := range list {
		out = append(out, w.Record())
	}
	respond.OK(c, out)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		metrics.IncUpload("rejected")
		if isTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "File too large (max 16MB)")
			return
		}
		respond.Error(c, http.StatusBadRequest, "Invalid form data")
		return
	}
	form := c.Request.MultipartForm
	defer form.RemoveAll()

	var missing []string
	for _, f := range requiredFields {
		if strings.TrimSpace(c.Request.PostFormValue(f)) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		metrics.IncUpload("rejected")
		respond.Error(c, http.StatusBadRequest, "Missing: "+strings.Join(missing, ", "))
		return
	}

	files := make(map[string]*multipart.FileHeader, len(requiredFiles))
	for _, f := range requiredFiles {
		if hs := form.File[f]; len(hs) > 0 && hs[0].Filename != "" {
			files[f] = hs[0]
		} else {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		metrics.IncUpload("rejected")
		respond.Error(c, http.StatusBadRequest, "Missing files: "+strings.Join(missing, ", "))
		return
	}

	scExt, scOK := allowedExt(files["scorecard-image"].Filename)
	cmExt, cmOK := allowedExt(files["comic-image"].Filename)
	if !scOK || !cmOK {
		metrics.IncUpload("rejected")
		respond.Error(c, http.StatusBadRequest, "Unsupported file format (JPG, PNG, GIF only)")
		return
	}

	sc, err := files["scorecard-image"].Open()
	if err != nil {
		metrics.IncUpload("failed")
		respond.Error(c, http.StatusInternalServerError, "Server error")
		return
	}
	defer sc.Close()
	cm, err := files["comic-image"].Open()
	if err != nil {
		metrics.IncUpload("failed")
		respond.Error(c, http.StatusInternalServerError, "Server error")
		return
	}
	defer cm.Close()

	work, err := h.svc.Share(c.Request.Context(), ShareInput{
		Author:     c.Request.PostFormValue("author-name"),
		Habits:     c.Request.PostFormValue("current-habits"),
		Reflection: c.Request.PostFormValue("reflection"),
		Scorecard:  Image{Ext: scExt, Data: sc},
		Comic:      Image{Ext: cmExt, Data: cm},
	})
	if err != nil {
		metrics.IncUpload("failed")
		respond.Error(c, http.StatusInternalServerError, "Server error")
		return
	}
	metrics.IncUpload("ok")
	c.Set("workId", work.ID)
	respond.Created(c, backend.UploadResponse{
		Success: true,
		Message: "Shared successfully!",
		WorkID:  work.ID,
	})
}

func (h *Handler) serveUpload(c *gin.Context) {
	h.serveStored(c, uploadsNamespace, "")
}

func (h *Handler) serveAudio(c *gin.Context) {
	h.serveStored(c, audioNamespace, "audio/mpeg")
}

func (h *Handler) serveStored(c *gin.Context, namespace, contentType string) {
	name := c.Param("name")
	clean, err := util.SanitizeFileName(name)
	if err != nil || clean != name {
		respond.Error(c, http.StatusNotFound, "File not found")
		return
	}
	rc, err := h.svc.Store.Open(c.Request.Context(), namespace+"/"+clean)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			respond.Error(c, http.StatusInternalServerError, "Server error")
			return
		}
		respond.Error(c, http.StatusNotFound, "File not found")
		return
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Server error")
		return
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	c.Data(http.StatusOK, contentType, data)
}

func (h *Handler) analyzeInline(c *gin.Context) {
	c.Set("analysisMode", config.AnalysisModeInline)
	var req backend.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ScorecardBase64) == "" || strings.TrimSpace(req.ComicBase64) == "" {
		respond.Error(c, http.StatusBadRequest, "Missing image data")
		return
	}
	res, err := h.svc.Analyze(c.Request.Context(), InlineInput{
		ScorecardBase64: req.ScorecardBase64,
		ComicBase64:     req.ComicBase64,
		Author:          req.Author,
		Habits:          req.Habits,
		Reflection:      req.Reflection,
		GenerateAudio:   req.GenerateAudio,
	})
	if err != nil {
		h.analysisError(c, err)
		return
	}
	respond.OK(c, backend.AnalyzeResponse{
		Success:         true,
		Analysis:        res.Analysis,
		AudioDataBase64: res.AudioBase64,
		AudioError:      res.AudioError,
	})
}

func (h *Handler) analyzeWork(c *gin.Context) {
	id := c.Param("id")
	c.Set("workId", id)
	c.Set("analysisMode", config.AnalysisModeByID)
	res, err := h.svc.AnalyzeWork(c.Request.Context(), id)
	if err != nil {
		h.analysisError(c, err)
		return
	}
	respond.OK(c, backend.AnalyzeResponse{
		Success:  true,
		Analysis: res.Analysis,
		AudioURL: res.AudioURL,
	})
}

func (h *Handler) analysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "AI service not configured.")
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "Work not found.")
	case errors.Is(err, ErrImagesMissing):
		respond.Error(c, http.StatusNotFound, "Image files not found.")
	case errors.Is(err, ErrInvalidImage):
		respond.Error(c, http.StatusBadRequest, "Invalid image data.")
	case errors.Is(err, ErrAnalysisFailed):
		respond.Error(c, http.StatusInternalServerError, "AI text analysis error.")
	default:
		respond.Error(c, http.StatusInternalServerError, "Server error")
	}
}

func allowedExt(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	_, ok := allowedExtensions[ext]
	return ext, ok
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

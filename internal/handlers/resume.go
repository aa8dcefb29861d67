package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/resumedrop/apiserver/internal/logger"
	"github.com/resumedrop/apiserver/internal/services"
)

const (
	maxMultipartMemory   = 8 << 20
	formFieldName        = "name"
	formFieldDate        = "submissionDate"
	formFieldFile        = "resume"
	submissionDateLayout = "2006-01-02"
)

// ResumeHandler provides HTTP handlers for resume upload and listing.
type ResumeHandler struct {
	resumeService *services.ResumeService
}

// NewResumeHandler constructs a handler with the provided service.
func NewResumeHandler(resumeService *services.ResumeService) *ResumeHandler {
	return &ResumeHandler{resumeService: resumeService}
}

// ResumeRouter registers resume routes on the given router.
func ResumeRouter(r chi.Router, resumeService *services.ResumeService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewResumeHandler(resumeService)

	r.With(authMiddleware).Post("/", handler.Upload)
	r.With(authMiddleware).Get("/", handler.List)
}

// UploadsRouter registers the static file retrieval route. The route
// is deliberately unauthenticated: a stored key acts as a capability,
// matching the contract the web client already depends on.
func UploadsRouter(r chi.Router, resumeService *services.ResumeService) {
	handler := NewResumeHandler(resumeService)

	r.Get("/{fileKey}", handler.ServeFile)
}

// Upload accepts a multipart PDF upload and records it for the
// authenticated user. The owner is always the token subject; nothing
// in the request body can set it.
func (h *ResumeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := parseUploadForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resume, err := h.resumeService.Upload(r.Context(), services.UploadInput{
		OwnerID:        userID,
		Name:           req.Name,
		SubmissionDate: req.SubmissionDate,
		Filename:       req.Filename,
		ContentType:    req.ContentType,
		Data:           req.Data,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFile),
			errors.Is(err, services.ErrUnsupportedMediaType),
			errors.Is(err, services.ErrFileTooLarge):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			logger.Log.Errorw("resume upload failed", "owner", userID, "err", err)
			writeError(w, http.StatusInternalServerError, "error uploading resume")
		}
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Message:  "Resume uploaded successfully",
		ResumeID: resume.ID,
	})
}

// List returns the caller's resumes, newest first.
func (h *ResumeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resumes, err := h.resumeService.ListForOwner(r.Context(), userID)
	if err != nil {
		logger.Log.Errorw("resume list failed", "owner", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "error fetching resumes")
		return
	}

	writeJSON(w, http.StatusOK, resumes)
}

// ServeFile streams a stored file by its key.
func (h *ResumeHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "fileKey")
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, "/\\") {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	rc, err := h.resumeService.OpenFile(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer rc.Close()

	// Some backends only surface a missing object on the first read,
	// so probe before committing headers.
	buf := make([]byte, 512)
	n, err := rc.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", services.PDFContentType)
	if _, err := w.Write(buf[:n]); err != nil {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		logger.Log.Debugw("file stream interrupted", "key", key, "err", err)
	}
}

// UploadRequest represents the parsed multipart form payload.
type UploadRequest struct {
	Name           string
	SubmissionDate time.Time
	Filename       string
	ContentType    string
	Data           []byte
}

// UploadResponse is the successful upload payload.
type UploadResponse struct {
	Message  string `json:"message"`
	ResumeID int    `json:"resumeId"`
}

func parseUploadForm(r *http.Request) (UploadRequest, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return UploadRequest{}, errors.New("invalid multipart form")
	}

	name := strings.TrimSpace(r.FormValue(formFieldName))
	if name == "" {
		return UploadRequest{}, errors.New("name is required")
	}

	rawDate := strings.TrimSpace(r.FormValue(formFieldDate))
	if rawDate == "" {
		return UploadRequest{}, errors.New("submission date is required")
	}
	submissionDate, err := time.Parse(submissionDateLayout, rawDate)
	if err != nil {
		return UploadRequest{}, errors.New("invalid submission date")
	}

	filename, contentType, data, err := parseResumeFile(r.MultipartForm)
	if err != nil {
		return UploadRequest{}, err
	}

	return UploadRequest{
		Name:           name,
		SubmissionDate: submissionDate,
		Filename:       filename,
		ContentType:    contentType,
		Data:           data,
	}, nil
}

func parseResumeFile(form *multipart.Form) (string, string, []byte, error) {
	if form == nil {
		return "", "", nil, services.ErrMissingFile
	}

	files := form.File[formFieldFile]
	if len(files) == 0 {
		return "", "", nil, services.ErrMissingFile
	}
	if len(files) > 1 {
		return "", "", nil, errors.New("only one resume file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return "", "", nil, errors.New("failed to read uploaded file")
	}

	data, err := readFileLimited(file, services.MaxResumeBytes)
	_ = file.Close()
	if err != nil {
		return "", "", nil, err
	}

	return fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, services.ErrFileTooLarge
	}
	return data, nil
}

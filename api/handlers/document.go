package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/idrouter/internal/service/router"
	"github.com/feichai0017/idrouter/internal/utils/validator"
	"github.com/feichai0017/idrouter/pkg/logger"
)

// DocumentHandler accepts PDF uploads into the inbox a later batch reads from.
type DocumentHandler struct {
	validator *validator.DocumentValidator
	inboxDir  string
	logger    logger.Logger
}

// UploadResult 单个上传文件的结果
type UploadResult struct {
	Filename string                      `json:"filename"`
	Path     string                      `json:"path,omitempty"`
	FileInfo validator.FileInfo          `json:"fileInfo"`
	Errors   []validator.ValidationError `json:"errors,omitempty"`
}

func NewDocumentHandler(v *validator.DocumentValidator, inboxDir string, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		validator: v,
		inboxDir:  inboxDir,
		logger:    log.Named("documents"),
	}
}

// Upload stores every valid PDF from the "files" (or "file") form field. An
// existing inbox file is never replaced; a _n suffix is added instead.
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		handleError(c, h.logger, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := append(form.File["files"], form.File["file"]...)
	if len(files) == 0 {
		handleError(c, h.logger, http.StatusBadRequest, "No files provided", nil)
		return
	}

	if err := os.MkdirAll(h.inboxDir, 0755); err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Inbox unavailable", err)
		return
	}

	results := make([]UploadResult, 0, len(files))
	accepted := 0
	for _, file := range files {
		res, err := h.store(c, file)
		if err != nil {
			handleError(c, h.logger, http.StatusInternalServerError, "Failed to store file", err)
			return
		}
		if res.Path != "" {
			accepted++
		}
		results = append(results, res)
	}

	status := http.StatusOK
	if accepted == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"message":  fmt.Sprintf("Accepted %d of %d documents", accepted, len(files)),
		"inbox":    h.inboxDir,
		"accepted": accepted,
		"results":  results,
	})
}

func (h *DocumentHandler) store(c *gin.Context, file *multipart.FileHeader) (UploadResult, error) {
	check, err := h.validator.ValidateFile(file)
	if err != nil {
		return UploadResult{}, err
	}

	res := UploadResult{
		Filename: check.FileInfo.Filename,
		FileInfo: check.FileInfo,
		Errors:   check.Errors,
	}
	if !check.IsValid {
		return res, nil
	}

	name := check.FileInfo.Filename
	dst := router.SafeFilename(h.inboxDir, strings.TrimSuffix(name, filepath.Ext(name)), ".pdf")
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return UploadResult{}, err
	}
	res.Path = dst

	h.logger.Info("Document uploaded",
		logger.String("filename", name),
		logger.String("path", dst),
		logger.String("hash", check.FileInfo.Hash),
	)
	return res, nil
}

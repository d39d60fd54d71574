package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/feichai0017/idrouter/pkg/logger"
)

// DocumentValidator 上传文档验证器
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

// ValidatorConfig 验证器配置
type ValidatorConfig struct {
	MaxFileSize  int64               // bytes
	AllowedTypes map[string][]string // extension -> accepted MIME types
}

// DefaultValidatorConfig accepts PDFs up to 50MB.
func DefaultValidatorConfig() *ValidatorConfig {
	return &ValidatorConfig{
		MaxFileSize: 50 << 20,
		AllowedTypes: map[string][]string{
			".pdf": {"application/pdf"},
		},
	}
}

// ValidationResult 验证结果
type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	FileInfo FileInfo          `json:"fileInfo"`
}

// ValidationError 验证错误
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// FileInfo 文件信息
type FileInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Hash      string `json:"hash"`
}

func NewDocumentValidator(log logger.Logger, config *ValidatorConfig) *DocumentValidator {
	if log == nil {
		log = logger.NewNop()
	}
	if config == nil {
		config = DefaultValidatorConfig()
	}
	return &DocumentValidator{
		logger: log.Named("validator"),
		config: config,
	}
}

// ValidateFile validates an uploaded file.
func (v *DocumentValidator) ValidateFile(file *multipart.FileHeader) (*ValidationResult, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return v.Validate(file.Filename, file.Size, f)
}

// Validate checks size, extension and sniffed content type of r, which is
// left positioned at its start.
func (v *DocumentValidator) Validate(name string, size int64, r io.ReadSeeker) (*ValidationResult, error) {
	result := &ValidationResult{
		IsValid: true,
		FileInfo: FileInfo{
			Filename:  filepath.Base(name),
			Size:      size,
			Extension: strings.ToLower(filepath.Ext(name)),
		},
	}

	hash, err := calculateHash(r)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}
	result.FileInfo.Hash = hash

	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to detect mime type: %w", err)
	}
	result.FileInfo.MimeType = mtype.String()
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file pointer: %w", err)
	}

	result.addAll(v.performBasicValidation(result.FileInfo))
	result.addAll(v.validateMimeType(mtype, result.FileInfo))

	if !result.IsValid {
		v.logger.Warn("Rejected upload",
			logger.String("filename", result.FileInfo.Filename),
			logger.String("mimeType", result.FileInfo.MimeType),
			logger.Int("errors", len(result.Errors)),
		)
	}
	return result, nil
}

func (r *ValidationResult) addAll(errs []ValidationError) {
	if len(errs) == 0 {
		return
	}
	r.IsValid = false
	r.Errors = append(r.Errors, errs...)
}

func (v *DocumentValidator) performBasicValidation(info FileInfo) []ValidationError {
	var errs []ValidationError

	if info.Size == 0 {
		errs = append(errs, ValidationError{
			Code:    "EMPTY_FILE",
			Message: "File is empty",
			Field:   "size",
		})
	}
	if v.config.MaxFileSize > 0 && info.Size > v.config.MaxFileSize {
		errs = append(errs, ValidationError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum limit of %d bytes", v.config.MaxFileSize),
			Field:   "size",
		})
	}
	if _, ok := v.config.AllowedTypes[info.Extension]; !ok {
		errs = append(errs, ValidationError{
			Code:    "INVALID_FILE_TYPE",
			Message: fmt.Sprintf("File type %s is not allowed", info.Extension),
			Field:   "extension",
		})
	}
	return errs
}

func (v *DocumentValidator) validateMimeType(mtype *mimetype.MIME, info FileInfo) []ValidationError {
	allowed, ok := v.config.AllowedTypes[info.Extension]
	if !ok {
		return nil
	}
	for _, m := range allowed {
		if mtype.Is(m) {
			return nil
		}
	}
	return []ValidationError{{
		Code:    "INVALID_MIME_TYPE",
		Message: fmt.Sprintf("Invalid MIME type %s for extension %s", info.MimeType, info.Extension),
		Field:   "mimeType",
	}}
}

func calculateHash(r io.ReadSeeker) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

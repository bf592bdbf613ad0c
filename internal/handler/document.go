package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cradoe/timint/internal/errHandler"
	"github.com/cradoe/timint/internal/lifecycle"
	"github.com/cradoe/timint/internal/response"
)

// maxDocumentSize caps each uploaded image at 5MB.
const maxDocumentSize = 5 << 20

var allowedDocumentExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

type DocumentHandler struct {
	Lifecycle  *lifecycle.Lifecycle
	ErrHandler *errHandler.ErrorHandler
}

func NewDocumentHandler(handler *DocumentHandler) *DocumentHandler {
	return &DocumentHandler{
		Lifecycle:  handler.Lifecycle,
		ErrHandler: handler.ErrHandler,
	}
}

// HandleDocumentUpload accepts the selfie/identity-document pair as a
// multipart form. Both parts are staged as temp files and handed to the
// lifecycle, which uploads them and moves the applicant under review.
func (h *DocumentHandler) HandleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	applicantID := r.PathValue("id")

	err := r.ParseMultipartForm(2 * maxDocumentSize)
	if err != nil {
		message := errors.New("invalid request data")
		h.ErrHandler.BadRequest(w, r, message)
		return
	}

	selfiePath, cleanSelfie, err := h.stageUpload(r, "selfie")
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}
	defer cleanSelfie()

	documentPath, cleanDocument, err := h.stageUpload(r, "document")
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}
	defer cleanDocument()

	err = h.Lifecycle.SubmitDocuments(applicantID, selfiePath, documentPath)
	if err != nil {
		handleLifecycleError(h.ErrHandler, w, r, err)
		return
	}

	message := "Documents submitted. Your application is now under review."

	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// stageUpload validates one form file and writes it to a temp file on the
// server, the same staging the cloud uploader expects. The returned cleanup
// always removes the temp file.
func (h *DocumentHandler) stageUpload(r *http.Request, field string) (string, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("%s image is required", field)
	}
	defer file.Close()

	if header.Size > maxDocumentSize {
		return "", nil, fmt.Errorf("%s image must not be larger than 5MB", field)
	}

	fileExtension := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedDocumentExtensions[fileExtension] {
		return "", nil, fmt.Errorf("%s image must be a jpg, jpeg or png file", field)
	}

	tempFile, err := os.CreateTemp("", fmt.Sprintf("upload-*%s", fileExtension))
	if err != nil {
		return "", nil, err
	}
	defer tempFile.Close()

	cleanup := func() { os.Remove(tempFile.Name()) }

	_, err = tempFile.ReadFrom(file)
	if err != nil {
		cleanup()
		return "", nil, err
	}

	return tempFile.Name(), cleanup, nil
}

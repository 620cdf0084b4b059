package ginserver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pingme/internal/app/dto"
	chatsvc "pingme/internal/app/services/chat"
	domainconv "pingme/internal/domain/conversation"
	domainmsg "pingme/internal/domain/message"
	domainuser "pingme/internal/domain/user"
	"pingme/internal/infra/storage/s3"
)

// UploadHTTP exposes attachment upload and retrieval endpoints.
type UploadHTTP interface {
	UploadFile(c *gin.Context)
	UploadAudio(c *gin.Context)
	Download(c *gin.Context)
	Image(c *gin.Context)
}

type UploadHandler struct {
	Service           *chatsvc.Service
	Blobs             s3.BlobStore
	MaxBytes          int64
	AllowedExtensions []string
	Logger            *slog.Logger
}

// UploadFile stores a multipart file and appends a file or image message.
// The message kind follows the declared content type.
func (h UploadHandler) UploadFile(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if !h.ready(c) {
		return
	}
	convID := c.Param("id")
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if !h.extensionAllowed(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file type not allowed"})
		return
	}
	kind := domainmsg.KindFile
	contentType := header.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") {
		kind = domainmsg.KindImage
	}
	attachment, err := h.storeBlob(c, header, contentType, 0)
	if err != nil {
		h.respondUploadError(c, err)
		return
	}
	msg, err := h.Service.SendAttachment(c.Request.Context(), domainconv.ID(convID), domainuser.ID(principal.ID), kind, "", attachment)
	if err != nil {
		h.respondUploadError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapMessage(msg))
}

// UploadAudio stores a voice recording. Duration arrives as a form field
// because the container says nothing about playback length.
func (h UploadHandler) UploadAudio(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if !h.ready(c) {
		return
	}
	convID := c.Param("id")
	header, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio is required"})
		return
	}
	duration, _ := strconv.ParseFloat(c.PostForm("duration"), 64)
	if duration < 0 {
		duration = 0
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/webm"
	}
	attachment, err := h.storeBlob(c, header, contentType, duration)
	if err != nil {
		h.respondUploadError(c, err)
		return
	}
	msg, err := h.Service.SendAttachment(c.Request.Context(), domainconv.ID(convID), domainuser.ID(principal.ID), domainmsg.KindAudio, "", attachment)
	if err != nil {
		h.respondUploadError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapMessage(msg))
}

// Download streams an attachment back to a participant with its original name.
func (h UploadHandler) Download(c *gin.Context) {
	h.serveBlob(c, false)
}

// Image serves an image attachment inline for rendering in the client.
func (h UploadHandler) Image(c *gin.Context) {
	h.serveBlob(c, true)
}

func (h UploadHandler) serveBlob(c *gin.Context, inline bool) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if !h.ready(c) {
		return
	}
	msgID := c.Param("id")
	msg, err := h.Service.Attachment(c.Request.Context(), domainmsg.ID(msgID), domainuser.ID(principal.ID))
	if err != nil {
		h.respondUploadError(c, err)
		return
	}
	if inline && msg.Kind != domainmsg.KindImage {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	reader, err := h.Blobs.Get(c.Request.Context(), msg.Attachment.BlobRef)
	if err != nil {
		h.respondUploadError(c, err)
		return
	}
	defer reader.Close()

	contentType := msg.Attachment.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	if msg.Attachment.SizeBytes > 0 {
		c.Header("Content-Length", strconv.FormatInt(msg.Attachment.SizeBytes, 10))
	}
	if inline {
		c.Header("Content-Disposition", "inline")
	} else {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", msg.Attachment.OriginalName))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil && h.Logger != nil {
		h.Logger.Warn("attachment stream interrupted", "message_id", msgID, "error", err)
	}
}

func (h UploadHandler) storeBlob(c *gin.Context, header *multipart.FileHeader, contentType string, duration float64) (*domainmsg.Attachment, error) {
	if h.MaxBytes > 0 && header.Size > h.MaxBytes {
		return nil, errTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	key := blobKey(header.Filename)
	blobRef, err := h.Blobs.Put(c.Request.Context(), key, file, header.Size, contentType)
	if err != nil {
		return nil, err
	}
	return &domainmsg.Attachment{
		BlobRef:         blobRef,
		OriginalName:    filepath.Base(header.Filename),
		SizeBytes:       header.Size,
		MIMEType:        contentType,
		DurationSeconds: duration,
	}, nil
}

func (h UploadHandler) extensionAllowed(filename string) bool {
	if len(h.AllowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, allowed := range h.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (h UploadHandler) ready(c *gin.Context) bool {
	if h.Service == nil || h.Blobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upload service unavailable"})
		return false
	}
	return true
}

func (h UploadHandler) respondUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
	case errors.Is(err, domainmsg.ErrAttachmentRequired), errors.Is(err, domainmsg.ErrInvalidKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainconv.ErrNotFound), errors.Is(err, domainconv.ErrNotParticipant):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, domainmsg.ErrNotFound),
		errors.Is(err, domainmsg.ErrNoAttachment),
		errors.Is(err, s3.ErrBlobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	default:
		if h.Logger != nil {
			h.Logger.Error("upload operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// blobKey namespaces uploads by date so buckets stay listable.
func blobKey(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("uploads/%s/%s_%s", time.Now().UTC().Format("2006/01/02"), uuid.NewString(), base)
}

var errTooLarge = errors.New("upload: file exceeds size limit")

var _ UploadHTTP = (*UploadHandler)(nil)

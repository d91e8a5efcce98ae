package attach

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"

	"rag-chat-client/api"
	"rag-chat-client/apperr"
)

// State is the lifecycle position of a selected attachment.
type State int

const (
	StateSelected State = iota
	StateEncoding
	StateEncoded
	StateFailed
)

// Attachment is one file selected for the next submission. It is owned by
// the session that selected it and discarded on submit or explicit clear.
type Attachment struct {
	Name  string
	Path  string
	Data  []byte // set when the file content is already in memory
	State State
	Err   error
}

// NewAttachment selects a file by path.
func NewAttachment(path string) *Attachment {
	return &Attachment{
		Name:  filepath.Base(path),
		Path:  path,
		State: StateSelected,
	}
}

// Packager converts selected files into transport-ready encoded documents.
type Packager struct {
	maxFileSize  int64
	maxImageSize uint // maximum image dimension (width or height)
	imageQuality int  // JPEG quality (1-100)
	log          zerolog.Logger
}

// NewPackager creates a packager with default limits.
func NewPackager(logger zerolog.Logger) *Packager {
	return &Packager{
		maxFileSize:  10 * 1024 * 1024, // 10MB
		maxImageSize: 1024,
		imageQuality: 85,
		log:          logger,
	}
}

// SetLimits overrides the default size limits. Zero values keep the defaults.
func (p *Packager) SetLimits(maxFileSize int64, maxImageSize uint, imageQuality int) {
	if maxFileSize > 0 {
		p.maxFileSize = maxFileSize
	}
	if maxImageSize > 0 {
		p.maxImageSize = maxImageSize
	}
	if imageQuality > 0 {
		p.imageQuality = imageQuality
	}
}

// Package encodes the given attachments in selection order. If any file
// fails to encode the whole packaging fails; a partial document list is
// never returned.
func (p *Packager) Package(attachments []*Attachment) ([]api.Document, error) {
	if len(attachments) == 0 {
		return nil, nil
	}

	documents := make([]api.Document, 0, len(attachments))
	for _, att := range attachments {
		att.State = StateEncoding
		doc, err := p.encode(att)
		if err != nil {
			att.State = StateFailed
			att.Err = err
			p.log.Error().Str("file", att.Name).Err(err).Msg("attachment encoding failed")
			return nil, apperr.New(apperr.KindEncoding, fmt.Errorf("failed to encode %s: %w", att.Name, err))
		}
		att.State = StateEncoded
		documents = append(documents, doc)
	}

	return documents, nil
}

// encode reads one attachment and produces its base64 document.
func (p *Packager) encode(att *Attachment) (api.Document, error) {
	data := att.Data
	if data == nil {
		info, err := os.Stat(att.Path)
		if err != nil {
			return api.Document{}, fmt.Errorf("file not found: %w", err)
		}
		if info.Size() > p.maxFileSize {
			return api.Document{}, fmt.Errorf("file too large: %d bytes (max %d bytes)", info.Size(), p.maxFileSize)
		}
		data, err = os.ReadFile(att.Path)
		if err != nil {
			return api.Document{}, fmt.Errorf("failed to read file: %w", err)
		}
	}

	if isResizableImage(att.Name) {
		shrunk, err := p.shrinkImage(data)
		if err != nil {
			return api.Document{}, fmt.Errorf("failed to process image: %w", err)
		}
		data = shrunk
	}

	return api.Document{
		Name: att.Name,
		B64:  base64.StdEncoding.EncodeToString(data),
	}, nil
}

// shrinkImage downscales an image to the configured bound, keeping aspect
// ratio. Images already within bounds pass through unchanged.
func (p *Packager) shrinkImage(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := uint(bounds.Dx())
	height := uint(bounds.Dy())
	if width <= p.maxImageSize && height <= p.maxImageSize {
		return data, nil
	}

	if width > height {
		img = resize.Resize(p.maxImageSize, 0, img, resize.Lanczos3)
	} else {
		img = resize.Resize(0, p.maxImageSize, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.imageQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// Decode recovers the original file name and bytes from a packaged document.
func Decode(doc api.Document) (string, []byte, error) {
	data, err := base64.StdEncoding.DecodeString(doc.B64)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return doc.Name, data, nil
}

// isResizableImage reports whether the file is an image format we can
// decode and downscale. Other formats are encoded as-is.
func isResizableImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

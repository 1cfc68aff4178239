package model

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
)

// MaxAttachmentSize is the per-file ceiling for inline attachments (5 MiB).
// Inline-data parts are resent with every request, so large files would blow
// up every subsequent turn, not just the current one.
const MaxAttachmentSize = 5 * 1024 * 1024

// ErrAttachmentTooLarge is returned when a file exceeds MaxAttachmentSize.
var ErrAttachmentTooLarge = errors.New("attachment exceeds maximum size")

// Attachment is an inline file payload carried by a message or by the
// session-level context document set. Pure value type: two attachments with
// the same content are interchangeable.
type Attachment struct {
	Name       string `json:"name"`
	MimeType   string `json:"mime_type"`
	Base64Data string `json:"base64_data"`
}

// EncodeAttachment converts raw file bytes into an Attachment, enforcing the
// size ceiling. Data already carrying a data-URI prefix ("data:...;base64,")
// is stripped down to the bare base64 payload.
func EncodeAttachment(name, mimeType string, data []byte) (Attachment, error) {
	if len(data) > MaxAttachmentSize {
		return Attachment{}, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrAttachmentTooLarge, name, len(data), MaxAttachmentSize)
	}

	return Attachment{
		Name:       name,
		MimeType:   mimeType,
		Base64Data: StripDataURIPrefix(base64.StdEncoding.EncodeToString(data)),
	}, nil
}

// EncodeAttachmentFile reads a file from disk and encodes it as an Attachment.
// The size check runs against the file metadata before reading, so oversized
// files are rejected without being loaded into memory.
func EncodeAttachmentFile(path, mimeType string) (Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to stat attachment file: %w", err)
	}
	if info.Size() > MaxAttachmentSize {
		return Attachment{}, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrAttachmentTooLarge, info.Name(), info.Size(), MaxAttachmentSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to read attachment file: %w", err)
	}

	return EncodeAttachment(info.Name(), mimeType, data)
}

// StripDataURIPrefix removes a "data:<mime>;base64," prefix if present,
// returning only the base64 payload. Browser-originated uploads arrive in
// data-URI form; everything downstream expects the bare payload.
func StripDataURIPrefix(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.Index(s, ","); idx != -1 {
		return s[idx+1:]
	}
	return s
}

// Decode returns the raw bytes of the attachment payload.
func (a Attachment) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.Base64Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment %s: %w", a.Name, err)
	}
	return data, nil
}

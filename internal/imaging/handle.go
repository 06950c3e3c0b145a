// Package imaging defines the image handle shared by generation, editing and
// display, and the helpers that move it across the data-URI boundary.
package imaging

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultMIMEType is assumed when a handle carries no recoverable type.
const DefaultMIMEType = "image/jpeg"

var dataURIPrefix = regexp.MustCompile(`^data:(image/[\w.+-]+);base64,`)

// ErrEmptyImage is returned when a handle or data URI carries no bytes.
var ErrEmptyImage = errors.New("empty image payload")

// Handle is raw image bytes plus the MIME type they are encoded in.
// At rest and on the wire it is represented as data:<mime>;base64,<payload>.
type Handle struct {
	MIMEType string
	Data     []byte
}

// New returns a handle, substituting DefaultMIMEType for an empty mimeType.
func New(mimeType string, data []byte) Handle {
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return Handle{MIMEType: mimeType, Data: data}
}

// IsZero reports whether the handle holds no image bytes.
func (h Handle) IsZero() bool {
	return len(h.Data) == 0
}

// Equal reports whether two handles carry the same type and bytes.
func (h Handle) Equal(o Handle) bool {
	return h.MIMEType == o.MIMEType && bytes.Equal(h.Data, o.Data)
}

// DataURI encodes the handle as a self-describing data URI.
func (h Handle) DataURI() string {
	mimeType := h.MIMEType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(h.Data)
}

// Extension returns a file extension (with dot) matching the MIME type.
func (h Handle) Extension() string {
	switch h.MIMEType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

// ParseDataURI decodes a data URI back into a handle. The MIME type is
// recovered from the prefix; a bare base64 payload with no prefix is accepted
// and tagged DefaultMIMEType.
func ParseDataURI(s string) (Handle, error) {
	s = strings.TrimSpace(s)
	mimeType := DefaultMIMEType
	if m := dataURIPrefix.FindStringSubmatch(s); m != nil {
		mimeType = m[1]
		s = s[len(m[0]):]
	}
	if s == "" {
		return Handle{}, ErrEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return Handle{MIMEType: mimeType, Data: data}, nil
}

// MarshalJSON encodes the handle as its data URI string.
func (h Handle) MarshalJSON() ([]byte, error) {
	if h.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(h.DataURI())
}

// UnmarshalJSON accepts a data URI string; an empty string yields a zero handle.
func (h *Handle) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Handle{}
		return nil
	}
	parsed, err := ParseDataURI(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

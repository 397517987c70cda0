package valueobjects

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"cmseditor/domain/config"
	pkgerrors "cmseditor/pkg/errors"
)

// BufferFormat represents the format of the editor buffer
type BufferFormat string

const (
	FormatPlainText BufferFormat = "text"
	FormatHTML      BufferFormat = "html"
	FormatXML       BufferFormat = "xml"
)

var (
	htmlPolicyOnce sync.Once
	htmlPolicy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	htmlPolicyOnce.Do(func() {
		htmlPolicy = bluemonday.UGCPolicy()
		htmlPolicy.AllowAttrs("class").Globally()
		htmlPolicy.AllowAttrs("target").OnElements("a")
	})
	return htmlPolicy
}

// EditorBuffer is the text posted back from the browser editor for the
// active element. Buffers are immutable once created.
type EditorBuffer struct {
	text   string
	format BufferFormat
}

// NewEditorBuffer creates a buffer with validation using default configuration
func NewEditorBuffer(text string, format BufferFormat) (EditorBuffer, error) {
	return NewEditorBufferWithConfig(text, format, config.DefaultDomainConfig())
}

// NewEditorBufferWithConfig creates a buffer and sanitizes HTML input when the
// configuration asks for it
func NewEditorBufferWithConfig(text string, format BufferFormat, cfg *config.DomainConfig) (EditorBuffer, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if !isValidFormat(format) {
		return EditorBuffer{}, pkgerrors.NewValidationError(fmt.Sprintf("invalid buffer format %q", format))
	}

	if utf8.RuneCountInString(text) > cfg.MaxBufferLength {
		return EditorBuffer{}, pkgerrors.ErrBufferTooLong.Clone().
			WithDetail("max_length", cfg.MaxBufferLength)
	}

	if format == FormatHTML && cfg.SanitizeHTML {
		text = sanitizer().Sanitize(text)
	}

	return EditorBuffer{text: text, format: format}, nil
}

// Text returns the buffer content
func (b EditorBuffer) Text() string {
	return b.text
}

// Format returns the buffer format
func (b EditorBuffer) Format() BufferFormat {
	return b.format
}

// IsEmpty checks if the buffer only holds whitespace
func (b EditorBuffer) IsEmpty() bool {
	return strings.TrimSpace(b.text) == ""
}

func (b EditorBuffer) Equals(other EditorBuffer) bool {
	return b.text == other.text && b.format == other.format
}

func isValidFormat(format BufferFormat) bool {
	switch format {
	case FormatPlainText, FormatHTML, FormatXML:
		return true
	default:
		return false
	}
}

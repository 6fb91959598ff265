package resume

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText pulls the plain text out of an uploaded PDF resume. The
// result feeds the interviewer's system prompt; layout fidelity does not
// matter, only the words.
func ExtractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("resume: no file provided")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("resume: open pdf: %w", err)
	}
	content, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("resume: extract text: %w", err)
	}
	var b strings.Builder
	if _, err := io.Copy(&b, content); err != nil {
		return "", fmt.Errorf("resume: read text: %w", err)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("resume: no text found in PDF")
	}
	return text, nil
}

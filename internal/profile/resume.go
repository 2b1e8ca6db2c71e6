package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedResume is returned for binary resume formats.
var ErrUnsupportedResume = errors.New("unsupported resume format, convert it to .txt or .md")

// ReadResume loads a plain text or markdown base resume. An empty path yields
// an empty resume.
func ReadResume(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf", ".docx", ".doc", ".odt", ".rtf":
		return "", fmt.Errorf("%w: %s", ErrUnsupportedResume, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading resume: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not utf-8 text", ErrUnsupportedResume, path)
	}

	text := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if text == "" {
		return "", fmt.Errorf("resume %s is empty", path)
	}
	return text, nil
}

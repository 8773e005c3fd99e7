package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ErrNoDocumentText means the PDF opened cleanly but yielded no extractable
// text, typically a scanned document with no OCR layer.
var ErrNoDocumentText = errors.New("no text found in document")

// maxContractChars bounds how much contract text is sent to the model.
const maxContractChars = 30000

const truncationNotice = "\n\n[... contract text truncated ...]"

// DocumentService extracts plain text from uploaded PDFs.
type DocumentService struct{}

func NewDocumentService() *DocumentService {
	return &DocumentService{}
}

// ExtractText pulls the text layer out of a PDF held in memory.
func (s *DocumentService) ExtractText(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i+1, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrNoDocumentText
	}

	return out, nil
}

// Truncate caps contract text at the model input limit, appending a notice
// when anything was cut.
func Truncate(text string) string {
	if len(text) <= maxContractChars {
		return text
	}
	return text[:maxContractChars] + truncationNotice
}

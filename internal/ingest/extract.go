package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/lectern-ai/lectern/internal/model"
)

// SourceUnit is one page or slide worth of extracted content, in document
// order. Images are raw bytes awaiting captioning.
type SourceUnit struct {
	Index  int
	Text   string
	Images []ImageRef
}

type ImageRef struct {
	Data []byte
	Mime string
}

// DetectFileType maps an upload filename to a supported document type.
func DetectFileType(filename string) (model.FileType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return model.FileTypePDF, nil
	case ".docx", ".doc":
		return model.FileTypeDocx, nil
	case ".pptx", ".ppt":
		return model.FileTypePptx, nil
	case ".jpg", ".jpeg", ".png", ".webp":
		return model.FileTypeImage, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
}

// Extract produces the ordered source units for a stored document. Page or
// slide images are included only when withImages is set (vision enabled).
// The filename is only consulted for its extension.
func Extract(data []byte, filename string, fileType model.FileType, withImages bool) ([]SourceUnit, error) {
	switch fileType {
	case model.FileTypePDF:
		return extractPDF(data, withImages)
	case model.FileTypeDocx:
		return extractDocx(data, withImages)
	case model.FileTypePptx:
		return extractPptx(data, withImages)
	case model.FileTypeImage:
		return extractImageFile(data, filename)
	}
	return nil, fmt.Errorf("unsupported file type: %s", fileType)
}

func extractPDF(data []byte, withImages bool) ([]SourceUnit, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	units := make([]SourceUnit, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		unit := SourceUnit{Index: i + 1}
		text, err := doc.Text(i)
		if err == nil {
			unit.Text = strings.TrimSpace(text)
		}
		if withImages && unit.Text == "" {
			// Pages without a text layer are rendered and captioned instead.
			png, err := doc.ImagePNG(i, 150)
			if err == nil && len(png) > 0 {
				unit.Images = append(unit.Images, ImageRef{Data: png, Mime: "image/png"})
			}
		}
		units = append(units, unit)
	}
	return units, nil
}

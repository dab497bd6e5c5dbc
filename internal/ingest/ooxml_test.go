package ingest

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const docxDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Photosynthesis converts light</w:t></w:r><w:r><w:t> into chemical energy.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestExtractDocx(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": docxDocumentXML})
	units, err := extractDocx(data, false)
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Contains(t, units[0].Text, "Photosynthesis converts light into chemical energy.")
	require.Contains(t, units[0].Text, "Second paragraph.")
}

func TestExtractDocxMissingDocument(t *testing.T) {
	data := buildZip(t, map[string]string{"word/other.xml": "<x/>"})
	_, err := extractDocx(data, false)
	require.Error(t, err)
}

const slideXMLTemplate = `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree>
    <p:sp><p:txBody><a:p><a:r><a:t>SLIDETEXT</a:t></a:r></a:p></p:txBody></p:sp>
  </p:spTree></p:cSld>
</p:sld>`

func TestExtractPptxSlideOrder(t *testing.T) {
	data := buildZip(t, map[string]string{
		"ppt/slides/slide2.xml":  replaceToken(slideXMLTemplate, "Slide two content"),
		"ppt/slides/slide1.xml":  replaceToken(slideXMLTemplate, "Slide one content"),
		"ppt/slides/slide10.xml": replaceToken(slideXMLTemplate, "Slide ten content"),
	})
	units, err := extractPptx(data, false)
	require.NoError(t, err)
	require.Len(t, units, 3)
	require.Equal(t, 1, units[0].Index)
	require.Contains(t, units[0].Text, "Slide one content")
	require.Equal(t, 2, units[1].Index)
	require.Equal(t, 10, units[2].Index)
	require.Contains(t, units[2].Text, "Slide ten content")
}

func TestExtractPptxNoSlides(t *testing.T) {
	data := buildZip(t, map[string]string{"ppt/presentation.xml": "<x/>"})
	_, err := extractPptx(data, false)
	require.Error(t, err)
}

func TestExtractImagePassthrough(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	units, err := extractImageFile(payload, "diagram.png")
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Len(t, units[0].Images, 1)
	require.Equal(t, "image/png", units[0].Images[0].Mime)
	require.Equal(t, payload, units[0].Images[0].Data)
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{filename: "a.pdf", want: "pdf"},
		{filename: "b.DOCX", want: "docx"},
		{filename: "c.pptx", want: "pptx"},
		{filename: "d.jpeg", want: "image"},
		{filename: "e.txt", wantErr: true},
		{filename: "noext", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := DetectFileType(tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, string(got))
		})
	}
}

func replaceToken(template, text string) string {
	return strings.ReplaceAll(template, "SLIDETEXT", text)
}

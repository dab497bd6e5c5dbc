package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// OOXML containers (docx, pptx) are zip archives of XML parts. The
// extractors below pull the text runs and referenced media without a full
// OOXML object model.

func extractDocx(data []byte, withImages bool) ([]SourceUnit, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	docXML, err := readZipFile(reader, "word/document.xml")
	if err != nil {
		return nil, err
	}
	paragraphs, err := parseParagraphs(docXML, "p", "t")
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}
	unit := SourceUnit{Index: 1, Text: strings.Join(paragraphs, "\n")}
	if withImages {
		unit.Images = collectMedia(reader, "word/media/")
	}
	return []SourceUnit{unit}, nil
}

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func extractPptx(data []byte, withImages bool) ([]SourceUnit, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}

	type slide struct {
		num  int
		name string
	}
	var slides []slide
	for _, f := range reader.File {
		match := slidePattern.FindStringSubmatch(f.Name)
		if match == nil {
			continue
		}
		num, _ := strconv.Atoi(match[1])
		slides = append(slides, slide{num: num, name: f.Name})
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("pptx has no slides")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	units := make([]SourceUnit, 0, len(slides))
	for _, s := range slides {
		slideXML, err := readZipFile(reader, s.name)
		if err != nil {
			return nil, err
		}
		// Presentation text lives in DrawingML <a:t> runs.
		texts, err := parseParagraphs(slideXML, "", "t")
		if err != nil {
			return nil, fmt.Errorf("parse slide %d: %w", s.num, err)
		}
		unit := SourceUnit{Index: s.num, Text: strings.Join(texts, "\n")}
		if withImages {
			unit.Images = slideMedia(reader, s.name)
		}
		units = append(units, unit)
	}
	return units, nil
}

func extractImageFile(data []byte, filename string) ([]SourceUnit, error) {
	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return []SourceUnit{{
		Index:  1,
		Images: []ImageRef{{Data: data, Mime: mimeType}},
	}}, nil
}

func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, f := range reader.File {
		if f.Name != name {
			continue
		}
		opened, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer opened.Close()
		return io.ReadAll(opened)
	}
	return nil, fmt.Errorf("%s missing from archive", name)
}

// parseParagraphs streams the XML and collects character data inside text
// elements (local name textElem), grouped by paragraph elements (local name
// paraElem; empty means one group per text element).
func parseParagraphs(data []byte, paraElem, textElem string) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	var paragraphs []string
	var current strings.Builder
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == textElem {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == textElem {
				inText = false
				if paraElem == "" {
					if s := strings.TrimSpace(current.String()); s != "" {
						paragraphs = append(paragraphs, s)
					}
					current.Reset()
				}
			}
			if paraElem != "" && t.Name.Local == paraElem {
				if s := strings.TrimSpace(current.String()); s != "" {
					paragraphs = append(paragraphs, s)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		paragraphs = append(paragraphs, s)
	}
	return paragraphs, nil
}

func collectMedia(reader *zip.Reader, prefix string) []ImageRef {
	var images []ImageRef
	for _, f := range reader.File {
		if !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		mimeType := mime.TypeByExtension(path.Ext(f.Name))
		if !strings.HasPrefix(mimeType, "image/") {
			continue
		}
		opened, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(opened)
		opened.Close()
		if err != nil || len(data) == 0 {
			continue
		}
		images = append(images, ImageRef{Data: data, Mime: mimeType})
	}
	return images
}

type relationships struct {
	Rels []struct {
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// slideMedia resolves a slide's image references through its .rels part.
func slideMedia(reader *zip.Reader, slideName string) []ImageRef {
	relName := path.Join(path.Dir(slideName), "_rels", path.Base(slideName)+".rels")
	relXML, err := readZipFile(reader, relName)
	if err != nil {
		return nil
	}
	var rels relationships
	if err := xml.Unmarshal(relXML, &rels); err != nil {
		return nil
	}
	var images []ImageRef
	for _, rel := range rels.Rels {
		target := path.Clean(path.Join(path.Dir(slideName), rel.Target))
		mimeType := mime.TypeByExtension(path.Ext(target))
		if !strings.HasPrefix(mimeType, "image/") {
			continue
		}
		data, err := readZipFile(reader, target)
		if err != nil || len(data) == 0 {
			continue
		}
		images = append(images, ImageRef{Data: data, Mime: mimeType})
	}
	return images
}

package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// DOCX and PPTX are ZIP packages of XML parts. Text lives in <w:t> (Word) and
// <a:t> (PowerPoint) nodes; matching the nodes directly keeps content searchable
// regardless of paragraph and run attributes.
var (
	wordTextNode  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	drawTextNode  = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	docxMainPart  = "word/document.xml"
	pptxSlidePart = "ppt/slides/slide"
)

func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", zipError("DOCX", err)
	}
	xml, err := readZipPart(zr, docxMainPart)
	if err != nil {
		return "", err
	}
	if xml == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docxMainPart)
	}
	return joinMatches(wordTextNode, string(xml)), nil
}

func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", zipError("PPTX", err)
	}
	var b strings.Builder
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePart) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		xml, err := readZipFile(f)
		if err != nil {
			return "", err
		}
		text := joinMatches(drawTextNode, string(xml))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func readZipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readZipFile(f)
		}
	}
	return nil, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func joinMatches(re *regexp.Regexp, xml string) string {
	parts := re.FindAllStringSubmatch(xml, -1)
	var b strings.Builder
	for _, p := range parts {
		t := strings.TrimSpace(p[1])
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return b.String()
}

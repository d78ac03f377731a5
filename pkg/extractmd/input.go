package extractmd

import (
	"bufio"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// ParseReader parses an HTML document of unknown encoding. The charset is
// taken from contentType when given, otherwise sniffed from a BOM or meta
// tag, and the input is decoded to UTF-8 before parsing.
func ParseReader(r io.Reader, contentType string) (*goquery.Document, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(1024)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	enc, name, _ := charset.DetermineEncoding(peek, contentType)
	doc, err := goquery.NewDocumentFromReader(enc.NewDecoder().Reader(br))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML (%s): %w", name, err)
	}
	return doc, nil
}

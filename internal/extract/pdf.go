package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPDFPages returns the text layer of every page with in-page line
// breaks collapsed to single spaces. Parser panics become errors.
func readPDFPages(data []byte) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pdf data")
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.Join(strings.Fields(text), " "))
	}
	return pages, nil
}

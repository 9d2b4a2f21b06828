package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ledongthuc/pdf"

	"docchat/internal/domain"
)

// extensions recognized when scanning a directory.
var extensions = map[string]bool{".pdf": true, ".txt": true, ".md": true}

// Loader reads PDF and plain-text documents into pages. A PDF yields one
// page record per PDF page; a text file yields a single page.
type Loader struct {
	log *log.Logger
}

func New(logger *log.Logger) *Loader { return &Loader{log: logger} }

// Load reads the file at path, or every matching file in the directory at
// path in name order. A failure loading one file of a directory is logged
// and skipped; pages with no extractable text are dropped.
func (l *Loader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, err
	}

	var pages []domain.Page
	if info.IsDir() {
		files, err := matchingFiles(path)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%w: no documents in %s", domain.ErrEmptyInput, path)
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			p, err := loadFile(f)
			if err != nil {
				l.log.Warn("skipping document", "path", f, "error", err)
				continue
			}
			pages = append(pages, p...)
		}
	} else {
		pages, err = loadFile(path)
		if err != nil {
			return nil, err
		}
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: nothing loadable at %s", domain.ErrEmptyInput, path)
	}
	return pages, nil
}

func matchingFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func loadFile(path string) ([]domain.Page, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".txt", ".md":
		return loadText(path)
	default:
		return nil, fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
}

func loadText(path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []domain.Page{{Source: filepath.Base(path), Number: 1, Text: text}}, nil
}

// loadPDF extracts one page record per PDF page. The parser panics on some
// malformed files, so panics are converted to errors here.
func loadPDF(path string) (pages []domain.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parse pdf %s: %v", filepath.Base(path), r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	source := filepath.Base(path)
	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", i, source, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Source: source, Number: i, Text: text})
	}
	return pages, nil
}

// Package attachment turns downloaded attachments into bounded text for summarization.
package attachment

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/objstore"
	"github.com/tbxark/mailagent/types"
)

var ErrUnsupported = errors.New("unsupported attachment type")

type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindPDF
	KindSpreadsheet
	KindDocument
	KindCSV
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	case KindSpreadsheet:
		return "spreadsheet"
	case KindDocument:
		return "document"
	case KindCSV:
		return "csv"
	case KindText:
		return "text"
	default:
		return "unsupported"
	}
}

var extKinds = map[string]Kind{
	".jpg": KindImage, ".jpeg": KindImage, ".png": KindImage, ".gif": KindImage, ".bmp": KindImage,
	".pdf":  KindPDF,
	".xlsx": KindSpreadsheet, ".xlsm": KindSpreadsheet,
	".docx": KindDocument,
	".csv":  KindCSV,
	".txt":  KindText, ".md": KindText, ".log": KindText,
}

// Detect picks the extraction strategy from the content type, falling back to the file extension.
func Detect(contentType, name string) Kind {
	ct := strings.ToLower(contentType)
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ct == "":
	case strings.Contains(ct, "image"), strings.Contains(ct, "jpeg"), strings.Contains(ct, "png"),
		strings.Contains(ct, "gif"), strings.Contains(ct, "bmp"):
		return KindImage
	case strings.Contains(ct, "pdf"):
		return KindPDF
	case strings.Contains(ct, "spreadsheet"), strings.Contains(ct, "excel"):
		return KindSpreadsheet
	case strings.Contains(ct, "document"), strings.Contains(ct, "word"):
		return KindDocument
	case strings.Contains(ct, "text"), strings.Contains(ct, "csv"):
		if ext == ".csv" || strings.Contains(ct, "csv") {
			return KindCSV
		}
		return KindText
	}
	return extKinds[ext]
}

// Captioner describes an image file.
type Captioner interface {
	Caption(ctx context.Context, path string) (string, error)
}

// DocumentConverter extracts plain text from a word processing document.
type DocumentConverter interface {
	DocumentToText(ctx context.Context, path string) (string, error)
}

type Processor struct {
	store      objstore.Store
	scratchDir string
	captioner  Captioner
	converter  DocumentConverter
	limits     Limits
}

// Limits bounds how much of each attachment is extracted.
type Limits struct {
	PDFPages       int
	Sheets         int
	RowsPerSheet   int
	CSVRows        int
	DocParagraphs  int
	TextCharacters int
}

func DefaultLimits() Limits {
	return Limits{
		PDFPages:       5,
		Sheets:         5,
		RowsPerSheet:   100,
		CSVRows:        100,
		DocParagraphs:  200,
		TextCharacters: 10000,
	}
}

type Option func(*Processor)

func WithScratchDir(dir string) Option {
	return func(p *Processor) {
		p.scratchDir = dir
	}
}

func WithCaptioner(c Captioner) Option {
	return func(p *Processor) {
		p.captioner = c
	}
}

func WithDocumentConverter(c DocumentConverter) Option {
	return func(p *Processor) {
		p.converter = c
	}
}

func WithLimits(l Limits) Option {
	return func(p *Processor) {
		p.limits = l
	}
}

func NewProcessor(store objstore.Store, opts ...Option) *Processor {
	p := &Processor{
		store:     store,
		converter: PandocConverter{},
		limits:    DefaultLimits(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Process downloads the attachment into a private scratch directory, extracts its
// text and removes the scratch copy on every path.
func (p *Processor) Process(ctx context.Context, a types.Attachment) (string, error) {
	if a.BucketURL == "" {
		return "", errors.Errorf("attachment %s has no bucket url", a.Name)
	}
	kind := Detect(a.ContentType, a.Name)
	if kind == KindUnsupported {
		return "", errors.Wrapf(ErrUnsupported, "%s (%s)", a.Name, a.ContentType)
	}

	dir, err := os.MkdirTemp(p.scratchDir, "attachment-*")
	if err != nil {
		return "", errors.Wrap(err, "create scratch dir")
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to remove scratch dir")
		}
	}()

	name := unsafeName.ReplaceAllString(filepath.Base(a.Name), "_")
	if name == "" || name == "." || name == ".." {
		name = "attachment"
	}
	local := filepath.Join(dir, name)
	if err := p.store.Download(ctx, a.BucketURL, local); err != nil {
		return "", errors.Wrapf(err, "download %s", a.Name)
	}
	log.Debug().Str("attachment", a.Name).Stringer("kind", kind).Msg("processing attachment")

	switch kind {
	case KindImage:
		if p.captioner == nil {
			return "", errors.Wrap(ErrUnsupported, "no image captioner configured")
		}
		return p.captioner.Caption(ctx, local)
	case KindPDF:
		return ParsePDF(local, p.limits.PDFPages)
	case KindSpreadsheet:
		return ParseSpreadsheet(local, p.limits.Sheets, p.limits.RowsPerSheet)
	case KindDocument:
		return ParseDocument(ctx, p.converter, local, p.limits.DocParagraphs)
	case KindCSV:
		return ParseCSV(local, p.limits.CSVRows)
	case KindText:
		return ParseText(local, p.limits.TextCharacters)
	}
	return "", ErrUnsupported
}

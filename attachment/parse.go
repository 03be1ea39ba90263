package attachment

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/tbxark/mailagent/types"
)

const rowsTruncated = "... (remaining rows truncated) ..."

// ParsePDF extracts the text of the first pageLimit pages.
func ParsePDF(path string, pageLimit int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open pdf")
	}
	defer f.Close()

	total := r.NumPage()
	pages := min(total, pageLimit)
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i)
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", errors.Wrapf(err, "read page %d", i)
		}
		b.WriteString(text)
	}
	if total > pages {
		fmt.Fprintf(&b, "\n... (%d remaining pages truncated) ...", total-pages)
	}
	return strings.TrimSpace(b.String()), nil
}

// ParseSpreadsheet renders the first sheets of a workbook as markdown tables.
func ParseSpreadsheet(path string, sheetLimit, rowLimit int) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", errors.Wrap(err, "open workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	var b strings.Builder
	for i, name := range sheets {
		if i >= sheetLimit {
			fmt.Fprintf(&b, "\n... (remaining %d sheets truncated) ...\n", len(sheets)-i)
			break
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return "", errors.Wrapf(err, "read sheet %s", name)
		}
		fmt.Fprintf(&b, "\nSheet: %s\n", name)
		if len(rows) == 0 {
			b.WriteString("(empty)\n")
			continue
		}
		truncated := len(rows) > rowLimit
		if truncated {
			rows = rows[:rowLimit]
		}
		b.WriteString(table(rows))
		if truncated {
			b.WriteString(rowsTruncated + "\n")
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// table uses the first row as header, padded to the widest row.
func table(rows [][]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	header := make([]string, width)
	copy(header, rows[0])
	return types.MarkdownTable(header, rows[1:])
}

// ParseCSV keeps the header and at most rowLimit data rows.
func ParseCSV(path string, rowLimit int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open csv")
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var lines []string
	header, err := r.Read()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read csv header")
	}
	lines = append(lines, strings.Join(header, ","))
	for n := 0; ; n++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrapf(err, "read csv row %d", n+1)
		}
		if n >= rowLimit {
			lines = append(lines, rowsTruncated)
			break
		}
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n"), nil
}

// ParseText reads at most charLimit characters.
func ParseText(path string, charLimit int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open text file")
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var b strings.Builder
	for n := 0; n < charLimit; n++ {
		c, _, err := r.ReadRune()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", errors.Wrap(err, "read text file")
		}
		if c == utf8.RuneError {
			continue
		}
		b.WriteRune(c)
	}
	if _, _, err := r.ReadRune(); err == nil {
		b.WriteString("\n... (remaining content truncated) ...")
	}
	return b.String(), nil
}

// ParseDocument converts a document to text and keeps the first paragraphs.
func ParseDocument(ctx context.Context, conv DocumentConverter, path string, paragraphLimit int) (string, error) {
	if conv == nil {
		return "", errors.Wrap(ErrUnsupported, "no document converter configured")
	}
	text, err := conv.DocumentToText(ctx, path)
	if err != nil {
		return "", err
	}
	var paragraphs []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) <= paragraphLimit {
		return strings.Join(paragraphs, "\n"), nil
	}
	out := strings.Join(paragraphs[:paragraphLimit], "\n")
	return out + fmt.Sprintf("\n... (%d remaining paragraphs truncated) ...", len(paragraphs)-paragraphLimit), nil
}

const cmdPandoc = "pandoc"

// PandocConverter shells out to pandoc.
type PandocConverter struct{}

func (PandocConverter) DocumentToText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, cmdPandoc, "-f", "docx", "-t", "plain", "--wrap=none", path)
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrap(err, "pandoc conversion failed")
	}
	return string(out), nil
}

package attachment_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tbxark/mailagent/attachment"
	"github.com/tbxark/mailagent/testutil"
	"github.com/tbxark/mailagent/types"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		contentType string
		name        string
		want        attachment.Kind
	}{
		{"image/png", "a.png", attachment.KindImage},
		{"application/pdf", "a.pdf", attachment.KindPDF},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "a.xlsx", attachment.KindSpreadsheet},
		{"application/vnd.ms-excel", "a.xls", attachment.KindSpreadsheet},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "a.docx", attachment.KindDocument},
		{"text/csv", "a.csv", attachment.KindCSV},
		{"text/plain", "a.csv", attachment.KindCSV},
		{"text/plain", "notes.txt", attachment.KindText},
		{"", "scan.JPG", attachment.KindImage},
		{"application/octet-stream", "data.csv", attachment.KindCSV},
		{"application/zip", "a.zip", attachment.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.contentType+" "+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, attachment.Detect(tt.contentType, tt.name))
		})
	}
}

func newProcessor(t *testing.T, opts ...attachment.Option) (*attachment.Processor, *testutil.ObjectStore, string) {
	t.Helper()
	store := testutil.NewObjectStore()
	scratch := t.TempDir()
	opts = append([]attachment.Option{attachment.WithScratchDir(scratch)}, opts...)
	return attachment.NewProcessor(store, opts...), store, scratch
}

func assertScratchEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessCSV(t *testing.T) {
	p, store, scratch := newProcessor(t)
	var b strings.Builder
	b.WriteString("name,amount\n")
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&b, "row%d,%d\n", i, i)
	}
	store.Put("s3://b/data.csv", []byte(b.String()))

	out, err := p.Process(context.Background(), types.Attachment{Name: "data.csv", ContentType: "text/csv", BucketURL: "s3://b/data.csv"})
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 102)
	assert.Equal(t, "name,amount", lines[0])
	assert.Equal(t, "row99,99", lines[100])
	assert.Equal(t, "... (remaining rows truncated) ...", lines[101])
	assertScratchEmpty(t, scratch)
}

func TestProcessText(t *testing.T) {
	p, store, scratch := newProcessor(t, attachment.WithLimits(attachment.Limits{TextCharacters: 5}))
	store.Put("s3://b/n.txt", []byte("héllo world"))

	out, err := p.Process(context.Background(), types.Attachment{Name: "n.txt", ContentType: "text/plain", BucketURL: "s3://b/n.txt"})
	require.NoError(t, err)
	assert.Equal(t, "héllo\n... (remaining content truncated) ...", out)
	assertScratchEmpty(t, scratch)
}

func TestProcessSpreadsheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"item", "cost"}))
	for i := 2; i <= 120; i++ {
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i), &[]any{fmt.Sprintf("item%d", i), i}))
	}
	for i := 0; i < 6; i++ {
		_, err := f.NewSheet(fmt.Sprintf("Extra%d", i))
		require.NoError(t, err)
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	p, store, scratch := newProcessor(t)
	store.Put("s3://b/book.xlsx", data)
	out, err := p.Process(context.Background(), types.Attachment{
		Name:        "book.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		BucketURL:   "s3://b/book.xlsx",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Sheet: Sheet1")
	assert.Contains(t, out, "item100")
	assert.NotContains(t, out, "item101")
	assert.Contains(t, out, "... (remaining rows truncated) ...")
	assert.Contains(t, out, "... (remaining 2 sheets truncated) ...")
	assertScratchEmpty(t, scratch)
}

type fakeCaptioner struct {
	path string
}

func (c *fakeCaptioner) Caption(ctx context.Context, path string) (string, error) {
	c.path = path
	return "A bar chart of quarterly spend", nil
}

func TestProcessImage(t *testing.T) {
	c := &fakeCaptioner{}
	p, store, scratch := newProcessor(t, attachment.WithCaptioner(c))
	store.Put("s3://b/chart.png", []byte("png"))

	out, err := p.Process(context.Background(), types.Attachment{Name: "../chart.png", ContentType: "image/png", BucketURL: "s3://b/chart.png"})
	require.NoError(t, err)
	assert.Equal(t, "A bar chart of quarterly spend", out)
	assert.True(t, strings.HasPrefix(c.path, scratch))
	assertScratchEmpty(t, scratch)
}

type failingConverter struct{}

func (failingConverter) DocumentToText(ctx context.Context, path string) (string, error) {
	return "", errors.New("corrupt document")
}

func TestProcessFailureStillCleansScratch(t *testing.T) {
	p, store, scratch := newProcessor(t, attachment.WithDocumentConverter(failingConverter{}))
	store.Put("s3://b/a.docx", []byte("not a docx"))

	_, err := p.Process(context.Background(), types.Attachment{Name: "a.docx", ContentType: "application/msword", BucketURL: "s3://b/a.docx"})
	assert.Error(t, err)
	assertScratchEmpty(t, scratch)

	_, err = p.Process(context.Background(), types.Attachment{Name: "a.pdf", ContentType: "application/pdf", BucketURL: "s3://b/missing.pdf"})
	assert.Error(t, err)
	assertScratchEmpty(t, scratch)
}

func TestProcessUnsupported(t *testing.T) {
	p, store, _ := newProcessor(t)
	_, err := p.Process(context.Background(), types.Attachment{Name: "a.zip", ContentType: "application/zip", BucketURL: "s3://b/a.zip"})
	assert.True(t, errors.Is(err, attachment.ErrUnsupported))
	assert.Empty(t, store.Fetched(), "unsupported attachments are not downloaded")
}

type paragraphConverter struct {
	n int
}

func (c paragraphConverter) DocumentToText(ctx context.Context, path string) (string, error) {
	parts := make([]string, c.n)
	for i := range parts {
		parts[i] = fmt.Sprintf("Paragraph %d", i+1)
	}
	return strings.Join(parts, "\n\n"), nil
}

func TestParseDocumentLimit(t *testing.T) {
	out, err := attachment.ParseDocument(context.Background(), paragraphConverter{n: 205}, "x.docx", 200)
	require.NoError(t, err)
	assert.Contains(t, out, "Paragraph 200\n... (5 remaining paragraphs truncated) ...")
	assert.NotContains(t, out, "Paragraph 201")
}

func TestPandocConverter(t *testing.T) {
	if _, err := exec.LookPath("pandoc"); err != nil {
		t.Skip("pandoc not found in PATH")
	}
	_, err := attachment.PandocConverter{}.DocumentToText(context.Background(), filepath.Join(t.TempDir(), "missing.docx"))
	assert.Error(t, err)
}

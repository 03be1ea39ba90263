package summarizer_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/mailstore"
	"github.com/tbxark/mailagent/summarizer"
	"github.com/tbxark/mailagent/testutil"
	"github.com/tbxark/mailagent/types"
)

const sectionsJSON = `{"summary":"Alice and Bob agreed the Q3 budget.","key_points":"- marketing +10%","decisions_and_actions":"- final numbers by Friday (Alice)","attachment_analysis":"numbers.csv lists spend","timeline":"- Mar 1: draft\n- Mar 1: approved"}`

func summaryModel() *testutil.ChatModel {
	return testutil.NewChatModel(func(ctx context.Context, input []*schema.Message, opts *model.Options) (*schema.Message, error) {
		return testutil.ToolCallMessage("record_thread_summary", sectionsJSON), nil
	})
}

type fakeProcessor struct{}

func (fakeProcessor) Process(ctx context.Context, a types.Attachment) (string, error) {
	if a.Name == "broken.pdf" {
		return "", errors.New("corrupt pdf")
	}
	return "name,amount\nads,1000", nil
}

func newSummarizer(t *testing.T, cm *testutil.ChatModel) (*summarizer.Summarizer, *summarizer.FileCache) {
	t.Helper()
	db := testutil.NewMailDB(t)
	testutil.SeedThread(t, db)
	testutil.InsertAttachment(t, db, testutil.AttachmentRow{ID: "A1", EmailID: "E2", Name: "numbers.csv", ContentType: "text/csv", BucketURL: "s3://b/numbers.csv"})
	testutil.InsertAttachment(t, db, testutil.AttachmentRow{ID: "A2", EmailID: "E2", Name: "broken.pdf", ContentType: "application/pdf", BucketURL: "s3://b/broken.pdf"})
	cache, err := summarizer.NewFileCache(t.TempDir())
	require.NoError(t, err)
	s, err := summarizer.New(cm, mailstore.NewLoader(db), cache, summarizer.WithAttachmentProcessor(fakeProcessor{}), summarizer.WithWorkers(2))
	require.NoError(t, err)
	return s, cache
}

func TestGetOrCreateSummaryCaches(t *testing.T) {
	cm := summaryModel()
	s, cache := newSummarizer(t, cm)
	ctx := context.Background()

	first, err := s.GetOrCreateSummary(ctx, "C1", false)
	require.NoError(t, err)
	assert.Equal(t, "C1", first.ConversationID)
	assert.Equal(t, "Q3 budget", first.Subject)
	assert.Contains(t, first.Summary, "## Thread Summary\n\nAlice and Bob agreed the Q3 budget.")
	assert.Contains(t, first.Summary, "## Timeline")
	assert.FileExists(t, cache.Path("C1"))

	second, err := s.GetOrCreateSummary(ctx, "C1", false)
	require.NoError(t, err)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1, cm.CallCount())

	_, err = s.GetOrCreateSummary(ctx, "C1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, cm.CallCount())
}

func TestSummaryPromptContent(t *testing.T) {
	cm := summaryModel()
	s, _ := newSummarizer(t, cm)

	_, err := s.SummaryForEmail(context.Background(), "E3", false)
	require.NoError(t, err)
	require.Equal(t, 1, cm.CallCount())
	call := cm.Calls()[0]
	assert.True(t, testutil.HasTool(call.Options, "record_thread_summary"))

	prompt := testutil.PromptText(call.Input)
	assert.Contains(t, prompt, "- Total Emails: 3")
	assert.Contains(t, prompt, "- Time Span: 2024-03-01T09:00:00Z to 2024-03-01T14:00:00Z")
	assert.Contains(t, prompt, "From: Alice <alice@example.com>\nTo: Bob <bob@example.com>, Carol <carol@example.com>")
	assert.Less(t, strings.Index(prompt, "Please review"), strings.Index(prompt, "Approved, final"))
	assert.Contains(t, prompt, "Attachment: numbers.csv\nContent:\nname,amount")
	assert.NotContains(t, prompt, "broken.pdf")
}

func TestSummaryErrors(t *testing.T) {
	cm := summaryModel()
	s, _ := newSummarizer(t, cm)
	ctx := context.Background()

	_, err := s.GetOrCreateSummary(ctx, "nothing-here", false)
	assert.True(t, errors.Is(err, summarizer.ErrEmptyThread))

	_, err = s.SummaryForEmail(ctx, "missing", false)
	assert.True(t, errors.Is(err, summarizer.ErrNoConversation))
	assert.Equal(t, 0, cm.CallCount())
}

func TestNoAttachmentContent(t *testing.T) {
	db := testutil.NewMailDB(t)
	testutil.SeedThread(t, db)
	cache, err := summarizer.NewFileCache(t.TempDir())
	require.NoError(t, err)
	cm := summaryModel()
	s, err := summarizer.New(cm, mailstore.NewLoader(db), cache)
	require.NoError(t, err)

	_, err = s.GetOrCreateSummary(context.Background(), "C1", false)
	require.NoError(t, err)
	assert.Contains(t, testutil.PromptText(cm.Calls()[0].Input), "No attachment content available")
}

func TestBudgetLimits(t *testing.T) {
	b, err := summarizer.NewBudget(100000, 5000)
	require.NoError(t, err)
	thread, attachments := b.Limits()
	assert.Equal(t, 66500, thread)
	assert.Equal(t, 28500, attachments)
}

func TestBudgetTruncate(t *testing.T) {
	b, err := summarizer.NewBudget(100000, 5000)
	require.NoError(t, err)
	text := strings.Repeat("Budget review für das Quartal 日本語のテキスト 🚀 ", 200)

	for _, limit := range []int{1, 7, 50, 333} {
		out, err := b.Truncate(text, limit)
		require.NoError(t, err)
		n, err := b.Count(out)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, limit)
		assert.True(t, utf8.ValidString(out))
		assert.True(t, strings.HasPrefix(text, out))
	}

	short := "short text"
	out, err := b.Truncate(short, 100)
	require.NoError(t, err)
	assert.Equal(t, short, out)
}

func TestFileCachePath(t *testing.T) {
	dir := t.TempDir()
	c, err := summarizer.NewFileCache(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a_b_..json"), c.Path("a/b/."))
	assert.Equal(t, filepath.Join(dir, "AAQk_x.json"), c.Path(`AAQk\x`))

	got, err := c.Get("none")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(&types.ThreadSummary{ConversationID: "x/y", Summary: "s"}))
	got, err = c.Get("x/y")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s", got.Summary)
}

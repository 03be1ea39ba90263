package summarizer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/tbxark/mailagent/types"
)

// FileCache stores one JSON summary per conversation id.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create summaries dir")
	}
	return &FileCache{dir: dir}, nil
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "\x00", "_")

func (c *FileCache) Path(conversationID string) string {
	name := fileNameReplacer.Replace(conversationID)
	if name == "." || name == ".." {
		name = "_" + name
	}
	return filepath.Join(c.dir, name+".json")
}

// Get returns the cached summary, or nil when there is none.
func (c *FileCache) Get(conversationID string) (*types.ThreadSummary, error) {
	data, err := os.ReadFile(c.Path(conversationID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read cached summary")
	}
	var s types.ThreadSummary
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decode cached summary")
	}
	return &s, nil
}

// Put writes the summary through a temp file and rename.
func (c *FileCache) Put(s *types.ThreadSummary) error {
	data, err := sonic.ConfigStd.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode summary")
	}
	tmp, err := os.CreateTemp(c.dir, ".summary-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write summary")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync summary")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close summary")
	}
	if err := os.Rename(tmp.Name(), c.Path(s.ConversationID)); err != nil {
		return errors.Wrap(err, "rename summary")
	}
	return nil
}

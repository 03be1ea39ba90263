package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/types"
)

func TestMergeOverlayWins(t *testing.T) {
	replyTo := "caller@example.com"
	base := &types.EmailContext{EmailID: "E1", Subject: "old", ReplyToAddress: &replyTo}
	overlay := &types.EmailContext{EmailID: "E1", Subject: "Q3 budget", SenderEmail: "alice@example.com"}

	merged, err := Merge(base, overlay)
	require.NoError(t, err)
	assert.Equal(t, "Q3 budget", merged.Subject)
	assert.Equal(t, "alice@example.com", merged.SenderEmail)
	require.NotNil(t, merged.ReplyToAddress)
	assert.Equal(t, "caller@example.com", *merged.ReplyToAddress)
	assert.Equal(t, "old", base.Subject)
}

func TestMergeNil(t *testing.T) {
	overlay := &types.EmailContext{EmailID: "E1"}
	merged, err := Merge(nil, overlay)
	require.NoError(t, err)
	assert.Same(t, overlay, merged)

	base := &types.EmailContext{EmailID: "E2"}
	merged, err = Merge(base, nil)
	require.NoError(t, err)
	assert.Same(t, base, merged)
}

package mailstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplyTo(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		address string
		label   string
	}{
		{
			name:    "object",
			raw:     `[{"emailAddress": {"name": "Ann", "address": "ann@example.com"}}]`,
			address: "ann@example.com",
			label:   "Ann",
		},
		{
			name:    "single quoted literal",
			raw:     `[{"emailAddress": "{'name': 'Ann', 'address': 'ann@example.com'}"}]`,
			address: "ann@example.com",
			label:   "Ann",
		},
		{
			name:    "json string",
			raw:     `[{"emailAddress": "{\"name\": \"Ann\", \"address\": \"ann@example.com\"}"}]`,
			address: "ann@example.com",
			label:   "Ann",
		},
		{
			name:    "double encoded",
			raw:     `[{"emailAddress": "\"{\\\"address\\\": \\\"ann@example.com\\\"}\""}]`,
			address: "ann@example.com",
		},
		{
			name:    "escaped quote in name",
			raw:     `[{"emailAddress": "{'name': 'O\\'Neil', 'address': 'o@example.com'}"}]`,
			address: "o@example.com",
			label:   "O'Neil",
		},
		{name: "empty", raw: ""},
		{name: "empty list", raw: "[]"},
		{name: "not json", raw: "{'a': 1"},
		{name: "code", raw: `[{"emailAddress": "__import__('os')"}]`},
		{name: "nested value", raw: `[{"emailAddress": {"name": {"x": 1}, "address": "a@b.c"}}]`},
		{name: "trailing garbage", raw: `[{"emailAddress": "{'address': 'a@b.c'} or 1"}]`},
		{name: "bad address", raw: `[{"emailAddress": {"address": "not-an-address"}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseReplyTo(tt.raw)
			if tt.address == "" {
				assert.Nil(t, got.Address)
				assert.Nil(t, got.Name)
				return
			}
			require.NotNil(t, got.Address)
			assert.Equal(t, tt.address, *got.Address)
			if tt.label == "" {
				assert.Nil(t, got.Name)
			} else {
				require.NotNil(t, got.Name)
				assert.Equal(t, tt.label, *got.Name)
			}
		})
	}
}

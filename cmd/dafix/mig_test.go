package main

import (
	"context"
	"strings"
	"testing"

	"github.com/mb0/dafix/mig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notes = `
project: notes
schemas:
- vers: 4
  types:
  - name: note
    type: {record: {text: str}}
- vers: 5
  types:
  - name: note
    type: {record: {body: str}}
fixes:
- {vers: 5, type: note, rename: {from: text, to: body}}
`

func TestVersionRange(t *testing.T) {
	c, err := mig.ReadCatalog(strings.NewReader(notes))
	require.NoError(t, err)
	h, err := c.History(context.Background())
	require.NoError(t, err)
	tests := []struct {
		from, to         int64
		wantFrom, wantTo int64
	}{
		{0, 0, 4, 5},
		{5, 0, 5, 5},
		{0, 4, 4, 4},
		{4, 5, 4, 5},
	}
	for _, test := range tests {
		from, to := versionRange(h, test.from, test.to)
		assert.Equal(t, test.wantFrom, from, "from of %d %d", test.from, test.to)
		assert.Equal(t, test.wantTo, to, "to of %d %d", test.from, test.to)
	}
}

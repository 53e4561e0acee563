// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package httpapi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawatermelo/landtable/internal/httpapi"
	"github.com/iamawatermelo/landtable/internal/txn"
)

func TestToAirtableRecordsStripsFalsyValues(t *testing.T) {
	result := txn.RowResult{
		Rows: []txn.Row{
			{
				CreatedAt: "2024-01-01T00:00:00Z",
				Contents: map[string]any{
					"kept_string": "",
					"kept_number": 5,
					"zero":        0,
					"falseval":    false,
					"nullval":     nil,
					"emptylist":   []any{},
					"fulllist":    []any{1},
				},
			},
		},
	}

	records := httpapi.ToAirtableRecords(result)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "2024-01-01T00:00:00Z", rec.CreatedTime)

	_, hasZero := rec.Fields["zero"]
	_, hasFalse := rec.Fields["falseval"]
	_, hasNull := rec.Fields["nullval"]
	_, hasEmptyList := rec.Fields["emptylist"]
	assert.False(t, hasZero)
	assert.False(t, hasFalse)
	assert.False(t, hasNull)
	assert.False(t, hasEmptyList)

	assert.Equal(t, "", rec.Fields["kept_string"])
	assert.Equal(t, 5, rec.Fields["kept_number"])
	assert.Equal(t, []any{1}, rec.Fields["fulllist"])
}

// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Airtable-compatibility adapter (spec.md §6): shapes a
// LandtableTransaction's result back into Airtable's JSON conventions.
// The core's raw results are untouched by this stripping; it is purely
// a presentation-layer concern of the adapter.
package httpapi

import "github.com/iamawatermelo/landtable/internal/txn"

// AirtableRecord is the record shape returned by Airtable-compatible
// endpoints.
type AirtableRecord struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// ToAirtableRecords converts a RowResult into Airtable-shaped records,
// stripping fields whose value is the legacy "falsy" set {0, false,
// null, []} -- a compatibility wart the adapter owns, per spec.md §6.
func ToAirtableRecords(result txn.RowResult) []AirtableRecord {
	out := make([]AirtableRecord, 0, len(result.Rows))
	for _, row := range result.Rows {
		fields := make(map[string]any, len(row.Contents))
		for k, v := range row.Contents {
			if isAirtableFalsy(v) {
				continue
			}
			fields[k] = v
		}
		out = append(out, AirtableRecord{
			ID:          row.ID.String(),
			CreatedTime: row.CreatedAt,
			Fields:      fields,
		})
	}
	return out
}

func isAirtableFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case string:
		return false
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package metadata defines the gateway's logical data model --
// Workspace, Table, Field, and Database -- grounded on
// original_source/landtable/state/models.go.
//
// These are plain, frozen value types: they carry no behavior that
// requires I/O (that belongs to internal/metadatacache), only the
// computed views the backend needs to translate logical columns to
// physical ones (spec.md §4.H).
package metadata

import (
	"github.com/pkg/errors"

	"github.com/iamawatermelo/landtable/internal/formula/ast"
	"github.com/iamawatermelo/landtable/internal/identifier"
)

// FieldType enumerates every kind of field the gateway's logical model
// understands. Only a subset of these map onto a formula ast.Type; the
// rest reject formula references entirely (spec.md §3).
type FieldType string

const (
	FieldAttachment   FieldType = "attachment"
	FieldAutonumber   FieldType = "autonumber"
	FieldBarcode      FieldType = "barcode"
	FieldString       FieldType = "string"
	FieldBoolean      FieldType = "boolean"
	FieldCount        FieldType = "count"
	FieldCreatedAt    FieldType = "created_at"
	FieldCreatedBy    FieldType = "created_by"
	FieldCurrency     FieldType = "currency"
	FieldDatetime     FieldType = "datetime"
	FieldDuration     FieldType = "duration"
	FieldEmail        FieldType = "email"
	FieldModifiedBy   FieldType = "modified_by"
	FieldModifiedTime FieldType = "modified_time"
	FieldLinked       FieldType = "linked"
	FieldLongText     FieldType = "long_text"
	FieldLookup       FieldType = "lookup"
	FieldMultiSelect  FieldType = "multi_select"
	FieldNumber       FieldType = "number"
	FieldPercentage   FieldType = "percentage"
	FieldPhoneNumber  FieldType = "phone_number"
	FieldRating       FieldType = "rating"
	FieldShortText    FieldType = "short_text"
	FieldSelect       FieldType = "select"
	FieldURL          FieldType = "url"
	FieldUser         FieldType = "user"
)

// FieldReplicaConfig is the per-database configuration attached to a
// Field: principally, the physical column name it maps to.
type FieldReplicaConfig struct {
	ColumnName string `json:"column_name"`
}

// Field is a single exposed column of a Table. Fields are treated as
// immutable, matching spec.md §3's "frozen" invariant; since
// ReplicaConfig is a map, two Fields cannot be compared with ==.
type Field struct {
	ID            identifier.FieldIdentifier                       `json:"id"`
	Name          string                                           `json:"name"`
	Type          FieldType                                        `json:"type"`
	ReplicaConfig map[string]FieldReplicaConfig                    `json:"replica_config"`
}

// astTypeByFieldType maps the subset of FieldTypes that have a formula
// type onto it, per spec.md §3: "number->NUMBER; short_text/long_text/
// email->STRING; boolean->BOOLEAN; datetime->DATETIME".
var astTypeByFieldType = map[FieldType]ast.Type{
	FieldNumber:    ast.NUMBER,
	FieldShortText: ast.STRING,
	FieldLongText:  ast.STRING,
	FieldEmail:     ast.STRING,
	FieldBoolean:   ast.BOOLEAN,
	FieldDatetime:  ast.DATETIME,
}

// TypeToASTType maps this field's declared type to its formula ast
// type. Fields whose type has no formula representation return an
// error and must not be referenced by formulas (spec.md §4.H).
func (f Field) TypeToASTType() (ast.Type, error) {
	if t, ok := astTypeByFieldType[f.Type]; ok {
		return t, nil
	}
	return nil, errors.Errorf("unhandled type %s", f.Type)
}

// FetchReplicaConfig returns this field's configuration for dbID,
// defaulting to a column named after the field itself when no explicit
// configuration exists (spec.md §4.H).
func (f Field) FetchReplicaConfig(dbID identifier.DatabaseIdentifier) FieldReplicaConfig {
	if cfg, ok := f.ReplicaConfig[dbID.String()]; ok {
		return cfg
	}
	return FieldReplicaConfig{ColumnName: f.Name}
}

// TableReplicaConfig is the per-database configuration attached to a
// Table.
type TableReplicaConfig struct {
	TableName       string  `json:"table_name"`
	IDColumn        *string `json:"id_column"`
	CreatedAtColumn *string `json:"created_at_column"`
}

// Table is a logical table: a name, a read-only flag, and the set of
// fields the gateway is allowed to read or write.
type Table struct {
	ID            identifier.TableIdentifier            `json:"id"`
	Name          string                                `json:"name"`
	ReadOnly      bool                                  `json:"read_only"`
	ExposedFields []Field                                `json:"exposed_fields"`
	ReplicaConfig map[string]TableReplicaConfig          `json:"replica_config"`
}

// ResolveColumns returns the fields this table exposes that should be
// projected for a read/write, per spec.md §4.H: every exposed field
// when fields is nil, else the ones whose name or identifier string
// appears in fields.
func (t Table) ResolveColumns(fields map[string]struct{}) []Field {
	if fields == nil {
		return t.ExposedFields
	}
	out := make([]Field, 0, len(t.ExposedFields))
	for _, f := range t.ExposedFields {
		if _, ok := fields[f.Name]; ok {
			out = append(out, f)
			continue
		}
		if _, ok := fields[f.ID.String()]; ok {
			out = append(out, f)
		}
	}
	return out
}

// FetchReplicaConfig returns this table's configuration for dbID,
// defaulting to a table named after the table itself, with no id/
// created-at column configured, per spec.md §4.H.
func (t Table) FetchReplicaConfig(dbID identifier.DatabaseIdentifier) TableReplicaConfig {
	if cfg, ok := t.ReplicaConfig[dbID.String()]; ok {
		return cfg
	}
	return TableReplicaConfig{TableName: t.Name}
}

// ResolveField looks up one of this table's exposed fields by name or
// identifier string. Used to validate Create/Update row bodies
// (spec.md §4.K).
func (t Table) ResolveField(key string) (Field, bool) {
	for _, f := range t.ExposedFields {
		if f.Name == key || f.ID.String() == key {
			return f, true
		}
	}
	return Field{}, false
}

// DatabaseType discriminates the physical database kinds a Database
// value may hold (spec.md §3).
type DatabaseType string

const (
	DatabasePostgresV0 DatabaseType = "postgres_v0"
	DatabaseAirtableV0 DatabaseType = "airtable_v0"
)

// Database is a tagged union over the replica kinds the gateway can
// execute transactions against. Only one of the type-specific fields
// is populated, selected by Type.
type Database struct {
	ID   identifier.DatabaseIdentifier `json:"id"`
	Name string                        `json:"name"`
	Type DatabaseType                  `json:"type"`

	// postgres_v0
	ConnectionURL string `json:"connection_url,omitempty"`

	// airtable_v0
	APIURL  string `json:"api_url,omitempty"`
	BaseID  string `json:"base_id,omitempty"`
	TableID string `json:"table_id,omitempty"`
}

// Workspace is the top-level container that designates a primary
// replica for its tables.
type Workspace struct {
	ID             identifier.WorkspaceIdentifier `json:"id"`
	Name           string                         `json:"name"`
	PrimaryReplica identifier.DatabaseIdentifier  `json:"primary_replica"`
}

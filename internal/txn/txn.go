// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package txn defines the gateway's transaction operations -- Fetch,
// Delete, Create, Update, UpdateByFormula -- and the validation rules
// that apply to them before execution (spec.md §3, §4.K), grounded on
// original_source/landtable/backends/abstract.go.
package txn

import (
	"encoding/json"

	"github.com/iamawatermelo/landtable/internal/apierror"
	"github.com/iamawatermelo/landtable/internal/formula"
	"github.com/iamawatermelo/landtable/internal/identifier"
	"github.com/iamawatermelo/landtable/internal/metadata"
)

// Consistency selects the isolation level a transaction executes at
// (spec.md §3, §4.L).
type Consistency string

const (
	Strict  Consistency = "STRICT"
	Relaxed Consistency = "RELAXED"
	None    Consistency = "NONE"
)

// FailOn is the comparison a FailureStrategy applies to the affected
// row count.
type FailOn string

const (
	FailEQ FailOn = "eq"
	FailNE FailOn = "neq"
	FailGT FailOn = "gt"
	FailGE FailOn = "ge"
	FailLT FailOn = "lt"
	FailLE FailOn = "le"
)

// FailureStrategy is a post-condition on the number of rows a Fetch or
// Delete operation affects (spec.md §3).
type FailureStrategy struct {
	ExecTarget *int        `json:"exec_target,omitempty"`
	OrderBy    formula.Raw `json:"order_by,omitempty"`
	FailType   *FailOn     `json:"fail_type,omitempty"`
}

// Validate enforces the invariant in spec.md §4.K: if ExecTarget is
// set, FailType must also be set.
func (f FailureStrategy) Validate() error {
	if f.ExecTarget != nil && f.FailType == nil {
		return apierror.BadRequestf("failure_strategy.exec_target requires fail_type to also be set")
	}
	return nil
}

// RowTarget addresses a single row by identifier.
type RowTarget struct {
	ID identifier.RowIdentifier `json:"id"`
}

// FormulaTarget addresses whatever rows a formula predicate matches.
type FormulaTarget struct {
	Formula formula.Raw `json:"formula"`
}

// Target is either a RowTarget or a FormulaTarget; exactly one of the
// two fields is populated, mirroring the tagged-union shape of
// spec.md §3.
type Target struct {
	Row     *RowTarget     `json:"row,omitempty"`
	Formula *FormulaTarget `json:"formula_target,omitempty"`
}

// UnmarshalJSON accepts either {"id": "lrw:..."} (a RowTarget) or
// {"formula": "..."} (a FormulaTarget), matching the Target union
// described in spec.md §3.
func (t *Target) UnmarshalJSON(data []byte) error {
	var probe struct {
		ID      *string `json:"id"`
		Formula *string `json:"formula"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe.ID != nil:
		id, err := identifier.ParseRow(*probe.ID)
		if err != nil {
			return apierror.BadRequestf("invalid row target: %v", err)
		}
		t.Row = &RowTarget{ID: id}
	case probe.Formula != nil:
		t.Formula = &FormulaTarget{Formula: formula.Raw(*probe.Formula)}
	default:
		return apierror.BadRequestf("target must have either an id or a formula")
	}
	return nil
}

// MarshalJSON emits the same {"id": ...} / {"formula": ...} shape
// UnmarshalJSON accepts.
func (t Target) MarshalJSON() ([]byte, error) {
	switch {
	case t.Row != nil:
		return json.Marshal(map[string]identifier.RowIdentifier{"id": t.Row.ID})
	case t.Formula != nil:
		return json.Marshal(map[string]formula.Raw{"formula": t.Formula.Formula})
	default:
		return nil, apierror.BadRequestf("target must have either an id or a formula")
	}
}

// FieldSet is the optional column-projection set on a Fetch/Delete,
// carried over the wire as a JSON array of field names or identifiers
// (spec.md §3's "fields?: set<string>").
type FieldSet map[string]struct{}

// UnmarshalJSON implements json.Unmarshaler, accepting a JSON array of
// strings.
func (s *FieldSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	set := make(FieldSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	*s = set
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s FieldSet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	return json.Marshal(names)
}

// OpType discriminates the operation variants below.
type OpType string

const (
	OpFetch           OpType = "fetch"
	OpDelete          OpType = "delete"
	OpCreate          OpType = "create"
	OpUpdate          OpType = "update"
	OpUpdateByFormula OpType = "updateByFormula"
)

// Fetch reads rows matching target, up to limit, projecting fields (or
// every exposed field, if nil).
type Fetch struct {
	Target          Target           `json:"target"`
	Limit           int              `json:"limit"`
	Sort            formula.Raw      `json:"sort"`
	Fields          FieldSet         `json:"fields,omitempty"`
	FailureStrategy *FailureStrategy `json:"failure_strategy,omitempty"`
}

// Delete removes rows matching target, up to limit.
type Delete struct {
	Target          Target           `json:"target"`
	Limit           int              `json:"limit"`
	Sort            formula.Raw      `json:"sort"`
	Fields          FieldSet         `json:"fields,omitempty"`
	FailureStrategy *FailureStrategy `json:"failure_strategy,omitempty"`
}

// Create inserts a single new row.
type Create struct {
	Row map[string]any `json:"row"`
}

// Update overwrites fields on the row(s) matching target.
type Update struct {
	Target Target         `json:"target"`
	Row    map[string]any `json:"row"`
}

// UpdateByFormula overwrites fields on the row(s) matching target,
// where each field's new value is itself computed by a formula.
type UpdateByFormula struct {
	Target      Target                 `json:"target"`
	ExecFormula map[string]formula.Raw `json:"exec_formula"`
}

// Operation is a single typed member of a Transaction's op list.
// Exactly one field is non-nil, selected by Type.
type Operation struct {
	Type            OpType
	Fetch           *Fetch
	Delete          *Delete
	Create          *Create
	Update          *Update
	UpdateByFormula *UpdateByFormula
}

// UnmarshalJSON decodes an Operation from `{"type": "fetch", "fetch":
// {...}}` (and so on for the other four variants), mirroring Target's
// tagged-union decoding above.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type            OpType           `json:"type"`
		Fetch           *Fetch           `json:"fetch"`
		Delete          *Delete          `json:"delete"`
		Create          *Create          `json:"create"`
		Update          *Update          `json:"update"`
		UpdateByFormula *UpdateByFormula `json:"updateByFormula"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	switch probe.Type {
	case OpFetch:
		if probe.Fetch == nil {
			return apierror.BadRequestf("fetch operation is missing its fetch body")
		}
	case OpDelete:
		if probe.Delete == nil {
			return apierror.BadRequestf("delete operation is missing its delete body")
		}
	case OpCreate:
		if probe.Create == nil {
			return apierror.BadRequestf("create operation is missing its create body")
		}
	case OpUpdate:
		if probe.Update == nil {
			return apierror.BadRequestf("update operation is missing its update body")
		}
	case OpUpdateByFormula:
		if probe.UpdateByFormula == nil {
			return apierror.BadRequestf("updateByFormula operation is missing its updateByFormula body")
		}
	default:
		return apierror.BadRequestf("unknown operation type %q", probe.Type)
	}

	op.Type = probe.Type
	op.Fetch = probe.Fetch
	op.Delete = probe.Delete
	op.Create = probe.Create
	op.Update = probe.Update
	op.UpdateByFormula = probe.UpdateByFormula
	return nil
}

// MarshalJSON emits an Operation in the same tagged-union shape
// UnmarshalJSON accepts.
func (op Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type            OpType           `json:"type"`
		Fetch           *Fetch           `json:"fetch,omitempty"`
		Delete          *Delete          `json:"delete,omitempty"`
		Create          *Create          `json:"create,omitempty"`
		Update          *Update          `json:"update,omitempty"`
		UpdateByFormula *UpdateByFormula `json:"updateByFormula,omitempty"`
	}{op.Type, op.Fetch, op.Delete, op.Create, op.Update, op.UpdateByFormula})
}

// Validate applies the pre-execution checks in spec.md §4.K: a
// Fetch/Delete's failure strategy must be internally consistent, and a
// Create/Update's row keys must all resolve to exposed fields on the
// given table.
func (op Operation) Validate(table metadata.Table) error {
	switch op.Type {
	case OpFetch:
		if op.Fetch.FailureStrategy != nil {
			return op.Fetch.FailureStrategy.Validate()
		}
	case OpDelete:
		if op.Delete.FailureStrategy != nil {
			return op.Delete.FailureStrategy.Validate()
		}
	case OpCreate:
		return validateRowKeys(table, op.Create.Row)
	case OpUpdate:
		return validateRowKeys(table, op.Update.Row)
	case OpUpdateByFormula:
		for key := range op.UpdateByFormula.ExecFormula {
			if _, ok := table.ResolveField(key); !ok {
				return apierror.BadRequestf("unknown field %q", key)
			}
		}
	}
	return nil
}

func validateRowKeys(table metadata.Table, row map[string]any) error {
	for key := range row {
		if _, ok := table.ResolveField(key); !ok {
			return apierror.BadRequestf("unknown field %q", key)
		}
	}
	return nil
}

// Transaction is an ordered batch of operations executed atomically
// against a single physical database (spec.md §3).
type Transaction struct {
	Ops   []Operation `json:"ops"`
	UseID bool        `json:"use_id"`
}

// ReadOnly reports whether every operation in the transaction is a
// Fetch, per spec.md §3's derived "read_only" property.
func (t Transaction) ReadOnly() bool {
	for _, op := range t.Ops {
		if op.Type != OpFetch {
			return false
		}
	}
	return true
}

// Row is a single result row.
type Row struct {
	ID        identifier.RowIdentifier `json:"id"`
	CreatedAt string                   `json:"created_at"`
	Contents  map[string]any           `json:"contents"`
}

// RowResult is the result of a Fetch, Delete, or UpdateByFormula
// operation.
type RowResult struct {
	Rows []Row `json:"rows"`
}

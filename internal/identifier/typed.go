// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package identifier

import "encoding/json"

// The typed aliases below constrain an Identifier to a single
// namespace, both at construction time (via their Parse functions) and
// at the JSON boundary (via custom (Un)MarshalJSON that re-validates
// the namespace on the way in).

// TableIdentifier is an Identifier constrained to the "ltb" namespace.
type TableIdentifier struct{ Identifier }

// ParseTable parses s as a TableIdentifier.
func ParseTable(s string) (TableIdentifier, error) {
	id, err := ParseNamespace(NamespaceTable, s)
	return TableIdentifier{id}, err
}

// FieldIdentifier is an Identifier constrained to the "lfd" namespace.
type FieldIdentifier struct{ Identifier }

// ParseField parses s as a FieldIdentifier.
func ParseField(s string) (FieldIdentifier, error) {
	id, err := ParseNamespace(NamespaceField, s)
	return FieldIdentifier{id}, err
}

// WorkspaceIdentifier is an Identifier constrained to the "lwk" namespace.
type WorkspaceIdentifier struct{ Identifier }

// ParseWorkspace parses s as a WorkspaceIdentifier.
func ParseWorkspace(s string) (WorkspaceIdentifier, error) {
	id, err := ParseNamespace(NamespaceWorkspace, s)
	return WorkspaceIdentifier{id}, err
}

// RowIdentifier is an Identifier constrained to the "lrw" namespace.
type RowIdentifier struct{ Identifier }

// ParseRow parses s as a RowIdentifier. Legacy Airtable-style "rec..."
// prefixes are rejected, as with any other malformed identifier.
func ParseRow(s string) (RowIdentifier, error) {
	id, err := ParseNamespace(NamespaceRow, s)
	return RowIdentifier{id}, err
}

// DatabaseIdentifier is an Identifier constrained to the "ldb" namespace.
type DatabaseIdentifier struct{ Identifier }

// ParseDatabase parses s as a DatabaseIdentifier.
func ParseDatabase(s string) (DatabaseIdentifier, error) {
	id, err := ParseNamespace(NamespaceDatabase, s)
	return DatabaseIdentifier{id}, err
}

func (id TableIdentifier) MarshalJSON() ([]byte, error) { return id.Identifier.MarshalJSON() }
func (id *TableIdentifier) UnmarshalJSON(data []byte) error {
	var inner Identifier
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	parsed, err := ParseNamespace(NamespaceTable, inner.String())
	if err != nil {
		return err
	}
	*id = TableIdentifier{parsed}
	return nil
}

func (id FieldIdentifier) MarshalJSON() ([]byte, error) { return id.Identifier.MarshalJSON() }
func (id *FieldIdentifier) UnmarshalJSON(data []byte) error {
	var inner Identifier
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	parsed, err := ParseNamespace(NamespaceField, inner.String())
	if err != nil {
		return err
	}
	*id = FieldIdentifier{parsed}
	return nil
}

func (id WorkspaceIdentifier) MarshalJSON() ([]byte, error) { return id.Identifier.MarshalJSON() }
func (id *WorkspaceIdentifier) UnmarshalJSON(data []byte) error {
	var inner Identifier
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	parsed, err := ParseNamespace(NamespaceWorkspace, inner.String())
	if err != nil {
		return err
	}
	*id = WorkspaceIdentifier{parsed}
	return nil
}

func (id RowIdentifier) MarshalJSON() ([]byte, error) { return id.Identifier.MarshalJSON() }
func (id *RowIdentifier) UnmarshalJSON(data []byte) error {
	var inner Identifier
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	parsed, err := ParseNamespace(NamespaceRow, inner.String())
	if err != nil {
		return err
	}
	*id = RowIdentifier{parsed}
	return nil
}

func (id DatabaseIdentifier) MarshalJSON() ([]byte, error) { return id.Identifier.MarshalJSON() }
func (id *DatabaseIdentifier) UnmarshalJSON(data []byte) error {
	var inner Identifier
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	parsed, err := ParseNamespace(NamespaceDatabase, inner.String())
	if err != nil {
		return err
	}
	*id = DatabaseIdentifier{parsed}
	return nil
}

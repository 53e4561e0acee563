// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package identifier implements Landtable's "{ns}:{uuid-hex}" identifier
// codec, grounded on original_source/landtable/identifiers.py. The
// canonical form is fixed at 36 characters (a 3-letter namespace, a
// colon, and 32 hex digits) -- the only form consistent with storing a
// full UUID, per spec.md §9 Open Question 2.
package identifier

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Namespace is the 3-letter tag identifying what kind of entity an
// Identifier refers to.
type Namespace string

const (
	NamespaceTable     Namespace = "ltb"
	NamespaceField     Namespace = "lfd"
	NamespaceWorkspace Namespace = "lwk"
	NamespaceRow       Namespace = "lrw"
	NamespaceDatabase  Namespace = "ldb"
)

func (n Namespace) valid() bool {
	switch n {
	case NamespaceTable, NamespaceField, NamespaceWorkspace, NamespaceRow, NamespaceDatabase:
		return true
	default:
		return false
	}
}

// Identifier is a tuple (namespace, uuid). Equality and hashing are
// over both fields; since uuid.UUID is a comparable array type,
// Identifier is itself comparable and usable as a map key.
type Identifier struct {
	Namespace Namespace
	UUID      uuid.UUID
}

// Canonical length: "nnn" + ":" + 32 hex chars.
const canonicalLength = 3 + 1 + 32

// Parse parses an identifier of the form "nnn:<32-hex>". It rejects any
// string whose length isn't exactly 36, whose 4th character (index 3)
// isn't ':', or whose hex payload doesn't decode to 16 bytes.
func Parse(s string) (Identifier, error) {
	if len(s) != canonicalLength {
		return Identifier{}, errors.Errorf("identifier %q has invalid length (expected %d, got %d)", s, canonicalLength, len(s))
	}
	if s[3] != ':' {
		return Identifier{}, errors.Errorf("identifier %q should be delimited with ':' at index 3", s)
	}

	ns := Namespace(s[:3])
	if !ns.valid() {
		return Identifier{}, errors.Errorf("identifier %q has unknown namespace %q", s, ns)
	}

	raw, err := hex.DecodeString(s[4:])
	if err != nil {
		return Identifier{}, errors.Wrapf(err, "identifier %q has invalid hex payload", s)
	}
	if len(raw) != 16 {
		return Identifier{}, errors.Errorf("identifier %q does not encode a 16-byte uuid", s)
	}

	id, err := uuid.FromBytes(raw)
	if err != nil {
		return Identifier{}, errors.Wrapf(err, "identifier %q has invalid uuid payload", s)
	}

	return Identifier{Namespace: ns, UUID: id}, nil
}

// ParseNamespace parses s and additionally requires that its namespace
// equal want.
func ParseNamespace(want Namespace, s string) (Identifier, error) {
	id, err := Parse(s)
	if err != nil {
		return Identifier{}, err
	}
	if id.Namespace != want {
		return Identifier{}, errors.Errorf("expected identifier with namespace %s (got %s)", want, id.Namespace)
	}
	return id, nil
}

// New builds an Identifier from a namespace and a uuid directly,
// without going through string parsing.
func New(ns Namespace, id uuid.UUID) Identifier {
	return Identifier{Namespace: ns, UUID: id}
}

// NewRandom generates a fresh random Identifier in the given namespace.
func NewRandom(ns Namespace) Identifier {
	return Identifier{Namespace: ns, UUID: uuid.New()}
}

// String renders the canonical "nnn:<32-hex>" form.
func (id Identifier) String() string {
	return fmt.Sprintf("%s:%s", id.Namespace, hex.EncodeToString(id.UUID[:]))
}

// MarshalJSON implements json.Marshaler; the canonical string form is
// the JSON representation.
func (id Identifier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler, accepting either a JSON
// string in canonical form or (for round-tripping already-typed
// values) an object shaped like {"namespace":"...","uuid":"..."}.
func (id *Identifier) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		parsed, err := Parse(string(data[1 : len(data)-1]))
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}

	var obj struct {
		Namespace Namespace `json:"namespace"`
		UUID      string    `json:"uuid"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Wrap(err, "identifier must be a canonical string or a {namespace,uuid} object")
	}
	u, err := uuid.Parse(obj.UUID)
	if err != nil {
		return err
	}
	*id = Identifier{Namespace: obj.Namespace, UUID: u}
	return nil
}

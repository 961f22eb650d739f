package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidRecordID indicates a malformed table name or key.
var ErrInvalidRecordID = errors.New("invalid record ID: want <table>:<key> with a lowercase table name")

// tableRegex validates table and edge names.
// Format: lowercase letter followed by up to 62 lowercase letters, digits
// or underscores.
var tableRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// RecordID identifies a record or edge as table:key.
type RecordID struct {
	Table string
	Key   string
}

// NewRecordID builds an identifier from a table name and an integer or
// string key. A relational row N of kind T maps to T:N.
func NewRecordID(table string, key any) RecordID {
	var k string
	switch v := key.(type) {
	case string:
		k = v
	case int:
		k = strconv.Itoa(v)
	case int32:
		k = strconv.FormatInt(int64(v), 10)
	case int64:
		k = strconv.FormatInt(v, 10)
	case fmt.Stringer:
		k = v.String()
	default:
		k = fmt.Sprint(v)
	}
	return RecordID{Table: table, Key: k}
}

// ParseRecordID parses the canonical table:key form.
func ParseRecordID(s string) (RecordID, error) {
	table, key, ok := strings.Cut(s, ":")
	if !ok {
		return RecordID{}, ErrInvalidRecordID
	}
	id := RecordID{Table: table, Key: key}
	if err := id.Validate(); err != nil {
		return RecordID{}, err
	}
	return id, nil
}

// String returns the canonical table:key form.
func (id RecordID) String() string {
	return id.Table + ":" + id.Key
}

// IsZero reports whether id is unset.
func (id RecordID) IsZero() bool {
	return id.Table == "" && id.Key == ""
}

// Validate checks the table name and key.
func (id RecordID) Validate() error {
	if err := ValidateTable(id.Table); err != nil {
		return err
	}
	if id.Key == "" || len(id.Key) > 256 {
		return ErrInvalidRecordID
	}
	return nil
}

// IntKey returns the key as an integer.
func (id RecordID) IntKey() (int64, error) {
	n, err := strconv.ParseInt(id.Key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s has a non-integer key", ErrInvalidRecordID, id)
	}
	return n, nil
}

// MarshalJSON encodes the identifier as its canonical string.
func (id RecordID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.String())
}

// UnmarshalJSON decodes the canonical string form.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = RecordID{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRecordID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ValidateTable validates a record or edge table name.
func ValidateTable(table string) error {
	if !tableRegex.MatchString(table) {
		return ErrInvalidRecordID
	}
	return nil
}

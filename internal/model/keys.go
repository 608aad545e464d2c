package model

import (
	"fmt"
	"strings"
)

// sentinelKeys are the only `$`-prefixed keys allowed to persist in a log
// record, at any depth of the document.
var sentinelKeys = map[string]bool{
	"$$date":         true,
	"$$deleted":      true,
	"$$indexCreated": true,
	"$$indexRemoved": true,
}

// ErrInvalidKey reports a key-name invariant violation.
type ErrInvalidKey struct {
	Key    string
	Reason string
}

func (e *ErrInvalidKey) Error() string {
	return fmt.Sprintf("invalid key %q: %s", e.Key, e.Reason)
}

// ValidateKey checks a single key name against the key-name invariants:
// a key beginning with `$` is forbidden except the sentinel forms, and a
// key must not contain `.`.
func ValidateKey(key string) error {
	if sentinelKeys[key] {
		return nil
	}
	if strings.HasPrefix(key, "$") {
		return &ErrInvalidKey{Key: key, Reason: "keys may not begin with '$'"}
	}
	if strings.Contains(key, ".") {
		return &ErrInvalidKey{Key: key, Reason: "keys may not contain '.'"}
	}
	return nil
}

// ValidateDoc recursively validates every key in a document tree, called on
// every insert and on the result of every modification.
func ValidateDoc(doc any) error {
	switch v := doc.(type) {
	case map[string]any:
		for k, val := range v {
			if err := ValidateKey(k); err != nil {
				return err
			}
			if err := ValidateDoc(val); err != nil {
				return err
			}
		}
	case []any:
		for _, val := range v {
			if err := ValidateDoc(val); err != nil {
				return err
			}
		}
	}
	return nil
}

package property

import (
	"fmt"
	"sync/atomic"

	"github.com/roach88/propstore/internal/value"
)

// nextOrdinal hands out creation ordinals. Ordinals only order iteration;
// identity is the pointer.
var nextOrdinal atomic.Uint64

// Key identifies one typed storage slot. Always use *Key; the zero Key is not
// a valid slot.
type Key struct {
	name     string
	kind     value.Kind
	nullable bool
	ordinal  uint64
}

// KeyOption configures a Key at creation.
type KeyOption func(*Key)

// Nullable lets the slot hold value.Null{} in addition to its kind.
func Nullable() KeyOption {
	return func(k *Key) {
		k.nullable = true
	}
}

// NewKey creates a new slot. Panics if kind is not a slot kind, since keys are
// normally package-level declarations and a bad kind is a programming error.
func NewKey(name string, kind value.Kind, opts ...KeyOption) *Key {
	if kind == value.KindInvalid || kind == value.KindNull {
		panic(fmt.Sprintf("property.NewKey(%q): invalid slot kind %s", name, kind))
	}
	k := &Key{
		name:    name,
		kind:    kind,
		ordinal: nextOrdinal.Add(1),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Name returns the diagnostic name given at creation.
func (k *Key) Name() string { return k.name }

// Kind returns the value kind the slot accepts.
func (k *Key) Kind() value.Kind { return k.kind }

// IsNullable reports whether value.Null{} is accepted.
func (k *Key) IsNullable() bool { return k.nullable }

// Ordinal returns the creation ordinal. Keys created earlier sort first.
func (k *Key) Ordinal() uint64 { return k.ordinal }

// Accepts reports whether v may be stored under k.
func (k *Key) Accepts(v value.Value) bool {
	if v == nil {
		return false
	}
	switch value.KindOf(v) {
	case k.kind:
		return true
	case value.KindNull:
		return k.nullable
	default:
		return false
	}
}

// Check returns a TYPE_MISMATCH error when v may not be stored under k.
func (k *Key) Check(v value.Value) error {
	if k.Accepts(v) {
		return nil
	}
	return &Error{
		Code:    ErrCodeTypeMismatch,
		Key:     k.name,
		Message: fmt.Sprintf("value of kind %s does not satisfy %s", value.KindOf(v), k.describe()),
	}
}

func (k *Key) describe() string {
	if k.nullable {
		return k.kind.String() + "?"
	}
	return k.kind.String()
}

// String renders the key as name:kind#ordinal, e.g. "Count:int#3".
func (k *Key) String() string {
	return fmt.Sprintf("%s:%s#%d", k.name, k.describe(), k.ordinal)
}

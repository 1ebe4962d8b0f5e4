package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	keyTagInt byte = 'i'
	keyTagStr byte = 's'
)

// Key identifies a record. It holds either a string or an integer; the two
// spaces never collide.
type Key struct {
	str   string
	num   int64
	isInt bool
}

func StringKey(s string) Key { return Key{str: s} }

func IntKey(n int64) Key { return Key{num: n, isInt: true} }

func (k Key) IsInt() bool { return k.isInt }

func (k Key) Int() int64 { return k.num }

func (k Key) String() string {
	if k.isInt {
		return strconv.FormatInt(k.num, 10)
	}
	return k.str
}

// encode returns the engine key. Integer keys sort numerically.
func (k Key) encode() []byte {
	if k.isInt {
		b := make([]byte, 9)
		b[0] = keyTagInt
		binary.BigEndian.PutUint64(b[1:], uint64(k.num)^(1<<63))
		return b
	}
	b := make([]byte, 1+len(k.str))
	b[0] = keyTagStr
	copy(b[1:], k.str)
	return b
}

func decodeKey(b []byte) (Key, error) {
	if len(b) == 0 {
		return Key{}, fmt.Errorf("cache: empty key")
	}
	switch b[0] {
	case keyTagInt:
		if len(b) != 9 {
			return Key{}, fmt.Errorf("cache: bad integer key length %d", len(b))
		}
		return IntKey(int64(binary.BigEndian.Uint64(b[1:]) ^ (1 << 63))), nil
	case keyTagStr:
		return StringKey(string(b[1:])), nil
	}
	return Key{}, fmt.Errorf("cache: unknown key tag %q", b[0])
}

func (k Key) MarshalJSON() ([]byte, error) {
	if k.isInt {
		return json.Marshal(k.num)
	}
	return json.Marshal(k.str)
}

func (k *Key) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*k = StringKey(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("cache: key must be a string or integer: %w", err)
	}
	*k = IntKey(n)
	return nil
}

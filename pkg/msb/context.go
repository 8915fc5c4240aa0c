package msb

import (
	"fmt"
	"strings"

	"github.com/me/msbkit/pkg/coords"
)

// Well-known context keys.
const (
	KeyTarget     = "target"     // coords.Coordinate
	KeyCoordsKind = "coordsKind" // coords.Kind
	KeyCoordTags  = "coordTags"  // []coords.Tagged
	KeyAutoTarget = "autoTarget"
	KeyInstrument = "instrument"
	KeyWaveband   = "waveband"
	KeyTelescope  = "telescope"
	KeyDRRecipe   = "drRecipe"
	KeyWaveplate  = "waveplate" // []string

	KeyOffsetDX     = "OFFSET_DX"
	KeyOffsetDY     = "OFFSET_DY"
	KeyOffsetPA     = "OFFSET_PA"
	KeyOffsetSystem = "OFFSET_SYSTEM"
	KeyChopThrow    = "CHOP_THROW"
	KeyChopPA       = "CHOP_PA"
	KeyChopSystem   = "CHOP_SYSTEM"

	// Prefixes for site-quality and scheduling-constraint fields.
	PrefixWeather  = "weather."
	PrefixSchedule = "schedule."
)

var targetKeys = []string{KeyTarget, KeyCoordsKind, KeyCoordTags, KeyAutoTarget}

// Context is an insertion-ordered key/value map. Its methods never modify
// the receiver: every update returns a new Context, so a child's overrides
// are invisible to its siblings.
type Context struct {
	keys []string
	vals map[string]any
}

// NewContext returns a context holding the given key/value pairs in order.
func NewContext(kv ...any) Context {
	var c Context
	for i := 0; i+1 < len(kv); i += 2 {
		c.set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return c
}

func (c Context) clone() Context {
	out := Context{
		keys: make([]string, len(c.keys), len(c.keys)+4),
		vals: make(map[string]any, len(c.vals)+4),
	}
	copy(out.keys, c.keys)
	for k, v := range c.vals {
		out.vals[k] = v
	}
	return out
}

// set mutates c in place and must only be used on a fresh clone.
func (c *Context) set(key string, val any) {
	if c.vals == nil {
		c.vals = make(map[string]any)
	}
	if _, ok := c.vals[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.vals[key] = val
}

func (c *Context) del(key string) {
	if _, ok := c.vals[key]; !ok {
		return
	}
	delete(c.vals, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i:i], c.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (c Context) Len() int {
	return len(c.keys)
}

// Keys returns the keys in insertion order.
func (c Context) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Get returns the value stored under key.
func (c Context) Get(key string) (any, bool) {
	v, ok := c.vals[key]
	return v, ok
}

// String returns the value under key formatted as a string, or "".
func (c Context) String(key string) string {
	v, ok := c.vals[key]
	if !ok {
		return ""
	}
	return formatValue(v)
}

// Target returns the primary target position, if any.
func (c Context) Target() (coords.Coordinate, bool) {
	t, ok := c.vals[KeyTarget].(coords.Coordinate)
	return t, ok
}

// CoordTags returns the secondary positions in document order.
func (c Context) CoordTags() []coords.Tagged {
	tags, _ := c.vals[KeyCoordTags].([]coords.Tagged)
	return tags
}

// With returns a copy of c with key set to val. An existing key keeps its
// position.
func (c Context) With(key string, val any) Context {
	out := c.clone()
	out.set(key, val)
	return out
}

// Merge returns a copy of c overlaid with every entry of o, in o's order.
func (c Context) Merge(o Context) Context {
	if o.Len() == 0 {
		return c
	}
	out := c.clone()
	for _, k := range o.keys {
		out.set(k, o.vals[k])
	}
	return out
}

// Without returns a copy of c with the given keys removed.
func (c Context) Without(keys ...string) Context {
	out := c.clone()
	for _, k := range keys {
		out.del(k)
	}
	return out
}

// Field is one flattened context entry.
type Field struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Fields flattens the context to strings in insertion order. Secondary
// positions expand to one field per tag.
func (c Context) Fields() []Field {
	out := make([]Field, 0, len(c.keys))
	for _, k := range c.keys {
		switch v := c.vals[k].(type) {
		case []coords.Tagged:
			for _, t := range v {
				out = append(out, Field{Key: k + "." + t.Tag, Value: t.Coords.String()})
			}
		default:
			out = append(out, Field{Key: k, Value: formatValue(v)})
		}
	}
	return out
}

// Map returns the flattened fields as a map.
func (c Context) Map() map[string]string {
	fields := c.Fields()
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		return strings.Join(x, ",")
	case coords.Kind:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

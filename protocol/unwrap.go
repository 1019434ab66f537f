package protocol

import (
	"math"
	"strconv"

	"github.com/tidwall/sjson"
)

// Framed pairs an unwrapped value with its unwrapped attribute map, for
// callers of UnwrapWithAttrs that need both instead of Unwrap's
// attribute-dropping behaviour.
type Framed struct {
	Value interface{}
	Attrs map[string]interface{}
}

// Unwrap converts a decoded Sexp into a plain Go value:
//
//   - Null                  -> nil
//   - Str, SymName          -> string
//   - ArrayStr              -> []*string (nil entry for NA)
//   - ArrayInt              -> []*int32 (nil entry for NA)
//   - ArrayDouble           -> []*float64 (NA is nil; +Inf/-Inf/NaN pass through as-is)
//   - ArrayBool             -> []*bool (nil entry for NA)
//   - Vector                -> []interface{}, each element unwrapped recursively
//   - ListTag               -> map[string]interface{} keyed by Str/SymName tags
//   - HasAttr               -> Unwrap(Inner()); attributes are dropped
//   - Closure, Unimplemented -> ErrUnsupportedType
func Unwrap(s Sexp) (interface{}, error) {
	switch s.Tag() {
	case TagNull:
		return nil, nil

	case TagStr, TagSymName:
		return s.Str(), nil

	case TagArrayInt:
		out := make([]*int32, len(s.ArrayInt()))
		for i, v := range s.ArrayInt() {
			if !v.IsNA {
				val := v.Value
				out[i] = &val
			}
		}
		return out, nil

	case TagArrayDouble:
		out := make([]*float64, len(s.ArrayDouble()))
		for i, v := range s.ArrayDouble() {
			if !v.IsNA {
				val := v.Value
				out[i] = &val
			}
		}
		return out, nil

	case TagArrayBool:
		out := make([]*bool, len(s.ArrayBool()))
		for i, v := range s.ArrayBool() {
			if !v.IsNA {
				val := v.Value
				out[i] = &val
			}
		}
		return out, nil

	case TagArrayStr:
		out := make([]*string, len(s.ArrayStr()))
		for i, v := range s.ArrayStr() {
			if !v.IsNA {
				val := v.Value
				out[i] = &val
			}
		}
		return out, nil

	case TagVector:
		out := make([]interface{}, len(s.Vector()))
		for i, child := range s.Vector() {
			v, err := Unwrap(child)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case TagListTag:
		return unwrapListTag(s.ListTagPairs())

	case TagHasAttr:
		return Unwrap(s.Inner())

	default:
		return nil, ErrUnsupportedType
	}
}

// UnwrapWithAttrs behaves like Unwrap, except that a HasAttr value
// returns its inner value alongside its unwrapped attribute map instead
// of silently dropping the attributes.
func UnwrapWithAttrs(s Sexp) (Framed, error) {
	if s.Tag() != TagHasAttr {
		v, err := Unwrap(s)
		return Framed{Value: v}, err
	}

	attrs, err := unwrapListTag(s.Attr().ListTagPairs())
	if err != nil {
		return Framed{}, err
	}
	value, err := Unwrap(s.Inner())
	if err != nil {
		return Framed{}, err
	}
	return Framed{Value: value, Attrs: attrs}, nil
}

func unwrapListTag(pairs []Pair) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		key, ok := keyString(p.Key)
		if !ok {
			return nil, ErrUnkeyableTag
		}
		v, err := Unwrap(p.Value)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func keyString(s Sexp) (string, bool) {
	switch s.Tag() {
	case TagStr, TagSymName:
		return s.Str(), true
	default:
		return "", false
	}
}

// DebugJSON renders a Sexp as a JSON string for logging and the `rconn
// eval` CLI, built incrementally with sjson rather than round-tripping
// through encoding/json's reflection (internal/cache uses the same
// tidwall stack for its on-disk blob). NA renders as null; +Inf/-Inf/NaN
// render as the strings "Inf"/"-Inf"/"NaN", since JSON has no native
// representation for them.
func DebugJSON(s Sexp) (string, error) {
	switch s.Tag() {
	case TagNull:
		return "null", nil

	case TagStr, TagSymName:
		return jsonQuote(s.Str()), nil

	case TagArrayInt:
		return jsonArray(len(s.ArrayInt()), func(i int) (string, bool) {
			v := s.ArrayInt()[i]
			return strconv.FormatInt(int64(v.Value), 10), v.IsNA
		})

	case TagArrayDouble:
		return jsonArray(len(s.ArrayDouble()), func(i int) (string, bool) {
			v := s.ArrayDouble()[i]
			return jsonDouble(v.Value), v.IsNA
		})

	case TagArrayBool:
		return jsonArray(len(s.ArrayBool()), func(i int) (string, bool) {
			v := s.ArrayBool()[i]
			if v.Value {
				return "true", v.IsNA
			}
			return "false", v.IsNA
		})

	case TagArrayStr:
		return jsonArray(len(s.ArrayStr()), func(i int) (string, bool) {
			v := s.ArrayStr()[i]
			return jsonQuote(v.Value), v.IsNA
		})

	case TagVector:
		doc := "[]"
		for i, child := range s.Vector() {
			raw, err := DebugJSON(child)
			if err != nil {
				return "", err
			}
			var err2 error
			doc, err2 = sjson.SetRaw(doc, strconv.Itoa(i), raw)
			if err2 != nil {
				return "", err2
			}
		}
		return doc, nil

	case TagListTag:
		doc := "{}"
		for _, p := range s.ListTagPairs() {
			key, ok := keyString(p.Key)
			if !ok {
				return "", ErrUnkeyableTag
			}
			raw, err := DebugJSON(p.Value)
			if err != nil {
				return "", err
			}
			doc, err = sjson.SetRaw(doc, key, raw)
			if err != nil {
				return "", err
			}
		}
		return doc, nil

	case TagHasAttr:
		return DebugJSON(s.Inner())

	default:
		return "", ErrUnsupportedType
	}
}

// jsonArray renders a fixed-length element sequence as a JSON array,
// with NA elements rendered as null regardless of what "at" returns.
func jsonArray(n int, at func(i int) (string, bool)) (string, error) {
	doc := "[]"
	var err error
	for i := 0; i < n; i++ {
		raw, isNA := at(i)
		if isNA {
			raw = "null"
		}
		doc, err = sjson.SetRaw(doc, strconv.Itoa(i), raw)
		if err != nil {
			return "", err
		}
	}
	return doc, nil
}

func jsonDouble(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return `"Inf"`
	case math.IsInf(v, -1):
		return `"-Inf"`
	case math.IsNaN(v):
		return `"NaN"`
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

func jsonQuote(s string) string {
	return strconv.Quote(s)
}

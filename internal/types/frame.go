package types

// RawFrame is one inbound payload before decoding.
//
// Value holds either a string or a decoded JSON value (map[string]interface{},
// []interface{}, float64, bool). Nothing about its shape is guaranteed.
type RawFrame struct {
	Value interface{}
}

// TextFrame wraps a string payload
func TextFrame(s string) RawFrame {
	return RawFrame{Value: s}
}

// ObjectFrame wraps a structured payload
func ObjectFrame(m map[string]interface{}) RawFrame {
	return RawFrame{Value: m}
}

// Text returns the payload as a string when it is one
func (f RawFrame) Text() (string, bool) {
	s, ok := f.Value.(string)
	return s, ok
}

package wire

// HintKind classifies a decoding hint.
type HintKind uint8

const (
	HintOptional HintKind = iota
	HintRequired
	HintRepeated
	HintRepeatedPacked
	HintMap
)

// Hint carries per-field knowledge the decoder cannot recover from the
// bytes alone: packed repeated fields need their inner wire type, and
// length-delimited fields may point at a nested Definition so the
// sub-message decodes under its own hints.
type Hint struct {
	Kind   HintKind
	Inner  Type       // inner wire type for HintRepeatedPacked
	Nested Definition // hints for a sub-message or map value
}

// Definition maps field numbers to decoding hints.
type Definition map[int]Hint

// Optional returns a plain optional-field hint.
func Optional() Hint { return Hint{Kind: HintOptional} }

// Required returns a required-field hint.
func Required() Hint { return Hint{Kind: HintRequired} }

// Repeated returns a non-packed repeated-field hint.
func Repeated() Hint { return Hint{Kind: HintRepeated} }

// RepeatedPacked returns a packed repeated-field hint. The inner wire type
// is mandatory: packed elements carry no per-element tags.
func RepeatedPacked(inner Type) Hint {
	return Hint{Kind: HintRepeatedPacked, Inner: inner}
}

// MapField returns a map-field hint with hints for the value messages.
func MapField(nested Definition) Hint {
	return Hint{Kind: HintMap, Nested: nested}
}

// Sub returns an optional-field hint with a nested definition for the
// referenced sub-message.
func Sub(nested Definition) Hint {
	return Hint{Kind: HintOptional, Nested: nested}
}

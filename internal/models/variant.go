package models

// Variant is one experiment arm.
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// Variants lists the arms new visitors are split across.
func Variants() []Variant {
	return []Variant{VariantA, VariantB}
}

// Valid reports whether v is one of the assignable arms.
func (v Variant) Valid() bool {
	return v == VariantA || v == VariantB
}

func (v Variant) String() string {
	return string(v)
}

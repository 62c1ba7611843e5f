package model

import "strings"

// CanonicalCarType is the stored form of an AAR type code: trimmed and
// upper-cased. The wildcard is left as is.
func CanonicalCarType(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Canonical returns a copy whose tracks list their accepted AAR codes in
// stored form.
func (i Industry) Canonical() Industry {
	i = i.Clone()
	for k := range i.Tracks {
		for j, ct := range i.Tracks[k].AcceptedCarTypes {
			i.Tracks[k].AcceptedCarTypes[j] = CanonicalCarType(ct)
		}
	}
	return i
}

// Canonical returns a copy with the AAR type in stored form.
func (c RollingStock) Canonical() RollingStock {
	c = c.Clone()
	c.AARType = CanonicalCarType(c.AARType)
	return c
}

package fse

// Predefined normalized distributions for Predefined_Mode symbol
// compression (spec.md §4.7). These reproduce RFC 8878 §4.2.2's tables
// verbatim; spec.md's own text only names the mechanism, not the
// constants, so they are supplemented from the format (see DESIGN.md).
var (
	LiteralsLengthDefaultNorm = []int16{
		4, 3, 2, 2, 2, 2, 2, 2,
		2, 2, 2, 2, 2, 1, 1, 1,
		2, 2, 2, 2, 2, 2, 2, 2,
		2, 3, 2, 1, 1, 1, 1, 1,
		-1, -1, -1, -1,
	}
	LiteralsLengthDefaultNormLog uint8 = 6

	MatchLengthDefaultNorm = []int16{
		1, 4, 3, 2, 2, 2, 2, 2,
		2, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, -1, -1,
		-1, -1, -1, -1, -1,
	}
	MatchLengthDefaultNormLog uint8 = 6

	OffsetCodeDefaultNorm = []int16{
		1, 1, 1, 1, 1, 1, 2, 2,
		2, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1,
		-1, -1, -1, -1, -1,
	}
	OffsetCodeDefaultNormLog uint8 = 5
)

// BuildLiteralsLengthDefault, BuildMatchLengthDefault and
// BuildOffsetCodeDefault install the RFC 8878 Predefined_Mode tables.
func BuildLiteralsLengthDefault(t *Table) error {
	return t.Build(LiteralsLengthDefaultNorm, MaxSymbolLiteralsLength, LiteralsLengthDefaultNormLog)
}

func BuildMatchLengthDefault(t *Table) error {
	return t.Build(MatchLengthDefaultNorm, len(MatchLengthDefaultNorm)-1, MatchLengthDefaultNormLog)
}

func BuildOffsetCodeDefault(t *Table) error {
	return t.Build(OffsetCodeDefaultNorm, len(OffsetCodeDefaultNorm)-1, OffsetCodeDefaultNormLog)
}

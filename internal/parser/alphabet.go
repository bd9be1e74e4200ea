package parser

import "github.com/biogo/biogo/alphabet"

const (
	// IUPAC ambiguous DNA
	dnaLetters = "GATCRYWSMKHBVDN"
	// IUPAC extended protein plus the stop symbol found at the end of many
	// predicted protein sequences
	proteinLetters = "ACDEFGHIKLMNPQRSTVWYBXZJUO*"
)

var (
	dnaSet     = letterSet(dnaLetters)
	proteinSet = letterSet(proteinLetters)
)

func letterSet(letters string) (set [256]bool) {
	for i := 0; i < len(letters); i++ {
		set[letters[i]] = true
	}
	return set
}

// checkResidues reports whether every letter, case-folded, belongs to the
// DNA alphabet or every letter belongs to the protein alphabet. When it
// does not, it returns the first letter found in neither.
func checkResidues(letters alphabet.Letters) (byte, bool) {
	dna, protein := true, true
	var bad byte
	for _, l := range letters {
		c := upper(byte(l))
		inDNA, inProtein := dnaSet[c], proteinSet[c]
		if !inDNA && !inProtein && bad == 0 {
			bad = byte(l)
		}
		dna = dna && inDNA
		protein = protein && inProtein
	}
	if dna || protein {
		return 0, true
	}
	if bad == 0 {
		// Each letter is valid on its own, but the record mixes alphabets.
		bad = firstOutside(letters, proteinSet)
	}
	return bad, false
}

func firstOutside(letters alphabet.Letters, set [256]bool) byte {
	for _, l := range letters {
		if !set[upper(byte(l))] {
			return byte(l)
		}
	}
	return 0
}

func upper(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

package types

// ParseResult represents the output of scoring one FASTA file
type ParseResult struct {
	Path      string
	Stats     CostStats
	Sequences int   // number of records
	Residues  int64 // total residue count, equal to Stats.Sum
}

// Add folds one validated sequence into the result
func (pr *ParseResult) Add(s Sequence) {
	pr.Sequences++
	pr.Residues += int64(s.Length)
	pr.Stats.Add(s.Length)
}

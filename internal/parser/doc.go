// Package parser reads FASTA files and turns them into cost statistics.
//
// Records are read with the biogo FASTA reader. Every record is checked
// before it contributes to the file's statistics:
//
//   - a record with no residues is rejected (types.ErrZeroLength)
//   - a record whose case-folded residues are neither all IUPAC ambiguous
//     DNA nor all IUPAC extended protein (plus the '*' stop symbol) is
//     rejected (types.ErrAlphabet)
//   - a file without records is rejected (types.ErrNoRecords)
//
// A single bad record rejects the whole file.
//
// # Basic Usage
//
//	p := parser.New()
//	result, err := p.ParseFile(ctx, "/data/sample.fa.gz")
//	var pe *types.ParseError
//	switch {
//	case errors.As(err, &pe):
//	    // content problem, record it and move on
//	case err != nil:
//	    // I/O problem, give up
//	}
//	fmt.Println(result.Stats.Sum, result.Stats.LogSum, result.Stats.SqSum)
//
// # Compressed Input
//
// Files ending in .gz, .zst/.zstd and .lz4 are decompressed on the fly.
// A corrupt compressed stream is a content problem (types.ErrMalformed),
// not an I/O failure.
//
// # Throttling
//
// On shared filesystems the combined read rate of all parses can be capped:
//
//	p := parser.New(parser.WithReadLimit(200 << 20)) // 200 MiB/s
package parser

package core

import "iter"

// Deduplicate drains seq and partitions it by Key. The first record seen for
// a key is kept in unique; later records with the same key go to dups even
// when their other fields differ. Both slices preserve input order.
// A parser error stops the drain and is returned with nil slices.
func Deduplicate(seq iter.Seq2[Record, error]) (unique, dups []Record, err error) {
	seen := make(map[Key]struct{})
	for rec, err := range seq {
		if err != nil {
			return nil, nil, err
		}
		unique, dups = place(seen, rec, unique, dups)
	}
	return unique, dups, nil
}

// Split partitions an in-memory slice the same way Deduplicate does.
func Split(records []Record) (unique, dups []Record) {
	seen := make(map[Key]struct{}, len(records))
	unique = make([]Record, 0, len(records))
	dups = make([]Record, 0)
	for _, rec := range records {
		unique, dups = place(seen, rec, unique, dups)
	}
	return unique, dups
}

func place(seen map[Key]struct{}, rec Record, unique, dups []Record) ([]Record, []Record) {
	k := rec.Key()
	if _, ok := seen[k]; ok {
		return unique, append(dups, rec)
	}
	seen[k] = struct{}{}
	return append(unique, rec), dups
}

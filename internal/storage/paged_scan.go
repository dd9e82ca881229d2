package storage

import (
	"iter"
	"slices"
)

// scanPageSize bounds how many rows a SQL backend reads per round trip
const scanPageSize = 64

// pageFetcher returns up to limit entries with lo <= key < hi (hi nil means
// unbounded) in the given order.
type pageFetcher func(lo, hi []byte, order Order, limit int) ([]Entry, error)

// pagedScan turns a page fetcher into a prefix scan. Each page is fully
// read before it is yielded so the caller may issue other statements on
// the same transaction while iterating.
func pagedScan(prefix []byte, order Order, fetch pageFetcher) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		lo := append([]byte{}, prefix...)
		hi := PrefixEnd(prefix)
		for {
			page, err := fetch(lo, hi, order, scanPageSize)
			if err != nil {
				yield(Entry{}, err)
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			if len(page) < scanPageSize {
				return
			}
			last := page[len(page)-1].Key
			if order == Descending {
				hi = slices.Clone(last)
			} else {
				// smallest key strictly greater than last
				lo = append(slices.Clone(last), 0x00)
			}
		}
	}
}

package example

import "fmt"

// Library tracks how many copies of each book are available and how many
// are lent out. Contracts keep both counters consistent.
//
// The invariant runs before and after every method, so a zero Library is
// rejected on first use: construct one with NewLibrary.
//
// @invariant(self.available != nil, self.lent != nil, "use NewLibrary")
type Library struct {
	available map[string]int
	lent      map[string]int
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{
		available: make(map[string]int),
		lent:      make(map[string]int),
	}
}

// Available returns the total number of copies on the shelves.
func (l *Library) Available() int {
	n := 0
	for _, c := range l.available {
		n += c
	}
	return n
}

// Stock adds copies of a book to the shelves.
//
// @pre(copies > 0, "stocking zero copies is a caller bug")
// @post(l.available[book] == old(l.available[book]) + copies)
func (l *Library) Stock(book string, copies int) {
	l.available[book] += copies
}

// Lend hands out one copy of a book.
//
// @pre(l.available[book] > 0, "book must be on the shelf")
// @post(l.available[book] == old(l.available[book]) - 1)
// @post(l.lent[book] == old(l.lent[book]) + 1)
func (l *Library) Lend(book string) {
	l.available[book]--
	l.lent[book]++
}

// Return puts a lent copy back on the shelf.
//
// @pre(l.lent[book] > 0, "only lent books can come back")
// @post(l.lent[book] == old(l.lent[book]) - 1)
func (l *Library) Return(book string) {
	l.lent[book]--
	l.available[book]++
}

// Describe prints the current stock of a book.
func (l *Library) Describe(book string) {
	fmt.Printf("%s: %d available, %d lent\n", book, l.available[book], l.lent[book])
}

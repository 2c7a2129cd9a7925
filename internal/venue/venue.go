// Package venue describes the static seating layout of the stadium and the
// pure functions mapping seat coordinates to identifiers and prices.  A Venue
// is built once at startup and never mutated afterwards, so it can be shared
// freely between goroutines.
package venue

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tier is the pricing tier label of a section.
type Tier string

const (
	TierVIP      Tier = "vip"
	TierPremium  Tier = "premium"
	TierStandard Tier = "standard"
	TierEconomy  Tier = "economy"
)

// maxRows bounds the rows of a section so that every row has a single
// letter label (A..Z).
const maxRows = 26

var (
	// ErrInvalidSeatID is returned when a seat id cannot be parsed.
	ErrInvalidSeatID = errors.New("invalid seat id")
	// ErrUnknownSeat is returned when a well formed seat id does not exist
	// in the venue layout.
	ErrUnknownSeat = errors.New("unknown seat")
)

// Section is one block of seats sharing a tier and a base price.  Rows are
// numbered from the front (index 0, label "A") to the back.
type Section struct {
	ID          string `toml:"id" json:"id"`
	Name        string `toml:"name" json:"name"`
	Tier        Tier   `toml:"tier" json:"tier"`
	Rows        int    `toml:"rows" json:"rows"`
	SeatsPerRow int    `toml:"seats_per_row" json:"seats_per_row"`
	BasePrice   int    `toml:"base_price" json:"base_price"`
}

// Seat is a fully resolved seat: its coordinates, tier and price.
type Seat struct {
	ID       string `json:"seat_id"`
	Section  string `json:"section"`
	Tier     Tier   `json:"tier"`
	Row      string `json:"row"`
	RowIndex int    `json:"-"`
	Number   int    `json:"seat_number"`
	Price    int    `json:"price"`
}

// Venue is the immutable seating layout.
type Venue struct {
	sections []Section
	index    map[string]int
	seatIDs  []string
}

// New validates the sections and builds a Venue.  The order of sections is
// preserved and determines the order of SeatIDs.
func New(sections []Section) (*Venue, error) {
	if len(sections) == 0 {
		return nil, errors.New("venue: at least one section is required")
	}
	v := &Venue{
		sections: make([]Section, len(sections)),
		index:    make(map[string]int, len(sections)),
	}
	copy(v.sections, sections)
	for i, s := range v.sections {
		switch {
		case s.ID == "":
			return nil, fmt.Errorf("venue: section %d has no id", i)
		case strings.Contains(s.ID, "-"):
			return nil, fmt.Errorf("venue: section id %q must not contain '-'", s.ID)
		case s.Rows < 1 || s.Rows > maxRows:
			return nil, fmt.Errorf("venue: section %q rows must be between 1 and %d", s.ID, maxRows)
		case s.SeatsPerRow < 1:
			return nil, fmt.Errorf("venue: section %q needs at least one seat per row", s.ID)
		case s.BasePrice < 0:
			return nil, fmt.Errorf("venue: section %q has a negative base price", s.ID)
		}
		if _, dup := v.index[s.ID]; dup {
			return nil, fmt.Errorf("venue: duplicate section id %q", s.ID)
		}
		if s.Name == "" {
			v.sections[i].Name = s.ID
		}
		v.index[s.ID] = i
	}
	v.seatIDs = v.buildSeatIDs()
	return v, nil
}

// Default returns the stadium layout the booking front end ships with.
func Default() *Venue {
	v, err := New([]Section{
		{ID: "vip", Name: "VIP Floor", Tier: TierVIP, Rows: 3, SeatsPerRow: 20, BasePrice: 500},
		{ID: "premium", Name: "Premium", Tier: TierPremium, Rows: 5, SeatsPerRow: 25, BasePrice: 300},
		{ID: "standard", Name: "Standard", Tier: TierStandard, Rows: 10, SeatsPerRow: 30, BasePrice: 150},
		{ID: "economy", Name: "Economy", Tier: TierEconomy, Rows: 8, SeatsPerRow: 35, BasePrice: 75},
	})
	if err != nil {
		panic(err)
	}
	return v
}

// Sections returns a copy of the layout.
func (v *Venue) Sections() []Section {
	out := make([]Section, len(v.sections))
	copy(out, v.sections)
	return out
}

// Capacity is the total number of seats in the venue.
func (v *Venue) Capacity() int { return len(v.seatIDs) }

// SeatIDs returns every seat id in layout order: section by section, front
// row first, seat 1 first.
func (v *Venue) SeatIDs() []string {
	out := make([]string, len(v.seatIDs))
	copy(out, v.seatIDs)
	return out
}

func (v *Venue) buildSeatIDs() []string {
	total := 0
	for _, s := range v.sections {
		total += s.Rows * s.SeatsPerRow
	}
	ids := make([]string, 0, total)
	for _, s := range v.sections {
		for r := 0; r < s.Rows; r++ {
			row := RowLabel(r)
			for n := 1; n <= s.SeatsPerRow; n++ {
				ids = append(ids, SeatID(s.ID, row, n))
			}
		}
	}
	return ids
}

// Price returns the price of a seat in the given section and row.  Front
// rows cost more: each row closer to the stage adds ten percent of the base.
func (v *Venue) Price(sectionID string, rowIndex int) (int, error) {
	i, ok := v.index[sectionID]
	if !ok {
		return 0, fmt.Errorf("%w: section %q", ErrUnknownSeat, sectionID)
	}
	s := v.sections[i]
	if rowIndex < 0 || rowIndex >= s.Rows {
		return 0, fmt.Errorf("%w: row %d of section %q", ErrUnknownSeat, rowIndex, sectionID)
	}
	return rowPrice(s.BasePrice, s.Rows, rowIndex), nil
}

func rowPrice(base, rows, rowIndex int) int {
	multiplier := 1 + 0.1*float64(rows-rowIndex-1)
	return int(math.Round(float64(base) * multiplier))
}

// PriceRange returns the cheapest and the most expensive seat of a section.
func (s Section) PriceRange() (lo, hi int) {
	return rowPrice(s.BasePrice, s.Rows, s.Rows-1), rowPrice(s.BasePrice, s.Rows, 0)
}

// Lookup resolves a seat id against the layout.
func (v *Venue) Lookup(seatID string) (Seat, error) {
	section, row, number, err := ParseSeatID(seatID)
	if err != nil {
		return Seat{}, err
	}
	i, ok := v.index[section]
	if !ok {
		return Seat{}, fmt.Errorf("%w: %s", ErrUnknownSeat, seatID)
	}
	s := v.sections[i]
	rowIndex := int(row[0] - 'A')
	if rowIndex >= s.Rows || number > s.SeatsPerRow {
		return Seat{}, fmt.Errorf("%w: %s", ErrUnknownSeat, seatID)
	}
	return Seat{
		ID:       seatID,
		Section:  section,
		Tier:     s.Tier,
		Row:      row,
		RowIndex: rowIndex,
		Number:   number,
		Price:    rowPrice(s.BasePrice, s.Rows, rowIndex),
	}, nil
}

// RowLabel maps a zero based row index to its letter.
func RowLabel(rowIndex int) string {
	return string(rune('A' + rowIndex))
}

// SeatID builds the canonical identifier "section-row-number".
func SeatID(section, row string, number int) string {
	return section + "-" + row + "-" + strconv.Itoa(number)
}

// ParseSeatID splits a canonical seat id into its coordinates.
func ParseSeatID(seatID string) (section, row string, number int, err error) {
	parts := strings.Split(seatID, "-")
	if len(parts) != 3 || parts[0] == "" {
		return "", "", 0, fmt.Errorf("%w: %q", ErrInvalidSeatID, seatID)
	}
	if len(parts[1]) != 1 || parts[1][0] < 'A' || parts[1][0] > 'Z' {
		return "", "", 0, fmt.Errorf("%w: bad row in %q", ErrInvalidSeatID, seatID)
	}
	n, convErr := strconv.Atoi(parts[2])
	if convErr != nil || n < 1 || strconv.Itoa(n) != parts[2] {
		return "", "", 0, fmt.Errorf("%w: bad seat number in %q", ErrInvalidSeatID, seatID)
	}
	return parts[0], parts[1], n, nil
}

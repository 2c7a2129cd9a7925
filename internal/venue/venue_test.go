package venue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLayout(t *testing.T) {
	v := Default()

	assert.Equal(t, 3*20+5*25+10*30+8*35, v.Capacity())
	ids := v.SeatIDs()
	require.Len(t, ids, v.Capacity())
	assert.Equal(t, "vip-A-1", ids[0])
	assert.Equal(t, "economy-H-35", ids[len(ids)-1])

	ids[0] = "mutated"
	assert.Equal(t, "vip-A-1", v.SeatIDs()[0], "SeatIDs must hand out a copy")
}

func TestPriceDecreasesFrontToBack(t *testing.T) {
	v := Default()

	cases := []struct {
		section string
		row     int
		want    int
	}{
		{"vip", 0, 600},
		{"vip", 1, 550},
		{"vip", 2, 500},
		{"premium", 0, 420},
		{"standard", 9, 150},
		{"economy", 0, 128},
	}
	for _, tc := range cases {
		got, err := v.Price(tc.section, tc.row)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s row %d", tc.section, tc.row)
	}

	for _, s := range v.Sections() {
		prev := -1
		for r := s.Rows - 1; r >= 0; r-- {
			p, err := v.Price(s.ID, r)
			require.NoError(t, err)
			assert.Greater(t, p, prev)
			prev = p
		}
		lo, hi := s.PriceRange()
		assert.Less(t, lo, hi+1)
	}

	_, err := v.Price("balcony", 0)
	assert.ErrorIs(t, err, ErrUnknownSeat)
	_, err = v.Price("vip", 3)
	assert.ErrorIs(t, err, ErrUnknownSeat)
}

func TestLookup(t *testing.T) {
	v := Default()

	seat, err := v.Lookup("vip-A-1")
	require.NoError(t, err)
	assert.Equal(t, Seat{ID: "vip-A-1", Section: "vip", Tier: TierVIP, Row: "A", RowIndex: 0, Number: 1, Price: 600}, seat)

	for _, id := range []string{"", "vip", "vip-A", "vip-a-1", "vip-AA-1", "vip-A-0", "vip-A-01", "vip-A-x", "-A-1", "vip-A-1-2"} {
		_, err := v.Lookup(id)
		assert.ErrorIs(t, err, ErrInvalidSeatID, id)
	}
	for _, id := range []string{"vip-D-1", "vip-A-21", "balcony-A-1"} {
		_, err := v.Lookup(id)
		assert.ErrorIs(t, err, ErrUnknownSeat, id)
	}
}

func TestNewRejectsBadLayouts(t *testing.T) {
	cases := map[string][]Section{
		"empty":      nil,
		"no id":      {{Rows: 1, SeatsPerRow: 1}},
		"dash in id": {{ID: "a-b", Rows: 1, SeatsPerRow: 1}},
		"no rows":    {{ID: "a", Rows: 0, SeatsPerRow: 1}},
		"too many":   {{ID: "a", Rows: 27, SeatsPerRow: 1}},
		"no seats":   {{ID: "a", Rows: 1}},
		"negative":   {{ID: "a", Rows: 1, SeatsPerRow: 1, BasePrice: -1}},
		"duplicate":  {{ID: "a", Rows: 1, SeatsPerRow: 1}, {ID: "a", Rows: 1, SeatsPerRow: 1}},
	}
	for name, sections := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(sections)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venue.toml")
	layout := `
[[sections]]
id = "floor"
name = "Floor"
tier = "vip"
rows = 2
seats_per_row = 4
base_price = 100

[[sections]]
id = "balcony"
tier = "economy"
rows = 1
seats_per_row = 3
base_price = 40
`
	require.NoError(t, os.WriteFile(path, []byte(layout), 0o644))

	v, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 11, v.Capacity())
	assert.Equal(t, "balcony", v.Sections()[1].Name)

	seat, err := v.Lookup("floor-A-4")
	require.NoError(t, err)
	assert.Equal(t, 110, seat.Price)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

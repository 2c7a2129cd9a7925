package venue

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// layoutFile is the on-disk shape of a venue layout:
//
//	[[sections]]
//	id = "vip"
//	name = "VIP Floor"
//	tier = "vip"
//	rows = 3
//	seats_per_row = 20
//	base_price = 500
type layoutFile struct {
	Sections []Section `toml:"sections"`
}

// LoadFile reads a TOML layout file and builds a Venue from it.
func LoadFile(path string) (*Venue, error) {
	var f layoutFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("venue: decode %s: %w", path, err)
	}
	return New(f.Sections)
}

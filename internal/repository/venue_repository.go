package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/seat-lock-engine/internal/venue"
)

// VenueRepo reads the stadium layout from the catalog database.  The layout
// is loaded once at startup; nothing in the lock path touches MySQL.
//
// Expected table:
//
//	CREATE TABLE venue_sections (
//	    id            VARCHAR(32)  PRIMARY KEY,
//	    name          VARCHAR(128) NOT NULL,
//	    tier          VARCHAR(16)  NOT NULL,
//	    row_count     INT UNSIGNED NOT NULL,
//	    seats_per_row INT UNSIGNED NOT NULL,
//	    base_price    INT UNSIGNED NOT NULL,
//	    position      INT          NOT NULL
//	);
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo returns a VenueRepo bound to the provided database.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

// ListSections returns the sections ordered front of house first.
func (r *VenueRepo) ListSections(ctx context.Context) ([]venue.Section, error) {
	const q = `SELECT id, name, tier, row_count, seats_per_row, base_price
               FROM venue_sections
               ORDER BY position, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sections []venue.Section
	for rows.Next() {
		var (
			s    venue.Section
			tier string
		)
		if err := rows.Scan(&s.ID, &s.Name, &tier, &s.Rows, &s.SeatsPerRow, &s.BasePrice); err != nil {
			return nil, err
		}
		s.Tier = venue.Tier(tier)
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

// LoadVenue builds the immutable Venue from the stored sections.
func (r *VenueRepo) LoadVenue(ctx context.Context) (*venue.Venue, error) {
	sections, err := r.ListSections(ctx)
	if err != nil {
		return nil, err
	}
	return venue.New(sections)
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/joeblew999/plat-parks/internal/service"
)

// Archive keeps the latest fetched copy of every park, so the data can be
// explored with SQL through /api/v1/query.
type Archive struct {
	db  *sql.DB
	now func() time.Time
}

// NewArchive creates an archive over an opened database.
func NewArchive(conn *sql.DB) *Archive {
	return &Archive{db: conn, now: time.Now}
}

// ArchiveParks upserts parks in one transaction.
func (a *Archive) ArchiveParks(ctx context.Context, parks []service.ParkData) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archiving parks: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO parks
		(id, name, description, street, city_state, img_url, img_alt, img_caption, lat, lng, park_type, website, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("archiving parks: %w", err)
	}
	defer stmt.Close()

	at := a.now().UTC()
	for _, p := range parks {
		var street, cityState sql.NullString
		if p.Address != nil {
			street = sql.NullString{String: p.Address.Street, Valid: true}
			cityState = sql.NullString{String: p.Address.CityState, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Name, p.Description, street, cityState,
			p.ImgURL, p.ImgAlt, p.ImgCaption,
			p.LatLng.Lat, p.LatLng.Lng, p.ParkType, p.Website, at,
		); err != nil {
			return fmt.Errorf("archiving park %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Parks returns the archived parks ordered by name.
func (a *Archive) Parks(ctx context.Context) ([]service.ParkData, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, name, description, street, city_state,
		img_url, img_alt, img_caption, lat, lng, park_type, website
		FROM parks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	defer rows.Close()

	parks := []service.ParkData{}
	for rows.Next() {
		var p service.ParkData
		var description, street, cityState, imgURL, imgAlt, imgCaption, parkType, website sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description, &street, &cityState,
			&imgURL, &imgAlt, &imgCaption, &p.LatLng.Lat, &p.LatLng.Lng, &parkType, &website); err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		p.Description = description.String
		if street.Valid || cityState.Valid {
			p.Address = &service.Address{Street: street.String, CityState: cityState.String}
		}
		p.ImgURL, p.ImgAlt, p.ImgCaption = imgURL.String, imgAlt.String, imgCaption.String
		p.ParkType, p.Website = parkType.String, website.String
		parks = append(parks, p)
	}
	return parks, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bloodlink/backend/internal/entity"
)

// haversineExpr computes great-circle distance in meters between stored
// coordinates and the ($1, $2) query point. 6371000 is the mean Earth radius.
const haversineExpr = `
	2 * 6371000 * asin(sqrt(
		pow(sin(radians(latitude - $1) / 2), 2) +
		cos(radians($1)) * cos(radians(latitude)) *
		pow(sin(radians(longitude - $2) / 2), 2)
	))`

type geoRepository struct {
	db *sql.DB
}

func NewGeoRepository(db *sql.DB) GeoRepository {
	return &geoRepository{db: db}
}

func (r *geoRepository) HospitalsWithinRadius(ctx context.Context, lat, lng, radiusMeters float64) ([]*entity.HospitalCandidate, error) {
	query := `
		SELECT id, name, city, contact_person, phone, latitude, longitude, distance
		FROM (
			SELECT *, ` + haversineExpr + ` AS distance
			FROM hospitals
			WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		) h
		WHERE distance <= $3
		ORDER BY distance
	`

	rows, err := r.db.QueryContext(ctx, query, lat, lng, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to query hospitals within radius: %w", err)
	}
	defer rows.Close()

	return scanHospitalCandidates(rows)
}

func (r *geoRepository) HospitalsInCity(ctx context.Context, city string) ([]*entity.HospitalCandidate, error) {
	query := `
		SELECT id, name, city, contact_person, phone, latitude, longitude, NULL::float8
		FROM hospitals
		WHERE LOWER(city) = LOWER($1)
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, city)
	if err != nil {
		return nil, fmt.Errorf("failed to query hospitals in city: %w", err)
	}
	defer rows.Close()

	return scanHospitalCandidates(rows)
}

func (r *geoRepository) DonorsInCity(ctx context.Context, city, bloodGroup string) ([]*entity.Donor, error) {
	query := `
		SELECT id, full_name, email, phone, blood_group, city, available, latitude, longitude, last_donation_date
		FROM donors
		WHERE LOWER(city) = LOWER($1) AND blood_group = $2 AND available = TRUE
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, city, bloodGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to query donors in city: %w", err)
	}
	defer rows.Close()

	return scanDonors(rows)
}

func (r *geoRepository) DonorsNearHospital(ctx context.Context, hospitalID int64, bloodGroup string, radiusMeters float64) ([]*entity.Donor, error) {
	query := `
		SELECT d.id, d.full_name, d.email, d.phone, d.blood_group, d.city, d.available, d.latitude, d.longitude, d.last_donation_date
		FROM donors d, hospitals h
		WHERE h.id = $1
		  AND h.latitude IS NOT NULL AND h.longitude IS NOT NULL
		  AND d.latitude IS NOT NULL AND d.longitude IS NOT NULL
		  AND d.blood_group = $2 AND d.available = TRUE
		  AND 2 * 6371000 * asin(sqrt(
			pow(sin(radians(d.latitude - h.latitude) / 2), 2) +
			cos(radians(h.latitude)) * cos(radians(d.latitude)) *
			pow(sin(radians(d.longitude - h.longitude) / 2), 2)
		  )) <= $3
		ORDER BY d.id
	`

	rows, err := r.db.QueryContext(ctx, query, hospitalID, bloodGroup, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to query donors near hospital: %w", err)
	}
	defer rows.Close()

	return scanDonors(rows)
}

func (r *geoRepository) NearestHospitalToDonor(ctx context.Context, donorID int64, maxMeters float64) (*entity.HospitalCandidate, error) {
	query := `
		SELECT h.id, h.name, h.city, h.contact_person, h.phone, h.latitude, h.longitude,
		       2 * 6371000 * asin(sqrt(
			pow(sin(radians(h.latitude - d.latitude) / 2), 2) +
			cos(radians(d.latitude)) * cos(radians(h.latitude)) *
			pow(sin(radians(h.longitude - d.longitude) / 2), 2)
		       )) AS distance
		FROM hospitals h, donors d
		WHERE d.id = $1
		  AND d.latitude IS NOT NULL AND d.longitude IS NOT NULL
		  AND h.latitude IS NOT NULL AND h.longitude IS NOT NULL
		ORDER BY distance
		LIMIT 1
	`

	var candidate entity.HospitalCandidate
	err := r.db.QueryRowContext(ctx, query, donorID).Scan(
		&candidate.ID, &candidate.Name, &candidate.City, &candidate.ContactPerson,
		&candidate.Phone, &candidate.Latitude, &candidate.Longitude, &candidate.DistanceMeters,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNoHospitalAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest hospital: %w", err)
	}

	if candidate.DistanceMeters != nil && *candidate.DistanceMeters > maxMeters {
		return nil, entity.ErrNoHospitalAvailable
	}
	return &candidate, nil
}

func scanHospitalCandidates(rows *sql.Rows) ([]*entity.HospitalCandidate, error) {
	var candidates []*entity.HospitalCandidate
	for rows.Next() {
		var c entity.HospitalCandidate
		if err := rows.Scan(
			&c.ID, &c.Name, &c.City, &c.ContactPerson, &c.Phone,
			&c.Latitude, &c.Longitude, &c.DistanceMeters,
		); err != nil {
			return nil, fmt.Errorf("failed to scan hospital candidate: %w", err)
		}
		candidates = append(candidates, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hospital candidates: %w", err)
	}
	return candidates, nil
}

func scanDonors(rows *sql.Rows) ([]*entity.Donor, error) {
	var donors []*entity.Donor
	for rows.Next() {
		var d entity.Donor
		if err := rows.Scan(
			&d.ID, &d.FullName, &d.Email, &d.Phone, &d.BloodGroup,
			&d.City, &d.Available, &d.Latitude, &d.Longitude, &d.LastDonationDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan donor: %w", err)
		}
		donors = append(donors, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donors: %w", err)
	}
	return donors, nil
}

// Package persons stores person records and their one-to-one address in PostgreSQL.
package persons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/dbx"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectPerson = `SELECT p.id, p.owner_id, p.name, p.last_name, p.gender, p.birthday,
       p.national_code, p.phone, p.email, p.photo_key,
       a.city, a.street, a.house_number, a.apartment_number
  FROM persons p
  LEFT JOIN addresses a ON a.person_id = p.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner) (*models.Person, error) {
	var (
		p                                 models.Person
		photoKey                          sql.NullString
		city, street, house, apartmentNum sql.NullString
	)

	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.LastName, &p.Gender, &p.Birthday,
		&p.NationalCode, &p.Phone, &p.Email, &photoKey,
		&city, &street, &house, &apartmentNum)
	if err != nil {
		return nil, err
	}

	p.PhotoKey = photoKey.String
	p.HasPhoto = photoKey.Valid && photoKey.String != ""
	if city.Valid {
		p.Address = &models.Address{
			City:            city.String,
			Street:          street.String,
			HouseNumber:     house.String,
			ApartmentNumber: apartmentNum.String,
		}
	}
	return &p, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Person) error {
	query :=
		`INSERT INTO persons (id, owner_id, name, last_name, gender, birthday, national_code, phone, email, photo_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Name, p.LastName, p.Gender, p.Birthday,
		p.NationalCode, p.Phone, p.Email, nullable(p.PhotoKey))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}

	return r.saveAddress(ctx, p)
}

func (r *PostgresRepository) saveAddress(ctx context.Context, p *models.Person) error {
	if p.Address == nil {
		return nil
	}

	query :=
		`INSERT INTO addresses (person_id, city, street, house_number, apartment_number)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (person_id) DO UPDATE
		 SET city = EXCLUDED.city, street = EXCLUDED.street,
		     house_number = EXCLUDED.house_number, apartment_number = EXCLUDED.apartment_number`

	a := p.Address
	if _, err := r.db.ExecContext(ctx, query,
		p.ID, a.City, a.Street, a.HouseNumber, nullable(a.ApartmentNumber)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Person, error) {
	p, err := scanPerson(r.db.QueryRowContext(ctx, selectPerson+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Person, error) {
	rows, err := r.db.QueryContext(ctx, selectPerson+` ORDER BY p.created_at, p.id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Update overwrites every column of the person and upserts its address.
func (r *PostgresRepository) Update(ctx context.Context, p *models.Person) error {
	query :=
		`UPDATE persons
		 SET name = $2, last_name = $3, gender = $4, birthday = $5, national_code = $6,
		     phone = $7, email = $8, photo_key = $9, updated_at = now()
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.LastName, p.Gender, p.Birthday, p.NationalCode,
		p.Phone, p.Email, nullable(p.PhotoKey))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	return r.saveAddress(ctx, p)
}

// Delete removes the person; the address goes with it via ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

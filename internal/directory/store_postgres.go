package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"memberd/internal/platform/postgres"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/platform/tx"
)

type row interface {
	Scan(dest ...any) error
}

// listFiltered renders whitelisted exact-match predicates and runs the query.
func listFiltered(
	ctx context.Context,
	db *sql.DB,
	baseQuery, orderBy string,
	columns map[string]string,
	filters map[string]string,
) (*sql.Rows, error) {
	query := baseQuery
	var args []any
	if len(filters) > 0 {
		clauses := make([]string, 0, len(filters))
		i := 1
		for field, value := range filters {
			column, ok := columns[field]
			if !ok {
				return nil, dErrors.Newf(dErrors.CodeBadRequest, "cannot filter by %q", field)
			}
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, i))
			args = append(args, value)
			i++
		}
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY " + orderBy
	return tx.Resolve(ctx, db).QueryContext(ctx, query, args...)
}

// PostgresCountries is the SQL-backed country store.
type PostgresCountries struct {
	db *sql.DB
}

func NewPostgresCountries(db *sql.DB) *PostgresCountries {
	return &PostgresCountries{db: db}
}

func (s *PostgresCountries) Insert(ctx context.Context, c *Country) error {
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO countries (id, name, code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, c.Code, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "insert country")
	}
	return nil
}

func (s *PostgresCountries) Get(ctx context.Context, id uuid.UUID) (*Country, error) {
	c, err := scanCountry(tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, name, code, created_at, updated_at FROM countries WHERE id = $1`, id))
	if err != nil {
		return nil, postgres.MapError(err, "country not found")
	}
	return c, nil
}

func (s *PostgresCountries) List(ctx context.Context, filters map[string]string) ([]*Country, error) {
	rows, err := listFiltered(ctx, s.db,
		`SELECT id, name, code, created_at, updated_at FROM countries`, "name",
		map[string]string{"name": "name", "code": "code"}, filters)
	if err != nil {
		return nil, postgres.MapError(err, "list countries")
	}
	defer rows.Close()

	var out []*Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan country")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresCountries) Update(ctx context.Context, c *Country) error {
	result, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE countries SET name = $2, code = $3, updated_at = $4 WHERE id = $1
	`, c.ID, c.Name, c.Code, c.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "update country")
	}
	return requireRow(result, "country not found")
}

func scanCountry(r row) (*Country, error) {
	var c Country
	if err := r.Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// PostgresAddresses is the SQL-backed address store.
type PostgresAddresses struct {
	db *sql.DB
}

func NewPostgresAddresses(db *sql.DB) *PostgresAddresses {
	return &PostgresAddresses{db: db}
}

func (s *PostgresAddresses) Insert(ctx context.Context, a *Address) error {
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO addresses (id, street_address, city, postal_code, country_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.StreetAddress, a.City, a.PostalCode, a.CountryID, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "insert address")
	}
	return nil
}

func (s *PostgresAddresses) Get(ctx context.Context, id uuid.UUID) (*Address, error) {
	a, err := scanAddress(tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, street_address, city, postal_code, country_id, created_at, updated_at FROM addresses WHERE id = $1`, id))
	if err != nil {
		return nil, postgres.MapError(err, "address not found")
	}
	return a, nil
}

func (s *PostgresAddresses) List(ctx context.Context, filters map[string]string) ([]*Address, error) {
	rows, err := listFiltered(ctx, s.db,
		`SELECT id, street_address, city, postal_code, country_id, created_at, updated_at FROM addresses`, "city, street_address",
		map[string]string{"city": "city", "postal_code": "postal_code"}, filters)
	if err != nil {
		return nil, postgres.MapError(err, "list addresses")
	}
	defer rows.Close()

	var out []*Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan address")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresAddresses) Update(ctx context.Context, a *Address) error {
	result, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE addresses SET street_address = $2, city = $3, postal_code = $4, country_id = $5, updated_at = $6
		WHERE id = $1
	`, a.ID, a.StreetAddress, a.City, a.PostalCode, a.CountryID, a.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "update address")
	}
	return requireRow(result, "address not found")
}

func scanAddress(r row) (*Address, error) {
	var a Address
	if err := r.Scan(&a.ID, &a.StreetAddress, &a.City, &a.PostalCode, &a.CountryID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// PostgresInstitutions is the SQL-backed institution store.
type PostgresInstitutions struct {
	db *sql.DB
}

func NewPostgresInstitutions(db *sql.DB) *PostgresInstitutions {
	return &PostgresInstitutions{db: db}
}

func (s *PostgresInstitutions) Insert(ctx context.Context, i *Institution) error {
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO institutions (id, name, short_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, i.ID, i.Name, i.ShortName, i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "insert institution")
	}
	return nil
}

func (s *PostgresInstitutions) Get(ctx context.Context, id uuid.UUID) (*Institution, error) {
	i, err := scanInstitution(tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, name, short_name, created_at, updated_at FROM institutions WHERE id = $1`, id))
	if err != nil {
		return nil, postgres.MapError(err, "institution not found")
	}
	return i, nil
}

func (s *PostgresInstitutions) List(ctx context.Context, filters map[string]string) ([]*Institution, error) {
	rows, err := listFiltered(ctx, s.db,
		`SELECT id, name, short_name, created_at, updated_at FROM institutions`, "name",
		map[string]string{"name": "name", "short_name": "short_name"}, filters)
	if err != nil {
		return nil, postgres.MapError(err, "list institutions")
	}
	defer rows.Close()

	var out []*Institution
	for rows.Next() {
		i, err := scanInstitution(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan institution")
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *PostgresInstitutions) Update(ctx context.Context, i *Institution) error {
	result, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE institutions SET name = $2, short_name = $3, updated_at = $4 WHERE id = $1
	`, i.ID, i.Name, i.ShortName, i.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "update institution")
	}
	return requireRow(result, "institution not found")
}

func scanInstitution(r row) (*Institution, error) {
	var i Institution
	if err := r.Scan(&i.ID, &i.Name, &i.ShortName, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

// PostgresPlacesOfStudy is the SQL-backed place-of-study store.
type PostgresPlacesOfStudy struct {
	db *sql.DB
}

func NewPostgresPlacesOfStudy(db *sql.DB) *PostgresPlacesOfStudy {
	return &PostgresPlacesOfStudy{db: db}
}

func (s *PostgresPlacesOfStudy) Insert(ctx context.Context, p *PlaceOfStudy) error {
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO places_of_study (id, from_date, institution_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.FromDate, p.InstitutionID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "insert place of study")
	}
	return nil
}

func (s *PostgresPlacesOfStudy) Get(ctx context.Context, id uuid.UUID) (*PlaceOfStudy, error) {
	p, err := scanPlaceOfStudy(tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, from_date, institution_id, created_at, updated_at FROM places_of_study WHERE id = $1`, id))
	if err != nil {
		return nil, postgres.MapError(err, "place of study not found")
	}
	return p, nil
}

func (s *PostgresPlacesOfStudy) List(ctx context.Context, filters map[string]string) ([]*PlaceOfStudy, error) {
	rows, err := listFiltered(ctx, s.db,
		`SELECT id, from_date, institution_id, created_at, updated_at FROM places_of_study`, "from_date DESC",
		map[string]string{"institution_id": "institution_id"}, filters)
	if err != nil {
		return nil, postgres.MapError(err, "list places of study")
	}
	defer rows.Close()

	var out []*PlaceOfStudy
	for rows.Next() {
		p, err := scanPlaceOfStudy(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan place of study")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresPlacesOfStudy) Update(ctx context.Context, p *PlaceOfStudy) error {
	result, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE places_of_study SET from_date = $2, institution_id = $3, updated_at = $4 WHERE id = $1
	`, p.ID, p.FromDate, p.InstitutionID, p.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "update place of study")
	}
	return requireRow(result, "place of study not found")
}

func scanPlaceOfStudy(r row) (*PlaceOfStudy, error) {
	var p PlaceOfStudy
	if err := r.Scan(&p.ID, &p.FromDate, &p.InstitutionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// PostgresGroups is the SQL-backed group store.
type PostgresGroups struct {
	db *sql.DB
}

func NewPostgresGroups(db *sql.DB) *PostgresGroups {
	return &PostgresGroups{db: db}
}

func (s *PostgresGroups) Insert(ctx context.Context, g *Group) error {
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO groups (id, name, posix_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, g.ID, g.Name, g.PosixName, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "insert group")
	}
	return nil
}

func (s *PostgresGroups) Get(ctx context.Context, id uuid.UUID) (*Group, error) {
	g, err := scanGroup(tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, name, posix_name, created_at, updated_at FROM groups WHERE id = $1`, id))
	if err != nil {
		return nil, postgres.MapError(err, "group not found")
	}
	return g, nil
}

func (s *PostgresGroups) List(ctx context.Context, filters map[string]string) ([]*Group, error) {
	rows, err := listFiltered(ctx, s.db,
		`SELECT id, name, posix_name, created_at, updated_at FROM groups`, "posix_name",
		map[string]string{"name": "name", "posix_name": "posix_name"}, filters)
	if err != nil {
		return nil, postgres.MapError(err, "list groups")
	}
	defer rows.Close()

	var out []*Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, postgres.MapError(err, "scan group")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresGroups) Update(ctx context.Context, g *Group) error {
	result, err := tx.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE groups SET name = $2, posix_name = $3, updated_at = $4 WHERE id = $1
	`, g.ID, g.Name, g.PosixName, g.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "update group")
	}
	return requireRow(result, "group not found")
}

func scanGroup(r row) (*Group, error) {
	var g Group
	if err := r.Scan(&g.ID, &g.Name, &g.PosixName, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func requireRow(result sql.Result, notFound string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.MapError(err, notFound)
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, notFound)
	}
	return nil
}

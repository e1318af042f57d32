package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/internal/leads/query"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotFound       = errors.New("lead not found")
	ErrDuplicateEmail = errors.New("lead email already exists")
)

const (
	leadColumns = `l.id, l.name, l.email, l.company_name, l.stage, l.is_engaged, l.last_contacted_at, l.created_at, l.updated_at`

	uniqueViolationCode = "23505"
	emailConstraintName = "leads_email_key"
)

// SortColumns is the allow-list of sortable lead fields.
var SortColumns = map[string]string{
	"name":              "l.name",
	"email":             "l.email",
	"company_name":      "l.company_name",
	"stage":             "l.stage",
	"is_engaged":        "l.is_engaged",
	"last_contacted_at": "l.last_contacted_at",
	"created_at":        "l.created_at",
	"updated_at":        "l.updated_at",
}

// SearchColumn is the generated tsvector column maintained by PostgreSQL.
const SearchColumn = "l.search_vector"

type Repository struct {
	pool   *pgxpool.Pool
	search query.TextSearch
	sorter *query.SortBuilder
}

func New(pool *pgxpool.Pool, search query.TextSearch, sorter *query.SortBuilder) *Repository {
	return &Repository{pool: pool, search: search, sorter: sorter}
}

type ListParams struct {
	Search string
	Sort   []query.SortTerm
	Limit  int
	Offset int
}

type ExportParams struct {
	Search string
	Sort   []query.SortTerm
	Limit  int
}

type listQuery struct {
	countSQL  string
	countArgs []any
	dataSQL   string
	dataArgs  []any
}

func buildWhere(search query.TextSearch, text string) (string, []any) {
	pred, ok := search.Filter(text, 1)
	if !ok {
		return "", nil
	}
	return " WHERE " + pred.SQL, pred.Args
}

// buildListQuery renders the count and page queries from the same
// predicate so that total_records always describes data.
func buildListQuery(search query.TextSearch, sorter *query.SortBuilder, params ListParams) (listQuery, error) {
	where, args := buildWhere(search, params.Search)

	orderBy, err := sorter.OrderBy(params.Sort)
	if err != nil {
		return listQuery{}, err
	}

	dataArgs := append(append(make([]any, 0, len(args)+2), args...), params.Limit, params.Offset)
	n := len(args)

	return listQuery{
		countSQL:  "SELECT COUNT(*) FROM leads l" + where,
		countArgs: args,
		dataSQL: fmt.Sprintf("SELECT %s FROM leads l%s ORDER BY %s LIMIT $%d OFFSET $%d",
			leadColumns, where, orderBy, n+1, n+2),
		dataArgs: dataArgs,
	}, nil
}

func buildExportQuery(search query.TextSearch, sorter *query.SortBuilder, params ExportParams) (string, []any, error) {
	where, args := buildWhere(search, params.Search)

	orderBy, err := sorter.OrderBy(params.Sort)
	if err != nil {
		return "", nil, err
	}

	args = append(args, params.Limit)
	sql := fmt.Sprintf("SELECT %s FROM leads l%s ORDER BY %s LIMIT $%d", leadColumns, where, orderBy, len(args))
	return sql, args, nil
}

// List returns one page of leads and the total number of matching rows.
// The count and the page are read concurrently.
func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	q, err := buildListQuery(r.search, r.sorter, params)
	if err != nil {
		return nil, 0, err
	}

	var (
		total int
		leads []domain.Lead
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, q.countSQL, q.countArgs...).Scan(&total)
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, q.dataSQL, q.dataArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		leads = make([]domain.Lead, 0, params.Limit)
		for rows.Next() {
			lead, err := scanLead(rows)
			if err != nil {
				return err
			}
			leads = append(leads, lead)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// Cursor iterates over exported leads without materializing them.
type Cursor interface {
	Next() bool
	Lead() domain.Lead
	Err() error
	Close()
}

type rowsCursor struct {
	rows pgx.Rows
	lead domain.Lead
	err  error
}

func (c *rowsCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	c.lead, c.err = scanLead(c.rows)
	return c.err == nil
}

func (c *rowsCursor) Lead() domain.Lead { return c.lead }

func (c *rowsCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowsCursor) Close() { c.rows.Close() }

// Export opens a cursor over at most params.Limit matching leads.
// The caller must Close the cursor.
func (r *Repository) Export(ctx context.Context, params ExportParams) (Cursor, error) {
	sql, args, err := buildExportQuery(r.search, r.sorter, params)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &rowsCursor{rows: rows}, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// Create inserts a lead inside a transaction. Fields must already be normalized.
func (r *Repository) Create(ctx context.Context, id uuid.UUID, fields domain.Fields) (domain.Lead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO leads AS l (id, name, email, company_name, stage, is_engaged, last_contacted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+leadColumns,
		id, fields.Name, fields.Email, fields.CompanyName, string(fields.Stage), fields.IsEngaged, fields.LastContactedAt,
	)
	lead, err := scanLead(row)
	if err != nil {
		return domain.Lead{}, translateWriteError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, translateWriteError(err)
	}
	return lead, nil
}

// Update replaces every mutable field of a lead and moves updated_at
// strictly forward, even within the same clock tick.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields domain.Fields) (domain.Lead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, updateLeadQuery,
		id, fields.Name, fields.Email, fields.CompanyName, string(fields.Stage), fields.IsEngaged, fields.LastContactedAt,
	)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, translateWriteError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, translateWriteError(err)
	}
	return lead, nil
}

const updateLeadQuery = `
	UPDATE leads AS l SET
		name = $2,
		email = $3,
		company_name = $4,
		stage = $5,
		is_engaged = $6,
		last_contacted_at = $7,
		updated_at = GREATEST(now(), l.updated_at + interval '1 microsecond')
	WHERE l.id = $1
	RETURNING ` + leadColumns

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := tx.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// BulkDelete removes every lead in ids in one transaction. Unknown ids are
// ignored; the number of removed rows is returned.
func (r *Repository) BulkDelete(ctx context.Context, ids []uuid.UUID) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := tx.Exec(ctx, `DELETE FROM leads WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

// Count returns the number of stored leads.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&total)
	return total, err
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead  domain.Lead
		stage string
	)
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.CompanyName, &stage, &lead.IsEngaged,
		&lead.LastContactedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Stage = domain.Stage(stage)
	return lead, nil
}

func translateWriteError(err error) error {
	if isEmailConflict(err) {
		return ErrDuplicateEmail
	}
	return err
}

func isEmailConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return false
	}
	return pgErr.ConstraintName == "" || strings.EqualFold(pgErr.ConstraintName, emailConstraintName)
}

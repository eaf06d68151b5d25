package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/voucher-checkout/internal/domain/voucher"
)

const (
	programColumns = `id, name, title, min_order, starts_at, expires_at`

	listActiveProgramsSQL = `SELECT ` + programColumns + `
		FROM voucher_programs
		WHERE starts_at <= $1 AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY starts_at, id`

	getProgramSQL = `SELECT ` + programColumns + ` FROM voucher_programs WHERE id = $1`

	upsertProgramSQL = `INSERT INTO voucher_programs (` + programColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			min_order = EXCLUDED.min_order,
			starts_at = EXCLUDED.starts_at,
			expires_at = EXCLUDED.expires_at`
)

var _ voucher.ProgramCatalog = (*ProgramCatalog)(nil)

// ProgramCatalog implements voucher.ProgramCatalog over the voucher_programs table.
type ProgramCatalog struct {
	conn
	now func() time.Time
}

// NewProgramCatalog returns a ProgramCatalog that uses the given pool.
func NewProgramCatalog(pool *pgxpool.Pool, timeout time.Duration) *ProgramCatalog {
	return &ProgramCatalog{conn: conn{pool: pool, timeout: timeout}, now: time.Now}
}

// ListActive returns programs that have started and not yet ended. The
// catalog is not personalised, so customerID is unused.
func (c *ProgramCatalog) ListActive(ctx context.Context, _ string) ([]voucher.Program, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	rows, err := c.pool.Query(ctx, listActiveProgramsSQL, c.now())
	if err != nil {
		return nil, errors.Wrap(err, "list active programs")
	}
	programs, err := pgx.CollectRows(rows, scanProgram)
	if err != nil {
		return nil, errors.Wrap(err, "scan programs")
	}
	return programs, nil
}

// Get returns a program by ID, or voucher.ErrProgramNotFound.
func (c *ProgramCatalog) Get(ctx context.Context, programID string) (*voucher.Program, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	rows, err := c.pool.Query(ctx, getProgramSQL, programID)
	if err != nil {
		return nil, errors.Wrapf(err, "get program %q", programID)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProgram)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrProgramNotFound
		}
		return nil, errors.Wrapf(err, "get program %q", programID)
	}
	return &p, nil
}

// Upsert inserts or updates programs in one batch.
func (c *ProgramCatalog) Upsert(ctx context.Context, programs ...voucher.Program) error {
	if len(programs) == 0 {
		return nil
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	batch := &pgx.Batch{}
	for i := range programs {
		p := &programs[i]
		batch.Queue(upsertProgramSQL, p.ID, p.Name, p.Title, p.MinOrder, p.StartsAt, p.ExpiresAt)
	}
	if err := c.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert programs")
	}
	return nil
}

func scanProgram(row pgx.CollectableRow) (voucher.Program, error) {
	var p voucher.Program
	err := row.Scan(&p.ID, &p.Name, &p.Title, &p.MinOrder, &p.StartsAt, &p.ExpiresAt)
	return p, err
}

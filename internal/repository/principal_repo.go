package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"go-multi-auth/internal/model"
)

var principalColumns = []string{
	"id", "name", "email", "password", "avatar", "status", "created_at", "updated_at", "deleted_at",
}

var principalWritable = map[string]struct{}{
	"name": {}, "email": {}, "password": {}, "avatar": {}, "status": {},
}

// Attributes is a column to value map for partial updates.
type Attributes map[string]any

type rowScanner interface {
	Scan(dest ...any) error
}

// PrincipalRepository persists one principal type in its own table.
type PrincipalRepository struct {
	db    *sql.DB
	typ   model.PrincipalType
	table string
}

func NewPrincipalRepository(db *sql.DB, typ model.PrincipalType) *PrincipalRepository {
	return &PrincipalRepository{db: db, typ: typ, table: typ.Table()}
}

func (r *PrincipalRepository) Type() model.PrincipalType {
	return r.typ
}

// Query starts a builder bound to this repository's table.
func (r *PrincipalRepository) Query() *Query {
	return NewQuery(r.table, principalColumns, true)
}

func (r *PrincipalRepository) Create(ctx context.Context, p model.Principal) (model.Principal, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO `+r.table+` (name, email, password, avatar, status)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at, updated_at`,
			p.Name, p.Email, p.PasswordHash, nullString(p.Avatar), int16(p.Status))
		return row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	})
	if err != nil {
		slog.Error("create principal failed", "type", r.typ.String(), "error", err)
		return model.Principal{}, persistenceError("create "+r.typ.String(), err)
	}
	return p, nil
}

func (r *PrincipalRepository) Find(ctx context.Context, id int64) (model.Principal, error) {
	return r.FindByField(ctx, "id", id)
}

func (r *PrincipalRepository) FindTrash(ctx context.Context, id int64) (model.Principal, error) {
	return r.first(ctx, r.Query().WithTrashed().Where("id", "=", id))
}

func (r *PrincipalRepository) FindByField(ctx context.Context, field string, value any) (model.Principal, error) {
	return r.first(ctx, r.Query().Where(field, "=", value))
}

// FindWhere matches every column in where by equality. Columns are applied
// in sorted order so the generated SQL is stable.
func (r *PrincipalRepository) FindWhere(ctx context.Context, where Attributes) ([]model.Principal, error) {
	columns := make([]string, 0, len(where))
	for k := range where {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	q := r.Query()
	for _, c := range columns {
		q.Where(c, "=", where[c])
	}
	return r.Get(ctx, q)
}

func (r *PrincipalRepository) FindWhereIn(ctx context.Context, field string, values ...any) ([]model.Principal, error) {
	return r.Get(ctx, r.Query().WhereIn(field, values...))
}

// Get runs q and fills only the selected columns of each principal.
func (r *PrincipalRepository) Get(ctx context.Context, q *Query) ([]model.Principal, error) {
	cols := q.Columns()
	query, args, err := q.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", r.typ, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceError("query "+r.table, err)
	}
	defer rows.Close()

	out := make([]model.Principal, 0)
	for rows.Next() {
		p, err := scanPrincipalColumns(rows, cols)
		if err != nil {
			return nil, persistenceError("scan "+r.typ.String(), err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate "+r.table, err)
	}
	return out, nil
}

func (r *PrincipalRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, r.Query())
}

func (r *PrincipalRepository) Trashed(ctx context.Context) ([]model.Principal, error) {
	return r.Get(ctx, r.Query().OnlyTrashed().OrderBy("deleted_at", "desc"))
}

func (r *PrincipalRepository) Paginate(ctx context.Context, page int, limit int) ([]model.Principal, model.Meta, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	total, err := r.count(ctx, r.Query())
	if err != nil {
		return nil, model.Meta{}, err
	}

	items, err := r.Get(ctx, r.Query().OrderBy("id", "asc").Take(limit).Offset((page-1)*limit))
	if err != nil {
		return nil, model.Meta{}, err
	}

	totalPages := (total + limit - 1) / limit
	return items, model.Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}, nil
}

func (r *PrincipalRepository) Update(ctx context.Context, id int64, attrs Attributes) (model.Principal, error) {
	if len(attrs) == 0 {
		return r.Find(ctx, id)
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if _, ok := principalWritable[k]; !ok {
			return model.Principal{}, fmt.Errorf("%w: column %q is not writable", model.ErrInvalidInput, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		v := attrs[k]
		if status, ok := v.(model.Status); ok {
			v = int16(status)
		}
		sets = append(sets, k+" = $"+strconv.Itoa(i+1))
		args = append(args, v)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	var updated model.Principal
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`UPDATE `+r.table+` SET `+strings.Join(sets, ", ")+
				` WHERE id = $`+strconv.Itoa(len(args))+` AND deleted_at IS NULL
			 RETURNING `+strings.Join(principalColumns, ", "),
			args...)
		var scanErr error
		updated, scanErr = scanPrincipal(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Principal{}, model.ErrNotFound
	}
	if err != nil {
		slog.Error("update principal failed", "type", r.typ.String(), "id", id, "error", err)
		return model.Principal{}, persistenceError("update "+r.typ.String(), err)
	}
	return updated, nil
}

// Delete soft-deletes the record.
func (r *PrincipalRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, "delete",
		`UPDATE `+r.table+` SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, time.Now().UTC())
}

func (r *PrincipalRepository) Restore(ctx context.Context, id int64) error {
	return r.execOne(ctx, "restore",
		`UPDATE `+r.table+` SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL`, id)
}

// Destroy removes the row permanently.
func (r *PrincipalRepository) Destroy(ctx context.Context, id int64) error {
	return r.execOne(ctx, "destroy", `DELETE FROM `+r.table+` WHERE id = $1`, id)
}

func (r *PrincipalRepository) execOne(ctx context.Context, op string, query string, args ...any) error {
	var affected int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		slog.Error(op+" principal failed", "type", r.typ.String(), "error", err)
		return persistenceError(op+" "+r.typ.String(), err)
	}
	if affected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *PrincipalRepository) first(ctx context.Context, q *Query) (model.Principal, error) {
	cols := q.Columns()
	query, args, err := q.Take(1).Build()
	if err != nil {
		return model.Principal{}, fmt.Errorf("build %s query: %w", r.typ, err)
	}

	p, err := scanPrincipalColumns(r.db.QueryRowContext(ctx, query, args...), cols)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Principal{}, model.ErrNotFound
	}
	if err != nil {
		return model.Principal{}, persistenceError("find "+r.typ.String(), err)
	}
	return p, nil
}

func (r *PrincipalRepository) count(ctx context.Context, q *Query) (int, error) {
	query, args, err := q.BuildCount()
	if err != nil {
		return 0, fmt.Errorf("build %s count: %w", r.typ, err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, persistenceError("count "+r.table, err)
	}
	return n, nil
}

func scanPrincipal(row rowScanner) (model.Principal, error) {
	return scanPrincipalColumns(row, principalColumns)
}

func scanPrincipalColumns(row rowScanner, cols []string) (model.Principal, error) {
	var (
		p         model.Principal
		avatar    sql.NullString
		deletedAt sql.NullTime
	)

	dest := make([]any, 0, len(cols))
	for _, c := range cols {
		switch c {
		case "id":
			dest = append(dest, &p.ID)
		case "name":
			dest = append(dest, &p.Name)
		case "email":
			dest = append(dest, &p.Email)
		case "password":
			dest = append(dest, &p.PasswordHash)
		case "avatar":
			dest = append(dest, &avatar)
		case "status":
			dest = append(dest, &p.Status)
		case "created_at":
			dest = append(dest, &p.CreatedAt)
		case "updated_at":
			dest = append(dest, &p.UpdatedAt)
		case "deleted_at":
			dest = append(dest, &deletedAt)
		default:
			return model.Principal{}, fmt.Errorf("%w: column %q cannot be scanned", model.ErrInvalidInput, c)
		}
	}

	if err := row.Scan(dest...); err != nil {
		return model.Principal{}, err
	}
	p.Avatar = avatar.String
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return p, nil
}

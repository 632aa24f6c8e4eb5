package driver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/MrEthical07/goAuthen/filter"
	"github.com/MrEthical07/goAuthen/internal/optdecode"
)

// SQL looks credentials up in a database table.
//
// Options:
//
//	TABLE / TABLES  table name(s); several tables are joined by the constraints
//	CONSTRAINTS     column -> template; rows must match every constraint
//	COLUMNS         column -> template; selected and checked with filter.Check
//	JOINS           "a.col = b.col" conditions linking TABLES
//	DSN, DIALECT    open a dedicated handle (sqlite or postgres) instead of
//	                the engine's default one
//
// Templates may contain __CREDENTIAL_n__ (1-based) placeholders. Keys may
// carry a filter list before the column, split at the last ':':
//
//	"md5:hex:users.password": "__CREDENTIAL_2__"
//
// Constraint values are filtered and bound as parameters. Every identifier is
// validated before it reaches the query text.
type SQL struct {
	tables      []string
	constraints []sqlTerm
	joins       []string
	columns     []sqlTerm
	dialect     string
	dsn         string
	pool        *DBPool
	filters     *filter.Registry
	logger      *slog.Logger
}

type sqlTerm struct {
	filter   string
	column   string
	template string
}

type sqlOptions struct {
	Table       string            `mapstructure:"table"`
	Tables      []string          `mapstructure:"tables"`
	Constraints map[string]string `mapstructure:"constraints"`
	Columns     map[string]string `mapstructure:"columns"`
	Joins       []string          `mapstructure:"joins"`
	DSN         string            `mapstructure:"dsn"`
	Dialect     string            `mapstructure:"dialect" validate:"omitempty,oneof=sqlite postgres postgresql"`
}

var (
	identRe       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	joinRe        = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_.]*)\s*=\s*([A-Za-z_][A-Za-z0-9_.]*)\s*$`)
	placeholderRe = regexp.MustCompile(`__CREDENTIAL_(\d+)__`)
)

// NewSQL builds an SQL driver. The database handle is resolved lazily so a
// database that is down at startup only fails logins, not configuration.
func NewSQL(opts Options, deps Deps) (Driver, error) {
	var o sqlOptions
	if err := optdecode.Decode(opts, &o); err != nil {
		return nil, invalidOptions(err)
	}

	d := &SQL{dialect: o.Dialect, dsn: o.DSN, pool: deps.DB, filters: deps.Filters, logger: deps.Logger}
	if o.Table != "" {
		d.tables = append(d.tables, o.Table)
	}
	d.tables = append(d.tables, o.Tables...)
	if len(d.tables) == 0 {
		return nil, invalidOptions(fmt.Errorf("sql driver needs TABLE or TABLES"))
	}
	for _, t := range d.tables {
		if !identRe.MatchString(t) {
			return nil, invalidOptions(fmt.Errorf("invalid table name %q", t))
		}
	}
	if len(o.Constraints) == 0 && len(o.Columns) == 0 {
		return nil, invalidOptions(fmt.Errorf("sql driver needs CONSTRAINTS or COLUMNS"))
	}

	var err error
	if d.constraints, err = parseTerms(o.Constraints, deps.Filters); err != nil {
		return nil, invalidOptions(err)
	}
	if d.columns, err = parseTerms(o.Columns, deps.Filters); err != nil {
		return nil, invalidOptions(err)
	}
	for _, j := range o.Joins {
		m := joinRe.FindStringSubmatch(j)
		if m == nil || !identRe.MatchString(m[1]) || !identRe.MatchString(m[2]) {
			return nil, invalidOptions(fmt.Errorf("invalid join %q", j))
		}
		d.joins = append(d.joins, m[1]+" = "+m[2])
	}
	if d.pool == nil {
		d.pool = NewDBPool(nil)
	}
	return d, nil
}

func parseTerms(m map[string]string, filters *filter.Registry) ([]sqlTerm, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	terms := make([]sqlTerm, 0, len(keys))
	for _, k := range keys {
		t := sqlTerm{column: k, template: m[k]}
		if i := strings.LastIndex(k, ":"); i >= 0 {
			t.filter, t.column = k[:i], k[i+1:]
			if err := filters.Validate(t.filter); err != nil {
				return nil, fmt.Errorf("column %q: %w", k, err)
			}
		}
		if !identRe.MatchString(t.column) {
			return nil, fmt.Errorf("invalid column name %q", t.column)
		}
		terms = append(terms, t)
	}
	return terms, nil
}

// substitute replaces placeholders with credentials. ok is false when a
// placeholder points past the supplied credentials.
func substitute(template string, creds []string) (string, bool) {
	ok := true
	out := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		n, err := strconv.Atoi(placeholderRe.FindStringSubmatch(m)[1])
		if err != nil || n < 1 || n > len(creds) {
			ok = false
			return ""
		}
		return creds[n-1]
	})
	return out, ok
}

// VerifyCredentials runs one query. With COLUMNS configured any returned row
// whose columns all check out is a match; otherwise a non-zero row count is.
func (d *SQL) VerifyCredentials(ctx context.Context, creds ...string) (string, error) {
	if len(creds) == 0 || creds[0] == "" {
		return "", nil
	}
	db, err := d.pool.Get(d.dialect, d.dsn)
	if err != nil {
		return "", err
	}

	q := db.WithContext(ctx).Table(strings.Join(d.tables, ", "))
	for _, j := range d.joins {
		q = q.Where(j)
	}
	for _, c := range d.constraints {
		v, ok := substitute(c.template, creds)
		if !ok {
			return "", nil
		}
		if c.filter != "" {
			if v, err = d.filters.Filter(c.filter, v); err != nil {
				return "", fmt.Errorf("%w: %v", ErrBackend, err)
			}
		}
		q = q.Where(c.column+" = ?", v)
	}

	if len(d.columns) == 0 {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return "", fmt.Errorf("%w: %v", ErrBackend, err)
		}
		if n > 0 {
			return creds[0], nil
		}
		return "", nil
	}

	expected := make([]string, len(d.columns))
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		v, ok := substitute(c.template, creds)
		if !ok {
			return "", nil
		}
		expected[i] = v
		names[i] = c.column
	}

	rows, err := q.Select(strings.Join(names, ", ")).Rows()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer rows.Close()

	for rows.Next() {
		vals := make([]sql.NullString, len(names))
		dest := make([]any, len(names))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return "", fmt.Errorf("%w: %v", ErrBackend, err)
		}
		if d.rowMatches(vals, expected) {
			return creds[0], nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return "", nil
}

func (d *SQL) rowMatches(vals []sql.NullString, expected []string) bool {
	for i, c := range d.columns {
		if !vals[i].Valid {
			return false
		}
		ok, err := checkSecret(d.filters, c.filter, expected[i], vals[i].String)
		if err != nil {
			d.logger.Warn("sql driver column check failed", "column", c.column, "error", err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

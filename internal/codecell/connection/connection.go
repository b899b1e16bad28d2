// Package connection implements the Connection code-cell language's
// dispatch arm: the connector plumbing for external databases (auth,
// pooling, discovery) is out of scope, but the dispatch arm that hands a
// query to a driver and turns rows into a code-run result is in scope.
// Opens one of several engines by a tag string, adapted to a single-query,
// single-table-result shape that feeds the async suspension path the same
// way the Python and JavaScript languages do.
package connection

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"sheetengine/internal/grid"
	"sheetengine/internal/sheeterr"
)

// Kind names one of the four SQL engines a Connection code cell can target.
type Kind string

const (
	Postgres  Kind = "postgres"
	MySQL     Kind = "mysql"
	SQLite    Kind = "sqlite3"
	MSSQL     Kind = "sqlserver"
)

func (k Kind) driverName() string {
	switch k {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite3"
	case MSSQL:
		return "sqlserver"
	default:
		return ""
	}
}

// Runtime opens a database/sql connection for one Kind/DSN pair and runs
// the single query a Connection code cell carries as its source text.
type Runtime struct {
	Kind Kind
	DSN  string
}

// Query executes sql and returns the result as a DataTable whose
// ColumnHeaders carry the column names and whose 2-D value array holds only
// the data rows, the same shape a successful array-producing code run
// completes with.
func (r Runtime) Query(ctx context.Context, query string) (*grid.DataTable, error) {
	driverName := r.Kind.driverName()
	if driverName == "" {
		return nil, sheeterr.NewRunError("connection: unknown engine kind %q", r.Kind)
	}
	db, err := sql.Open(driverName, r.DSN)
	if err != nil {
		return nil, sheeterr.NewRunError("connection: open failed").WithCause(err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, sheeterr.NewRunError("connection: query failed").WithCause(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, sheeterr.NewRunError("connection: reading columns failed").WithCause(err)
	}

	var out [][]grid.CellValue
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, sheeterr.NewRunError("connection: scan failed").WithCause(err)
		}
		out = append(out, rowToValues(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, sheeterr.NewRunError("connection: row iteration failed").WithCause(err)
	}

	headers := make([]grid.ColumnHeader, len(cols))
	for i, c := range cols {
		headers[i] = grid.ColumnHeader{Name: c, Display: true, ValueIndex: i}
	}
	return &grid.DataTable{
		Kind:          grid.KindImportTable,
		Value:         grid.ArrayValue(out),
		ColumnHeaders: headers,
		ShowColumns:   true,
		ShowUI:        true,
	}, nil
}

func rowToValues(raw []interface{}) []grid.CellValue {
	vals := make([]grid.CellValue, len(raw))
	for i, v := range raw {
		vals[i] = toCellValue(v)
	}
	return vals
}

func toCellValue(v interface{}) grid.CellValue {
	switch t := v.(type) {
	case nil:
		return grid.Blank
	case []byte:
		return grid.Text(string(t))
	case string:
		return grid.Text(t)
	case int64:
		return grid.NumberFromInt(t)
	case float64:
		return grid.Number(decimal.NewFromFloat(t))
	case bool:
		return grid.Logical(t)
	default:
		return grid.Text(fmt.Sprintf("%v", t))
	}
}

package foreign

import (
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	// drivers reachable through Sql::Database.open
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"garnet/internal/object"
	"garnet/internal/registry"
)

// Database is the host value behind Sql::Database. Inside a transaction
// block the same type wraps the *sql.Tx, so scripts use one API for both.
type Database struct {
	db     *sql.DB
	tx     *sql.Tx
	driver string
	closed bool
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
}

func (d *Database) conn() execer {
	if d.tx != nil {
		return d.tx
	}
	return d.db
}

func (d *Database) String() string {
	state := "open"
	if d.closed {
		state = "closed"
	}
	return d.driver + " (" + state + ")"
}

var driverAliases = map[string]string{
	"sqlite":     "sqlite3",
	"sqlite3":    "sqlite3",
	"mysql":      "mysql",
	"postgres":   "postgres",
	"postgresql": "postgres",
	"pg":         "postgres",
}

// OpenDatabase opens and pings a database through one of the bundled
// drivers.
func OpenDatabase(driver, dsn string) (*Database, error) {
	name, ok := driverAliases[driver]
	if !ok {
		return nil, errors.Errorf("unknown database driver %q", driver)
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	if name == "sqlite3" && strings.Contains(dsn, ":memory:") {
		// every connection to :memory: opens a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connect %s", name)
	}
	return &Database{db: db, driver: name}, nil
}

func registerSQL(reg *registry.Registry) {
	reg.StaticMethod("Sql::Database", fnSQLOpen(), "open", "new")
	reg.Method("Sql::Database", fnSQLExecute(false), "execute", "exec")
	reg.Method("Sql::Database", fnSQLExecute(true), "insert")
	reg.Method("Sql::Database", fnSQLQuery(), "query", "each_row")
	reg.Method("Sql::Database", fnSQLFirst(), "first")
	reg.Method("Sql::Database", fnSQLTransaction(), "transaction")
	reg.Method("Sql::Database", fnSQLClose(), "close")
	reg.Method("Sql::Database", fnSQLClosed(), "closed?")
	reg.Method("Sql::Database", fnSQLDriver(), "driver")
}

func selfDB(ctx object.EvaluatorContext) (*Database, error) {
	db := ctx.Self().(*object.NativeObject).Value.(*Database)
	if db.closed {
		return nil, ctx.NewError("SQLError", "database is closed")
	}
	return db, nil
}

func sqlError(ctx object.EvaluatorContext, err error) error {
	return ctx.NewError("SQLError", "%s", err.Error())
}

// fnSQLOpen is Sql::Database.open(driver, dsn), closing the database after
// the block when one is given.
func fnSQLOpen() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		driver, err := toName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		dsn, err := toStr(ctx, args[1])
		if err != nil {
			return nil, err
		}
		db, err := OpenDatabase(driver, dsn)
		if err != nil {
			return nil, sqlError(ctx, err)
		}
		wrapped := ctx.Wrap(db)
		blk := ctx.Block()
		if blk == nil {
			return wrapped, nil
		}
		defer func() {
			db.closed = true
			db.db.Close()
		}()
		return ctx.CallProc(blk, wrapped)
	}
}

// queryArgs converts bind parameters, given inline or as one array.
func queryArgs(ctx object.EvaluatorContext, args []object.Object) (string, []any, error) {
	if err := checkArgs(ctx, args, 1, -1); err != nil {
		return "", nil, err
	}
	query, err := toStr(ctx, args[0])
	if err != nil {
		return "", nil, err
	}
	params := args[1:]
	if len(params) == 1 {
		if arr, ok := params[0].(*object.Array); ok {
			params = arr.Elements
		}
	}
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = object.ToNative(p)
	}
	return query, out, nil
}

// fnSQLExecute runs a statement, answering the affected row count or,
// for insert, the new row id.
func fnSQLExecute(lastID bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		db, err := selfDB(ctx)
		if err != nil {
			return nil, err
		}
		query, params, err := queryArgs(ctx, args)
		if err != nil {
			return nil, err
		}
		res, err := db.conn().Exec(query, params...)
		if err != nil {
			return nil, sqlError(ctx, err)
		}
		var n int64
		if lastID {
			n, err = res.LastInsertId()
		} else {
			n, err = res.RowsAffected()
		}
		if err != nil {
			return nil, sqlError(ctx, err)
		}
		return integer(n), nil
	}
}

// rowValue converts a scanned column into a script value.
func rowValue(ctx object.EvaluatorContext, v any) object.Object {
	switch val := v.(type) {
	case []byte:
		return str(string(val))
	case time.Time:
		return ctx.Wrap(val)
	}
	if obj, ok := object.FromNative(v); ok {
		return obj
	}
	return str(cast.ToString(v))
}

// scanRows feeds each row to fn as a hash keyed by column name.
func scanRows(ctx object.EvaluatorContext, rows *sql.Rows, fn func(row *object.Hash) (bool, error)) error {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return sqlError(ctx, err)
	}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return sqlError(ctx, err)
		}
		row := object.NewHash()
		for i, col := range cols {
			key := str(col)
			ctx.Root().Freeze(key)
			row.Set(key, rowValue(ctx, values[i]))
		}
		stop, err := fn(row)
		if err != nil || stop {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return sqlError(ctx, err)
	}
	return nil
}

// fnSQLQuery answers the rows as an array of hashes, or yields each one.
func fnSQLQuery() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		db, err := selfDB(ctx)
		if err != nil {
			return nil, err
		}
		query, params, err := queryArgs(ctx, args)
		if err != nil {
			return nil, err
		}
		rows, err := db.conn().Query(query, params...)
		if err != nil {
			return nil, sqlError(ctx, err)
		}
		blk := ctx.Block()
		var out []object.Object
		err = scanRows(ctx, rows, func(row *object.Hash) (bool, error) {
			if blk == nil {
				out = append(out, row)
				return false, nil
			}
			_, err := ctx.CallProc(blk, row)
			return false, err
		})
		if err != nil {
			return nil, err
		}
		if blk != nil {
			return ctx.Self(), nil
		}
		return object.NewArray(out...), nil
	}
}

func fnSQLFirst() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		db, err := selfDB(ctx)
		if err != nil {
			return nil, err
		}
		query, params, err := queryArgs(ctx, args)
		if err != nil {
			return nil, err
		}
		rows, err := db.conn().Query(query, params...)
		if err != nil {
			return nil, sqlError(ctx, err)
		}
		var first object.Object = object.NIL
		err = scanRows(ctx, rows, func(row *object.Hash) (bool, error) {
			first = row
			return true, nil
		})
		return first, err
	}
}

// fnSQLTransaction yields a transaction-bound database, committing when
// the block finishes and rolling back when it raises or exits early.
func fnSQLTransaction() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		db, err := selfDB(ctx)
		if err != nil {
			return nil, err
		}
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		if db.tx != nil {
			return nil, ctx.NewError("SQLError", "transaction already in progress")
		}
		tx, err := db.db.Begin()
		if err != nil {
			return nil, sqlError(ctx, err)
		}
		scoped := &Database{db: db.db, tx: tx, driver: db.driver}
		out, err := ctx.CallProc(blk, ctx.Wrap(scoped))
		scoped.closed = true
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, sqlError(ctx, err)
		}
		return out, nil
	}
}

func fnSQLClose() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		db := ctx.Self().(*object.NativeObject).Value.(*Database)
		if db.closed || db.tx != nil {
			return object.NIL, nil
		}
		db.closed = true
		if err := db.db.Close(); err != nil {
			return nil, sqlError(ctx, err)
		}
		return object.NIL, nil
	}
}

func fnSQLClosed() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(ctx.Self().(*object.NativeObject).Value.(*Database).closed), nil
	}
}

func fnSQLDriver() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(ctx.Self().(*object.NativeObject).Value.(*Database).driver), nil
	}
}

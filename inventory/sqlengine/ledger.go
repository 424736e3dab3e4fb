package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-lending/inventory"
	"github.com/AntonStoeckl/library-lending/inventory/sqlengine/internal/adapters"
	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	// DialectPostgres builds statements for PostgreSQL.
	DialectPostgres = "postgres"
	// DialectSQLite builds statements for SQLite.
	DialectSQLite = "sqlite3"

	defaultBooksTableName = "books"
	colID                 = "id"
	colISBN               = "isbn"
	colTitle              = "title"
	colAuthor             = "author"
	colPublisher          = "publisher"
	colDescription        = "description"
	colTotalStock         = "total_stock"
	colAvailableStock     = "available_stock"
	colStatus             = "status"
	colDeleted            = "deleted"
	colCreatedAt          = "created_at"
	colUpdatedAt          = "updated_at"
	notDeleted            = 0
	deleted               = 1
)

// Ledger owns the stock counters and catalog entries of books.
// It is safe for concurrent use; it holds no mutable state of its own.
type Ledger struct {
	db               adapters.DBAdapter
	dialect          string
	tableName        string
	logger           inventory.Logger
	contextualLogger inventory.ContextualLogger
	metricsCollector inventory.MetricsCollector
	tracingCollector inventory.TracingCollector
	clock            shell.Clock
	newID            func() string
}

// NewLedgerFromPGXPool creates a new Ledger using a pgx Pool with optional configuration.
func NewLedgerFromPGXPool(db *pgxpool.Pool, options ...Option) (*Ledger, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newLedger(adapters.NewPGXAdapter(db), DialectPostgres, options...)
}

// NewLedgerFromSQLDB creates a new Ledger using a sql.DB with optional configuration.
// The dialect defaults to Postgres; use WithDialect for SQLite.
func NewLedgerFromSQLDB(db *sql.DB, options ...Option) (*Ledger, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newLedger(adapters.NewSQLAdapter(db), DialectPostgres, options...)
}

// NewLedgerFromSQLX creates a new Ledger using a sqlx.DB with optional configuration.
// The dialect is derived from the driver name unless WithDialect is given.
func NewLedgerFromSQLX(db *sqlx.DB, options ...Option) (*Ledger, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newLedger(adapters.NewSQLXAdapter(db), DialectForDriver(db.DriverName()), options...)
}

// DialectForDriver maps a database/sql driver name to the statement dialect.
func DialectForDriver(driverName string) string {
	switch driverName {
	case "sqlite", "sqlite3":
		return DialectSQLite
	default:
		return DialectPostgres
	}
}

func newLedger(db adapters.DBAdapter, dialect string, options ...Option) (*Ledger, error) {
	l := &Ledger{
		db:        db,
		dialect:   dialect,
		tableName: defaultBooksTableName,
		clock:     shell.SystemClock,
		newID:     func() string { return uuid.NewString() },
	}

	for _, option := range options {
		if err := option(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// CheckAvailable reports whether the book exists, is not deleted, and has at least quantity copies available.
// A missing book is reported as false, not as an error.
func (l *Ledger) CheckAvailable(ctx context.Context, bookID string, quantity int) (bool, error) {
	if err := inventory.ValidateQuantity(quantity); err != nil {
		return false, err
	}

	count, err := l.count(ctx, operationCheckAvailable, goqu.And(
		goqu.C(colID).Eq(bookID),
		goqu.C(colDeleted).Eq(notDeleted),
		goqu.C(colAvailableStock).Gte(quantity),
	))
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Reserve takes quantity copies out of the available stock.
// It fails with inventory.ErrInsufficientStock when fewer than quantity copies are available.
func (l *Ledger) Reserve(ctx context.Context, bookID string, quantity int) (inventory.Stock, error) {
	return l.mutateStock(
		ctx,
		operationReserve,
		bookID,
		quantity,
		goqu.Record{colAvailableStock: goqu.L(colAvailableStock+" - ?", quantity)},
		goqu.C(colAvailableStock).Gte(quantity),
		inventory.ErrInsufficientStock,
	)
}

// Release puts quantity copies back into the available stock.
// It fails with inventory.ErrOverRelease when available stock would exceed total stock.
func (l *Ledger) Release(ctx context.Context, bookID string, quantity int) (inventory.Stock, error) {
	return l.mutateStock(
		ctx,
		operationRelease,
		bookID,
		quantity,
		goqu.Record{colAvailableStock: goqu.L(colAvailableStock+" + ?", quantity)},
		goqu.L(colAvailableStock+" + ? <= "+colTotalStock, quantity),
		inventory.ErrOverRelease,
	)
}

// AddStock raises total and available stock together.
// It fails with inventory.ErrStockLimitExceeded when total stock would pass inventory.MaxStock.
func (l *Ledger) AddStock(ctx context.Context, bookID string, quantity int) (inventory.Stock, error) {
	return l.mutateStock(
		ctx,
		operationAddStock,
		bookID,
		quantity,
		goqu.Record{
			colTotalStock:     goqu.L(colTotalStock+" + ?", quantity),
			colAvailableStock: goqu.L(colAvailableStock+" + ?", quantity),
		},
		goqu.C(colTotalStock).Lte(inventory.MaxStock-quantity),
		inventory.ErrStockLimitExceeded,
	)
}

// ReduceStock lowers total and available stock together.
// Only copies on the shelf can be written off, so it fails with inventory.ErrInsufficientStock
// when fewer than quantity copies are available.
func (l *Ledger) ReduceStock(ctx context.Context, bookID string, quantity int) (inventory.Stock, error) {
	return l.mutateStock(
		ctx,
		operationReduceStock,
		bookID,
		quantity,
		goqu.Record{
			colTotalStock:     goqu.L(colTotalStock+" - ?", quantity),
			colAvailableStock: goqu.L(colAvailableStock+" - ?", quantity),
		},
		goqu.C(colAvailableStock).Gte(quantity),
		inventory.ErrInsufficientStock,
	)
}

// mutateStock runs one conditional stock UPDATE and classifies a zero-row outcome.
func (l *Ledger) mutateStock(
	ctx context.Context,
	operation string,
	bookID string,
	quantity int,
	set goqu.Record,
	guard exp.Expression,
	rejectedErr error,
) (inventory.Stock, error) {

	if err := inventory.ValidateQuantity(quantity); err != nil {
		return inventory.Stock{}, err
	}

	ctx, span := l.startMutationSpan(ctx, operation, bookID, quantity)
	start := time.Now()

	set[colUpdatedAt] = l.clock()

	conditions := []exp.Expression{goqu.C(colID).Eq(bookID), goqu.C(colDeleted).Eq(notDeleted)}
	if guard != nil {
		conditions = append(conditions, guard)
	}

	stock, applied, err := l.executeConditionalUpdate(ctx, operation, bookID, set, goqu.And(conditions...))
	if err != nil {
		l.finishMutationSpanError(ctx, span, operation, errorTypeDatabase, time.Since(start))
		return inventory.Stock{}, err
	}

	if !applied {
		rejection, classifyErr := l.classifyRejection(ctx, bookID, rejectedErr)
		if classifyErr != nil {
			l.finishMutationSpanError(ctx, span, operation, errorTypeDatabase, time.Since(start))
			return inventory.Stock{}, classifyErr
		}

		l.recordRejection(ctx, operation, rejection)
		l.logOperation(ctx, logMsgMutationRejected,
			logAttrOperation, operation,
			logAttrBookID, bookID,
			logAttrQuantity, quantity,
			logAttrReason, rejection.Error(),
		)
		l.finishMutationSpanRejected(span, operation, time.Since(start))

		return inventory.Stock{}, rejection
	}

	duration := time.Since(start)
	l.recordDurationMetrics(ctx, metricStockMutationDuration, duration, operation, statusSuccess)
	l.logOperation(ctx, logMsgStockMutated,
		logAttrOperation, operation,
		logAttrBookID, bookID,
		logAttrQuantity, quantity,
		logAttrTotalStock, stock.Total,
		logAttrAvailableStock, stock.Available,
		logAttrDurationMS, toMilliseconds(duration),
	)
	l.finishMutationSpanSuccess(span, stock, duration)

	return stock, nil
}

// executeConditionalUpdate applies the UPDATE and returns the counters of the affected row.
// Postgres returns them in the same statement; SQLite reads them back after a successful update.
func (l *Ledger) executeConditionalUpdate(
	ctx context.Context,
	operation string,
	bookID string,
	set goqu.Record,
	where exp.Expression,
) (inventory.Stock, bool, error) {

	stmt := l.builder().Update(l.tableName).Set(set).Where(where)

	if l.supportsReturning() {
		return l.executeUpdateReturning(ctx, operation, stmt)
	}

	sqlQuery, args, toSQLErr := stmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		l.logError(ctx, logMsgBuildUpdateQueryFailed, toSQLErr, logAttrOperation, operation)
		return inventory.Stock{}, false, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, execErr := l.exec(ctx, operation, sqlQuery, args, inventory.ErrMutatingStockFailed)
	if execErr != nil {
		return inventory.Stock{}, false, execErr
	}

	if rowsAffected == 0 {
		return inventory.Stock{}, false, nil
	}

	stock, readErr := l.readStock(ctx, bookID)
	if readErr != nil {
		return inventory.Stock{}, false, readErr
	}

	return stock, true, nil
}

func (l *Ledger) executeUpdateReturning(
	ctx context.Context,
	operation string,
	stmt *goqu.UpdateDataset,
) (inventory.Stock, bool, error) {

	sqlQuery, args, toSQLErr := stmt.Returning(colTotalStock, colAvailableStock).Prepared(true).ToSQL()
	if toSQLErr != nil {
		l.logError(ctx, logMsgBuildUpdateQueryFailed, toSQLErr, logAttrOperation, operation)
		return inventory.Stock{}, false, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := l.db.Query(ctx, sqlQuery, args...)
	l.logQueryWithDuration(sqlQuery, operation, time.Since(start))

	if queryErr != nil {
		l.logError(ctx, logMsgDBExecFailed, queryErr, logAttrOperation, operation, logAttrQuery, sqlQuery)
		l.recordErrorMetrics(ctx, operation, errorTypeDatabase)
		return inventory.Stock{}, false, errors.Join(inventory.ErrMutatingStockFailed, queryErr)
	}
	defer l.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return inventory.Stock{}, false, errors.Join(inventory.ErrMutatingStockFailed, rowsErr)
		}

		return inventory.Stock{}, false, nil
	}

	var stock inventory.Stock
	if scanErr := rows.Scan(&stock.Total, &stock.Available); scanErr != nil {
		l.logError(ctx, logMsgScanRowFailed, scanErr, logAttrOperation, operation)
		return inventory.Stock{}, false, errors.Join(inventory.ErrScanningDBRowFailed, scanErr)
	}

	return stock, true, nil
}

func (l *Ledger) readStock(ctx context.Context, bookID string) (inventory.Stock, error) {
	sqlQuery, args, toSQLErr := l.builder().
		From(l.tableName).
		Select(colTotalStock, colAvailableStock).
		Where(goqu.C(colID).Eq(bookID), goqu.C(colDeleted).Eq(notDeleted)).
		Prepared(true).
		ToSQL()
	if toSQLErr != nil {
		return inventory.Stock{}, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := l.query(ctx, operationReadStock, sqlQuery, args)
	if err != nil {
		return inventory.Stock{}, err
	}
	defer l.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return inventory.Stock{}, errors.Join(inventory.ErrQueryingBooksFailed, rowsErr)
		}

		return inventory.Stock{}, inventory.ErrBookNotFound
	}

	var stock inventory.Stock
	if scanErr := rows.Scan(&stock.Total, &stock.Available); scanErr != nil {
		return inventory.Stock{}, errors.Join(inventory.ErrScanningDBRowFailed, scanErr)
	}

	return stock, nil
}

// classifyRejection tells a missing book apart from a failed guard.
func (l *Ledger) classifyRejection(ctx context.Context, bookID string, rejectedErr error) (error, error) {
	exists, err := l.bookExists(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if !exists || rejectedErr == nil {
		return inventory.ErrBookNotFound, nil
	}

	return rejectedErr, nil
}

func (l *Ledger) bookExists(ctx context.Context, bookID string) (bool, error) {
	count, err := l.count(ctx, operationExists, goqu.And(
		goqu.C(colID).Eq(bookID),
		goqu.C(colDeleted).Eq(notDeleted),
	))
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (l *Ledger) count(ctx context.Context, operation string, where exp.Expression) (int64, error) {
	sqlQuery, args, toSQLErr := l.builder().
		From(l.tableName).
		Select(goqu.COUNT(goqu.Star())).
		Where(where).
		Prepared(true).
		ToSQL()
	if toSQLErr != nil {
		l.logError(ctx, logMsgBuildSelectQueryFailed, toSQLErr, logAttrOperation, operation)
		return 0, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := l.query(ctx, operation, sqlQuery, args)
	if err != nil {
		return 0, err
	}
	defer l.closeRows(ctx, rows)

	var count int64
	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			l.logError(ctx, logMsgScanRowFailed, scanErr, logAttrOperation, operation)
			return 0, errors.Join(inventory.ErrScanningDBRowFailed, scanErr)
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return 0, errors.Join(inventory.ErrQueryingBooksFailed, rowsErr)
	}

	return count, nil
}

// query executes a SELECT and logs it with its duration.
func (l *Ledger) query(ctx context.Context, operation string, sqlQuery string, args []any) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := l.db.Query(ctx, sqlQuery, args...)
	duration := time.Since(start)
	l.logQueryWithDuration(sqlQuery, operation, duration)

	if queryErr != nil {
		l.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrOperation, operation, logAttrQuery, sqlQuery)
		l.recordErrorMetrics(ctx, operation, errorTypeDatabase)
		return nil, errors.Join(inventory.ErrQueryingBooksFailed, queryErr)
	}

	l.recordDurationMetrics(ctx, metricQueryDuration, duration, operation, statusSuccess)

	return rows, nil
}

// exec executes a write statement and returns the number of affected rows.
func (l *Ledger) exec(ctx context.Context, operation string, sqlQuery string, args []any, failure error) (int64, error) {
	start := time.Now()
	result, execErr := l.db.Exec(ctx, sqlQuery, args...)
	l.logQueryWithDuration(sqlQuery, operation, time.Since(start))

	if execErr != nil {
		l.logError(ctx, logMsgDBExecFailed, execErr, logAttrOperation, operation, logAttrQuery, sqlQuery)
		l.recordErrorMetrics(ctx, operation, errorTypeDatabase)
		return 0, errors.Join(failure, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		l.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr, logAttrOperation, operation)
		return 0, errors.Join(inventory.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// closeRows safely closes database rows and logs any errors.
func (l *Ledger) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		l.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (l *Ledger) builder() goqu.DialectWrapper {
	return goqu.Dialect(l.dialect)
}

func (l *Ledger) supportsReturning() bool {
	return l.dialect == DialectPostgres
}

package loanstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-lending/internal/sqlerrors"
	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"

	defaultTableName = "borrow_records"
	colID            = "id"
	colUserID        = "user_id"
	colUsername      = "username"
	colBookID        = "book_id"
	colBookISBN      = "book_isbn"
	colBookTitle     = "book_title"
	colQuantity      = "quantity"
	colBorrowTime    = "borrow_time"
	colDueTime       = "due_time"
	colReturnTime    = "return_time"
	colRenewCount    = "renew_count"
	colStatus        = "status"
	colRemark        = "remark"
	colDeleted       = "deleted"
	colCreatedAt     = "created_at"
	colUpdatedAt     = "updated_at"
	notDeleted       = 0
)

var loanColumns = []any{
	colID, colUserID, colUsername, colBookID, colBookISBN, colBookTitle, colQuantity,
	colBorrowTime, colDueTime, colReturnTime, colRenewCount, colStatus, colRemark,
	colCreatedAt, colUpdatedAt,
}

type loanRow struct {
	ID         string       `db:"id"`
	UserID     int64        `db:"user_id"`
	Username   string       `db:"username"`
	BookID     string       `db:"book_id"`
	BookISBN   string       `db:"book_isbn"`
	BookTitle  string       `db:"book_title"`
	Quantity   int          `db:"quantity"`
	BorrowTime time.Time    `db:"borrow_time"`
	DueTime    time.Time    `db:"due_time"`
	ReturnTime sql.NullTime `db:"return_time"`
	RenewCount int          `db:"renew_count"`
	Status     int          `db:"status"`
	Remark     string       `db:"remark"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

func (r loanRow) toLoan() core.Loan {
	loan := core.Loan{
		ID:         r.ID,
		UserID:     r.UserID,
		Username:   r.Username,
		BookID:     r.BookID,
		BookISBN:   r.BookISBN,
		BookTitle:  r.BookTitle,
		Quantity:   r.Quantity,
		BorrowTime: r.BorrowTime.UTC(),
		DueTime:    r.DueTime.UTC(),
		RenewCount: r.RenewCount,
		Status:     core.Status(r.Status),
		Remark:     r.Remark,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}

	if r.ReturnTime.Valid {
		returnTime := r.ReturnTime.Time.UTC()
		loan.ReturnTime = &returnTime
	}

	return loan
}

// Store reads and writes borrow records. It is safe for concurrent use.
type Store struct {
	db               *sqlx.DB
	dialect          string
	tableName        string
	logger           shell.Logger
	contextualLogger shell.ContextualLogger
	metricsCollector shell.MetricsCollector
	clock            shell.Clock
}

// NewStore creates a Store on top of db. The SQL dialect follows the driver name.
func NewStore(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, core.ErrNilDatabaseConnection
	}

	s := &Store{
		db:        db,
		dialect:   dialectForDriver(db.DriverName()),
		tableName: defaultTableName,
		clock:     shell.SystemClock,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func dialectForDriver(driverName string) string {
	switch driverName {
	case "sqlite", "sqlite3":
		return dialectSQLite
	default:
		return dialectPostgres
	}
}

// Create inserts a new borrow record. An empty ID is replaced with a fresh UUID.
// A second outstanding record for the same user and book fails with core.ErrDuplicateActiveLoan.
func (s *Store) Create(ctx context.Context, loan core.Loan) (core.Loan, error) {
	if loan.ID == "" {
		loan.ID = uuid.NewString()
	}

	now := s.clock()
	loan.CreatedAt = now
	loan.UpdatedAt = now

	var returnTime any
	if loan.ReturnTime != nil {
		returnTime = *loan.ReturnTime
	}

	sqlQuery, args, toSQLErr := s.builder().
		Insert(s.tableName).
		Rows(goqu.Record{
			colID:         loan.ID,
			colUserID:     loan.UserID,
			colUsername:   loan.Username,
			colBookID:     loan.BookID,
			colBookISBN:   loan.BookISBN,
			colBookTitle:  loan.BookTitle,
			colQuantity:   loan.Quantity,
			colBorrowTime: loan.BorrowTime,
			colDueTime:    loan.DueTime,
			colReturnTime: returnTime,
			colRenewCount: loan.RenewCount,
			colStatus:     int(loan.Status),
			colRemark:     loan.Remark,
			colDeleted:    notDeleted,
			colCreatedAt:  loan.CreatedAt,
			colUpdatedAt:  loan.UpdatedAt,
		}).
		Prepared(true).
		ToSQL()
	if toSQLErr != nil {
		return core.Loan{}, s.buildFailed(ctx, operationCreate, toSQLErr)
	}

	if _, err := s.exec(ctx, operationCreate, sqlQuery, args); err != nil {
		if sqlerrors.IsUniqueViolation(err) {
			return core.Loan{}, core.ErrDuplicateActiveLoan
		}

		return core.Loan{}, err
	}

	s.logOperation(ctx, logMsgLoanCreated,
		logAttrLoanID, loan.ID,
		logAttrUserID, loan.UserID,
		logAttrBookID, loan.BookID,
		logAttrQuantity, loan.Quantity,
	)

	return loan, nil
}

// Get loads a non-deleted borrow record or fails with core.ErrLoanNotFound.
func (s *Store) Get(ctx context.Context, loanID string) (core.Loan, error) {
	loans, err := s.selectLoans(ctx, operationGet, func(ds *goqu.SelectDataset) *goqu.SelectDataset {
		return ds.Where(goqu.C(colID).Eq(loanID), goqu.C(colDeleted).Eq(notDeleted)).Limit(1)
	})
	if err != nil {
		return core.Loan{}, err
	}

	if len(loans) == 0 {
		return core.Loan{}, core.ErrLoanNotFound
	}

	return loans[0], nil
}

// CountOutstanding counts the user's loans whose copies are still out.
func (s *Store) CountOutstanding(ctx context.Context, userID int64) (int64, error) {
	return s.count(ctx, operationCountOutstanding, goqu.And(
		goqu.C(colUserID).Eq(userID),
		goqu.C(colDeleted).Eq(notDeleted),
		goqu.C(colStatus).In(statusValues(core.OutstandingStatuses)),
	))
}

// HasOutstandingLoan reports whether the user has an outstanding loan for the book.
func (s *Store) HasOutstandingLoan(ctx context.Context, userID int64, bookID string) (bool, error) {
	count, err := s.count(ctx, operationHasOutstanding, goqu.And(
		goqu.C(colUserID).Eq(userID),
		goqu.C(colBookID).Eq(bookID),
		goqu.C(colDeleted).Eq(notDeleted),
		goqu.C(colStatus).In(statusValues(core.OutstandingStatuses)),
	))
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// MarkReturned closes an outstanding loan. The remark is only overwritten when it is not empty.
// If the loan is no longer outstanding it fails with core.ErrLoanNotOutstanding.
func (s *Store) MarkReturned(ctx context.Context, loanID string, returnTime time.Time, remark string) error {
	record := goqu.Record{
		colStatus:     int(core.StatusReturned),
		colReturnTime: returnTime,
		colUpdatedAt:  s.clock(),
	}
	if remark != "" {
		record[colRemark] = remark
	}

	applied, err := s.updateLoan(ctx, operationMarkReturned, record, goqu.And(
		goqu.C(colID).Eq(loanID),
		goqu.C(colDeleted).Eq(notDeleted),
		goqu.C(colStatus).In(statusValues(core.OutstandingStatuses)),
	))
	if err != nil {
		return err
	}

	if applied == 0 {
		return s.classifyRejection(ctx, operationMarkReturned, loanID, core.ErrLoanNotOutstanding)
	}

	s.logOperation(ctx, logMsgLoanReturned, logAttrLoanID, loanID)

	return nil
}

// Renew moves the due time and bumps the renew counter, guarded by the renew counter the
// caller observed. Overdue loans are not touched. A lost race fails with core.ErrConcurrentModification.
func (s *Store) Renew(ctx context.Context, loanID string, observedRenewCount int, newDueTime time.Time) error {
	applied, err := s.updateLoan(ctx, operationRenew, goqu.Record{
		colDueTime:    newDueTime,
		colRenewCount: observedRenewCount + 1,
		colStatus:     int(core.StatusBorrowing),
		colUpdatedAt:  s.clock(),
	}, goqu.And(
		goqu.C(colID).Eq(loanID),
		goqu.C(colDeleted).Eq(notDeleted),
		goqu.C(colRenewCount).Eq(observedRenewCount),
		goqu.C(colStatus).In(statusValues(core.SweepableStatuses)),
	))
	if err != nil {
		return err
	}

	if applied == 0 {
		return s.classifyRejection(ctx, operationRenew, loanID, core.ErrConcurrentModification)
	}

	s.logOperation(ctx, logMsgLoanRenewed,
		logAttrLoanID, loanID,
		logAttrRenewCount, observedRenewCount+1,
		logAttrDueTime, newDueTime,
	)

	return nil
}

// MarkOverdue moves every borrowing or renewed loan whose due time lies before now to overdue
// and returns how many records changed. Running it again for the same now changes nothing.
func (s *Store) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	changed, err := s.updateLoan(ctx, operationMarkOverdue, goqu.Record{
		colStatus:    int(core.StatusOverdue),
		colUpdatedAt: s.clock(),
	}, goqu.And(
		goqu.C(colDeleted).Eq(notDeleted),
		goqu.C(colStatus).In(statusValues(core.SweepableStatuses)),
		goqu.C(colDueTime).Lt(now),
	))
	if err != nil {
		return 0, err
	}

	s.logOperation(ctx, logMsgLoansMarkedOverdue, logAttrCount, changed)

	return changed, nil
}

// UpdateBookTitle rewrites the title snapshot on every record of the book and returns how many changed.
func (s *Store) UpdateBookTitle(ctx context.Context, bookID string, title string) (int64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, core.ErrEmptyBookTitle
	}

	changed, err := s.updateLoan(ctx, operationUpdateBookTitle, goqu.Record{
		colBookTitle: title,
		colUpdatedAt: s.clock(),
	}, goqu.And(
		goqu.C(colBookID).Eq(bookID),
		goqu.C(colDeleted).Eq(notDeleted),
	))
	if err != nil {
		return 0, err
	}

	s.logOperation(ctx, logMsgBookTitleUpdated, logAttrBookID, bookID, logAttrCount, changed)

	return changed, nil
}

// List returns one page of records matching query, newest borrow time first.
func (s *Store) List(ctx context.Context, query core.LoanQuery, maxPageSize int) (core.LoanPage, error) {
	page := query.Page.Normalize(maxPageSize)
	where := s.buildLoanFilter(query)

	total, err := s.count(ctx, operationCountLoans, where)
	if err != nil {
		return core.LoanPage{}, err
	}

	var loans []core.Loan
	if total > int64(page.Offset()) {
		loans, err = s.selectLoans(ctx, operationListLoans, func(ds *goqu.SelectDataset) *goqu.SelectDataset {
			return ds.Where(where).
				Order(goqu.I(colBorrowTime).Desc(), goqu.I(colID).Asc()).
				Limit(uint(page.Size)).
				Offset(uint(page.Offset()))
		})
		if err != nil {
			return core.LoanPage{}, err
		}
	}

	return shell.NewPageResult(page, total, loans), nil
}

func (s *Store) buildLoanFilter(query core.LoanQuery) exp.Expression {
	conditions := []exp.Expression{goqu.C(colDeleted).Eq(notDeleted)}

	if query.UserID != nil {
		conditions = append(conditions, goqu.C(colUserID).Eq(*query.UserID))
	}

	if query.BookID != "" {
		conditions = append(conditions, goqu.C(colBookID).Eq(query.BookID))
	}

	if query.BookTitle != "" {
		conditions = append(conditions, goqu.C(colBookTitle).ILike("%"+query.BookTitle+"%"))
	}

	if query.Status != nil {
		conditions = append(conditions, goqu.C(colStatus).Eq(int(*query.Status)))
	}

	if query.BorrowStartTime != nil {
		conditions = append(conditions, goqu.C(colBorrowTime).Gte(*query.BorrowStartTime))
	}

	if query.BorrowEndTime != nil {
		conditions = append(conditions, goqu.C(colBorrowTime).Lte(*query.BorrowEndTime))
	}

	if query.OverdueOnly {
		// unswept loans past their due time count as overdue too
		conditions = append(conditions, goqu.Or(
			goqu.C(colStatus).Eq(int(core.StatusOverdue)),
			goqu.And(
				goqu.C(colStatus).In(statusValues(core.SweepableStatuses)),
				goqu.C(colDueTime).Lt(s.clock()),
			),
		))
	}

	return goqu.And(conditions...)
}

// Statistics aggregates the user's records. Overdue counts records currently overdue
// and records that were returned after their due time.
func (s *Store) Statistics(ctx context.Context, userID int64) (core.Statistics, error) {
	ofUser := []exp.Expression{goqu.C(colUserID).Eq(userID), goqu.C(colDeleted).Eq(notDeleted)}

	total, err := s.count(ctx, operationStatistics, goqu.And(ofUser...))
	if err != nil {
		return core.Statistics{}, err
	}

	current, err := s.count(ctx, operationStatistics, goqu.And(
		append(ofUser, goqu.C(colStatus).In(statusValues(core.OutstandingStatuses)))...,
	))
	if err != nil {
		return core.Statistics{}, err
	}

	overdue, err := s.count(ctx, operationStatistics, goqu.And(
		append(ofUser, goqu.Or(
			goqu.C(colStatus).Eq(int(core.StatusOverdue)),
			goqu.And(
				goqu.C(colStatus).Eq(int(core.StatusReturned)),
				goqu.L(colReturnTime+" > "+colDueTime),
			),
		))...,
	))
	if err != nil {
		return core.Statistics{}, err
	}

	return core.Statistics{
		TotalBorrowed:    total,
		CurrentBorrowing: current,
		OverdueCount:     overdue,
	}, nil
}

func (s *Store) updateLoan(ctx context.Context, operation string, record goqu.Record, where exp.Expression) (int64, error) {
	sqlQuery, args, toSQLErr := s.builder().
		Update(s.tableName).
		Set(record).
		Where(where).
		Prepared(true).
		ToSQL()
	if toSQLErr != nil {
		return 0, s.buildFailed(ctx, operation, toSQLErr)
	}

	return s.exec(ctx, operation, sqlQuery, args)
}

// classifyRejection tells a missing record apart from a failed guard.
func (s *Store) classifyRejection(ctx context.Context, operation string, loanID string, guardErr error) error {
	count, err := s.count(ctx, operationExists, goqu.And(
		goqu.C(colID).Eq(loanID),
		goqu.C(colDeleted).Eq(notDeleted),
	))
	if err != nil {
		return err
	}

	rejection := guardErr
	if count == 0 {
		rejection = core.ErrLoanNotFound
	}

	s.logOperation(ctx, logMsgUpdateRejected,
		logAttrOperation, operation,
		logAttrLoanID, loanID,
		logAttrReason, rejection.Error(),
	)

	return rejection
}

func (s *Store) count(ctx context.Context, operation string, where exp.Expression) (int64, error) {
	sqlQuery, args, toSQLErr := s.builder().
		From(s.tableName).
		Select(goqu.COUNT(goqu.Star())).
		Where(where).
		Prepared(true).
		ToSQL()
	if toSQLErr != nil {
		return 0, s.buildFailed(ctx, operation, toSQLErr)
	}

	var count int64

	start := time.Now()
	err := s.db.GetContext(ctx, &count, sqlQuery, args...)
	s.observeQuery(ctx, operation, sqlQuery, time.Since(start), err)

	if err != nil {
		return 0, errors.Join(core.ErrQueryingLoansFailed, err)
	}

	return count, nil
}

func (s *Store) selectLoans(
	ctx context.Context,
	operation string,
	refine func(*goqu.SelectDataset) *goqu.SelectDataset,
) ([]core.Loan, error) {

	sqlQuery, args, toSQLErr := refine(s.builder().From(s.tableName).Select(loanColumns...)).Prepared(true).ToSQL()
	if toSQLErr != nil {
		return nil, s.buildFailed(ctx, operation, toSQLErr)
	}

	var rows []loanRow

	start := time.Now()
	err := s.db.SelectContext(ctx, &rows, sqlQuery, args...)
	s.observeQuery(ctx, operation, sqlQuery, time.Since(start), err)

	if err != nil {
		return nil, errors.Join(core.ErrQueryingLoansFailed, err)
	}

	loans := make([]core.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.toLoan())
	}

	return loans, nil
}

func (s *Store) exec(ctx context.Context, operation string, sqlQuery string, args []any) (int64, error) {
	start := time.Now()
	result, execErr := s.db.ExecContext(ctx, sqlQuery, args...)
	s.observeQuery(ctx, operation, sqlQuery, time.Since(start), execErr)

	if execErr != nil {
		return 0, errors.Join(core.ErrWritingLoanFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		s.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr, logAttrOperation, operation)
		return 0, errors.Join(core.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

func (s *Store) buildFailed(ctx context.Context, operation string, err error) error {
	s.logError(ctx, logMsgBuildQueryFailed, err, logAttrOperation, operation)
	return errors.Join(core.ErrBuildingQueryFailed, err)
}

func (s *Store) builder() goqu.DialectWrapper {
	return goqu.Dialect(s.dialect)
}

func statusValues(statuses []core.Status) []any {
	values := make([]any, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, int(status))
	}

	return values
}

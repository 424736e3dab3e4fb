package sqlengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/library-lending/internal/sqlerrors"
	"github.com/AntonStoeckl/library-lending/inventory"
	"github.com/AntonStoeckl/library-lending/shell"
)

var bookColumns = []any{
	colID, colISBN, colTitle, colAuthor, colPublisher, colDescription,
	colTotalStock, colAvailableStock, colStatus, colCreatedAt, colUpdatedAt,
}

// CreateBook adds a catalog entry with AvailableStock equal to TotalStock.
// The status defaults to listed.
func (l *Ledger) CreateBook(ctx context.Context, input inventory.NewBook) (inventory.Book, error) {
	if err := input.Validate(); err != nil {
		return inventory.Book{}, err
	}

	if err := l.ensureISBNIsFree(ctx, input.ISBN, ""); err != nil {
		return inventory.Book{}, err
	}

	now := l.clock()
	status := inventory.StatusListed
	if input.Status != nil {
		status = *input.Status
	}

	book := inventory.Book{
		ID:             l.newID(),
		ISBN:           input.ISBN,
		Title:          input.Title,
		Author:         input.Author,
		Publisher:      input.Publisher,
		Description:    input.Description,
		TotalStock:     input.TotalStock,
		AvailableStock: input.TotalStock,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	sqlQuery, args, toSQLErr := l.builder().
		Insert(l.tableName).
		Rows(goqu.Record{
			colID:             book.ID,
			colISBN:           book.ISBN,
			colTitle:          book.Title,
			colAuthor:         book.Author,
			colPublisher:      book.Publisher,
			colDescription:    book.Description,
			colTotalStock:     book.TotalStock,
			colAvailableStock: book.AvailableStock,
			colStatus:         int(book.Status),
			colDeleted:        notDeleted,
			colCreatedAt:      book.CreatedAt,
			colUpdatedAt:      book.UpdatedAt,
		}).
		Prepared(true).
		ToSQL()
	if toSQLErr != nil {
		l.logError(ctx, logMsgBuildInsertQueryFailed, toSQLErr, logAttrOperation, operationCreateBook)
		return inventory.Book{}, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	if _, err := l.exec(ctx, operationCreateBook, sqlQuery, args, inventory.ErrWritingBookFailed); err != nil {
		if sqlerrors.IsUniqueViolation(err) {
			return inventory.Book{}, inventory.ErrBookAlreadyExists
		}

		return inventory.Book{}, err
	}

	l.logOperation(ctx, logMsgBookCreated,
		logAttrBookID, book.ID,
		logAttrISBN, book.ISBN,
		logAttrTotalStock, book.TotalStock,
	)

	return book, nil
}

// GetBook loads a non-deleted book.
func (l *Ledger) GetBook(ctx context.Context, bookID string) (inventory.Book, error) {
	books, err := l.selectBooks(ctx, operationGetBook, func(ds *goqu.SelectDataset) *goqu.SelectDataset {
		return ds.Where(goqu.C(colID).Eq(bookID), goqu.C(colDeleted).Eq(notDeleted))
	})
	if err != nil {
		return inventory.Book{}, err
	}

	if len(books) == 0 {
		return inventory.Book{}, inventory.ErrBookNotFound
	}

	return books[0], nil
}

// ListBooks returns one page of non-deleted books, newest first.
func (l *Ledger) ListBooks(ctx context.Context, query inventory.BookQuery, maxPageSize int) (inventory.BookPage, error) {
	page := query.Page.Normalize(maxPageSize)
	where := buildBookFilter(query)

	total, err := l.count(ctx, operationCountBooks, where)
	if err != nil {
		return inventory.BookPage{}, err
	}

	var books []inventory.Book
	if total > int64(page.Offset()) {
		books, err = l.selectBooks(ctx, operationListBooks, func(ds *goqu.SelectDataset) *goqu.SelectDataset {
			return ds.Where(where).
				Order(goqu.I(colCreatedAt).Desc(), goqu.I(colID).Asc()).
				Limit(uint(page.Size)).
				Offset(uint(page.Offset()))
		})
		if err != nil {
			return inventory.BookPage{}, err
		}
	}

	return shell.NewPageResult(page, total, books), nil
}

func buildBookFilter(query inventory.BookQuery) exp.Expression {
	conditions := []exp.Expression{goqu.C(colDeleted).Eq(notDeleted)}

	if query.Keyword != "" {
		pattern := "%" + query.Keyword + "%"
		conditions = append(conditions, goqu.Or(
			goqu.C(colTitle).ILike(pattern),
			goqu.C(colAuthor).ILike(pattern),
			goqu.C(colISBN).ILike(pattern),
		))
	}

	if query.Author != "" {
		conditions = append(conditions, goqu.C(colAuthor).ILike("%"+query.Author+"%"))
	}

	if query.Status != nil {
		conditions = append(conditions, goqu.C(colStatus).Eq(int(*query.Status)))
	}

	if query.HasStock {
		conditions = append(conditions, goqu.C(colAvailableStock).Gt(0))
	}

	return goqu.And(conditions...)
}

// UpdateBook changes catalog metadata and returns the updated book together with the title it had before.
func (l *Ledger) UpdateBook(ctx context.Context, bookID string, changes inventory.BookChanges) (inventory.Book, string, error) {
	if err := changes.Validate(); err != nil {
		return inventory.Book{}, "", err
	}

	current, err := l.GetBook(ctx, bookID)
	if err != nil {
		return inventory.Book{}, "", err
	}

	if changes.IsEmpty() {
		return current, current.Title, nil
	}

	if changes.ISBN != nil && *changes.ISBN != current.ISBN {
		if err = l.ensureISBNIsFree(ctx, *changes.ISBN, bookID); err != nil {
			return inventory.Book{}, "", err
		}
	}

	record := goqu.Record{colUpdatedAt: l.clock()}
	for column, value := range map[string]*string{
		colISBN:        changes.ISBN,
		colTitle:       changes.Title,
		colAuthor:      changes.Author,
		colPublisher:   changes.Publisher,
		colDescription: changes.Description,
	} {
		if value != nil {
			record[column] = *value
		}
	}

	if err = l.updateBookRow(ctx, operationUpdateBook, bookID, record, nil); err != nil {
		return inventory.Book{}, "", err
	}

	updated, err := l.GetBook(ctx, bookID)
	if err != nil {
		return inventory.Book{}, "", err
	}

	l.logOperation(ctx, logMsgBookUpdated,
		logAttrBookID, bookID,
		logAttrTitle, updated.Title,
	)

	return updated, current.Title, nil
}

// SetStatus lists or unlists a book.
func (l *Ledger) SetStatus(ctx context.Context, bookID string, status inventory.BookStatus) error {
	if !status.Valid() {
		return errors.Join(inventory.ErrInvalidBook, errors.New("unknown book status"))
	}

	err := l.updateBookRow(ctx, operationSetStatus, bookID, goqu.Record{
		colStatus:    int(status),
		colUpdatedAt: l.clock(),
	}, nil)
	if err != nil {
		return err
	}

	l.logOperation(ctx, logMsgBookStatusChanged, logAttrBookID, bookID, logAttrStatus, status.Description())

	return nil
}

// DeleteBook soft-deletes a book. It is rejected with inventory.ErrBookHasOutstandingLoans
// while any copy is not on the shelf (available_stock < total_stock).
func (l *Ledger) DeleteBook(ctx context.Context, bookID string) error {
	err := l.updateBookRow(ctx, operationDeleteBook, bookID, goqu.Record{
		colDeleted:   deleted,
		colUpdatedAt: l.clock(),
	}, goqu.L(colAvailableStock+" = "+colTotalStock))
	if err != nil {
		return err
	}

	l.logOperation(ctx, logMsgBookDeleted, logAttrBookID, bookID)

	return nil
}

// updateBookRow runs a single-row UPDATE on a non-deleted book. A zero-row outcome is
// inventory.ErrBookNotFound, or inventory.ErrBookHasOutstandingLoans when a guard was given.
func (l *Ledger) updateBookRow(
	ctx context.Context,
	operation string,
	bookID string,
	record goqu.Record,
	guard exp.Expression,
) error {

	conditions := []exp.Expression{goqu.C(colID).Eq(bookID), goqu.C(colDeleted).Eq(notDeleted)}
	if guard != nil {
		conditions = append(conditions, guard)
	}

	sqlQuery, args, toSQLErr := l.builder().
		Update(l.tableName).
		Set(record).
		Where(conditions...).
		Prepared(true).
		ToSQL()
	if toSQLErr != nil {
		l.logError(ctx, logMsgBuildUpdateQueryFailed, toSQLErr, logAttrOperation, operation)
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, err := l.exec(ctx, operation, sqlQuery, args, inventory.ErrWritingBookFailed)
	if err != nil {
		if sqlerrors.IsUniqueViolation(err) {
			return inventory.ErrBookAlreadyExists
		}

		return err
	}

	if rowsAffected > 0 {
		return nil
	}

	var guardErr error
	if guard != nil {
		guardErr = inventory.ErrBookHasOutstandingLoans
	}

	rejection, classifyErr := l.classifyRejection(ctx, bookID, guardErr)
	if classifyErr != nil {
		return classifyErr
	}

	l.recordRejection(ctx, operation, rejection)

	return rejection
}

func (l *Ledger) ensureISBNIsFree(ctx context.Context, isbn string, exceptBookID string) error {
	conditions := []exp.Expression{goqu.C(colISBN).Eq(isbn), goqu.C(colDeleted).Eq(notDeleted)}
	if exceptBookID != "" {
		conditions = append(conditions, goqu.C(colID).Neq(exceptBookID))
	}

	count, err := l.count(ctx, operationExists, goqu.And(conditions...))
	if err != nil {
		return err
	}

	if count > 0 {
		return inventory.ErrBookAlreadyExists
	}

	return nil
}

func (l *Ledger) selectBooks(
	ctx context.Context,
	operation string,
	refine func(*goqu.SelectDataset) *goqu.SelectDataset,
) ([]inventory.Book, error) {

	sqlQuery, args, toSQLErr := refine(l.builder().From(l.tableName).Select(bookColumns...)).Prepared(true).ToSQL()
	if toSQLErr != nil {
		l.logError(ctx, logMsgBuildSelectQueryFailed, toSQLErr, logAttrOperation, operation)
		return nil, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := l.query(ctx, operation, sqlQuery, args)
	if err != nil {
		return nil, err
	}
	defer l.closeRows(ctx, rows)

	books := make([]inventory.Book, 0)

	for rows.Next() {
		var (
			book      inventory.Book
			status    int
			createdAt time.Time
			updatedAt time.Time
		)

		scanErr := rows.Scan(
			&book.ID, &book.ISBN, &book.Title, &book.Author, &book.Publisher, &book.Description,
			&book.TotalStock, &book.AvailableStock, &status, &createdAt, &updatedAt,
		)
		if scanErr != nil {
			l.logError(ctx, logMsgScanRowFailed, scanErr, logAttrOperation, operation)
			return nil, errors.Join(inventory.ErrScanningDBRowFailed, scanErr)
		}

		book.Status = inventory.BookStatus(status)
		book.CreatedAt = createdAt.UTC()
		book.UpdatedAt = updatedAt.UTC()
		books = append(books, book)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(inventory.ErrQueryingBooksFailed, rowsErr)
	}

	return books, nil
}

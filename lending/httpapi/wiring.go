package httpapi

import (
	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/lending/features/borrowbook"
	"github.com/AntonStoeckl/library-lending/lending/features/markoverdue"
	"github.com/AntonStoeckl/library-lending/lending/features/query/loans"
	"github.com/AntonStoeckl/library-lending/lending/features/renamebooktitle"
	"github.com/AntonStoeckl/library-lending/lending/features/renewloan"
	"github.com/AntonStoeckl/library-lending/lending/features/returnbook"
	"github.com/AntonStoeckl/library-lending/lending/loanstore"
	"github.com/AntonStoeckl/library-lending/lending/sweeper"
	"github.com/AntonStoeckl/library-lending/shell"
	"github.com/AntonStoeckl/library-lending/shell/observable"
)

// Dependencies are what the lending handlers are built from. A zero Policy selects
// core.DefaultPolicy.
type Dependencies struct {
	Loans       *loanstore.Store
	Inventory   borrowbook.Inventory
	Policy      core.Policy
	Clock       shell.Clock
	MaxPageSize int
	Collectors  observable.Collectors
}

func (d Dependencies) clock() shell.Clock {
	if d.Clock == nil {
		return shell.SystemClock
	}

	return d.Clock
}

func (d Dependencies) policy() core.Policy {
	if d.Policy == (core.Policy{}) {
		return core.DefaultPolicy()
	}

	return d.Policy
}

func (d Dependencies) maxPageSize() int {
	if d.MaxPageSize <= 0 {
		return shell.MaxPageSize
	}

	return d.MaxPageSize
}

// BuildHandlers wires the feature handlers and wraps each in its observable decorator.
func BuildHandlers(deps Dependencies) (Handlers, error) {
	var (
		handlers Handlers
		err      error
	)

	clock := deps.clock()
	logger := deps.Collectors.Logger
	queryOptions := []loans.Option{loans.WithClock(clock), loans.WithMaxPageSize(deps.maxPageSize())}

	borrowOptions := []borrowbook.Option{borrowbook.WithPolicy(deps.policy()), borrowbook.WithClock(clock)}
	returnOptions := []returnbook.Option{returnbook.WithClock(clock)}
	if logger != nil {
		borrowOptions = append(borrowOptions, borrowbook.WithLogger(logger))
		returnOptions = append(returnOptions, returnbook.WithLogger(logger))
	}

	handlers.Borrow, err = observable.Command[borrowbook.Command, core.Loan](
		borrowbook.NewCommandHandler(deps.Loans, deps.Inventory, borrowOptions...),
		deps.Collectors, core.IsBusinessRejection,
	)
	if err != nil {
		return Handlers{}, err
	}

	handlers.Return, err = observable.Command[returnbook.Command, core.Loan](
		returnbook.NewCommandHandler(deps.Loans, deps.Inventory, returnOptions...),
		deps.Collectors, core.IsBusinessRejection,
	)
	if err != nil {
		return Handlers{}, err
	}

	handlers.Renew, err = observable.Command[renewloan.Command, core.Loan](
		renewloan.NewCommandHandler(deps.Loans, renewloan.WithPolicy(deps.policy()), renewloan.WithClock(clock)),
		deps.Collectors, core.IsBusinessRejection,
	)
	if err != nil {
		return Handlers{}, err
	}

	handlers.RenameTitle, err = observable.Command[renamebooktitle.Command, int64](
		renamebooktitle.NewCommandHandler(deps.Loans),
		deps.Collectors, core.IsBusinessRejection,
	)
	if err != nil {
		return Handlers{}, err
	}

	handlers.GetLoan, err = observable.Query[loans.GetLoan, loans.LoanView](
		loans.NewGetLoanHandler(deps.Loans, queryOptions...),
		deps.Collectors, core.IsBusinessRejection,
	)
	if err != nil {
		return Handlers{}, err
	}

	handlers.ListLoans, err = observable.Query[loans.ListLoans, loans.LoanViewPage](
		loans.NewListLoansHandler(deps.Loans, queryOptions...),
		deps.Collectors, core.IsBusinessRejection,
	)
	if err != nil {
		return Handlers{}, err
	}

	handlers.Statistics, err = observable.Query[loans.GetStatistics, core.Statistics](
		loans.NewStatisticsHandler(deps.Loans),
		deps.Collectors, core.IsBusinessRejection,
	)
	if err != nil {
		return Handlers{}, err
	}

	handlers.Count, err = observable.Query[loans.CountOutstanding, int64](
		loans.NewCountOutstandingHandler(deps.Loans),
		deps.Collectors, core.IsBusinessRejection,
	)
	if err != nil {
		return Handlers{}, err
	}

	return handlers, nil
}

// BuildSweepHandler wires the overdue sweep for the sweeper.
func BuildSweepHandler(deps Dependencies) (sweeper.SweepHandler, error) {
	options := []markoverdue.Option{markoverdue.WithClock(deps.clock())}
	if deps.Collectors.Logger != nil {
		options = append(options, markoverdue.WithLogger(deps.Collectors.Logger))
	}

	handler, err := observable.Command[markoverdue.Command, int64](
		markoverdue.NewCommandHandler(deps.Loans, options...),
		deps.Collectors, core.IsBusinessRejection,
	)
	if err != nil {
		return nil, err
	}

	return handler, nil
}

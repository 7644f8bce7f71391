package payroll

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"campus/internal/domain/components"
	"campus/internal/domain/staff"
)

// RecordStore is what the service needs from persistence. *Store satisfies it;
// service tests use an in-memory fake.
type RecordStore interface {
	Upsert(ctx context.Context, p UpsertParams) (Record, error)
	CreateIfAbsent(ctx context.Context, p UpsertParams) (Record, bool, error)
	Advance(ctx context.Context, schoolID, recordID, toStatus string, paymentDate *time.Time) (Record, error)
	Get(ctx context.Context, schoolID, recordID string) (Record, error)
	List(ctx context.Context, schoolID string, f ListFilter, limit, offset int) ([]Record, error)
	Summarize(ctx context.Context, schoolID string, month, year int) (Summary, error)
}

type StaffDirectory interface {
	Get(ctx context.Context, schoolID, staffID string) (staff.Member, error)
	ListActive(ctx context.Context, schoolID string) ([]staff.Member, error)
}

type ComponentSource interface {
	ListActive(ctx context.Context, schoolID string) ([]components.Component, error)
}

type Service struct {
	records RecordStore
	staff   StaffDirectory
	catalog ComponentSource
	workers int
	now     func() time.Time
}

func NewService(records RecordStore, directory StaffDirectory, catalog ComponentSource, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		records: records,
		staff:   directory,
		catalog: catalog,
		workers: workers,
		now:     time.Now,
	}
}

// Preview computes the totals a submission would persist, without writing
// anything.
func (s *Service) Preview(ctx context.Context, schoolID string, in SubmitInput) (Totals, error) {
	if err := ValidatePeriod(in.Month, in.Year); err != nil {
		return Totals{}, err
	}
	basic, _, err := s.resolveBasicSalary(ctx, schoolID, in)
	if err != nil {
		return Totals{}, err
	}
	active, err := s.catalog.ListActive(ctx, schoolID)
	if err != nil {
		return Totals{}, err
	}
	if err := validateSelections(in, active); err != nil {
		return Totals{}, err
	}
	return Compute(basic, in.Earnings, in.Deductions, active), nil
}

// Defaults returns the selections a client form should be pre-filled with:
// every active component resolved against the staff member's base salary.
func (s *Service) Defaults(ctx context.Context, schoolID, staffID string) (Selections, Selections, error) {
	member, err := s.staff.Get(ctx, schoolID, staffID)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			return nil, nil, ErrStaffNotFound
		}
		return nil, nil, err
	}

	var basic float64
	if member.BaseSalary != nil {
		basic = *member.BaseSalary
	}

	active, err := s.catalog.ListActive(ctx, schoolID)
	if err != nil {
		return nil, nil, err
	}

	earnings := Selections{}
	deductions := Selections{}
	for _, c := range active {
		amount := components.ResolveDefault(c, basic)
		switch c.Type {
		case components.TypeEarning:
			earnings[c.ID] = amount
		case components.TypeDeduction:
			deductions[c.ID] = amount
		}
	}
	return earnings, deductions, nil
}

// Submit generates or regenerates the payroll record for one staff member and
// period. Resubmitting the same period replaces the monetary snapshot but
// keeps the record's identity.
func (s *Service) Submit(ctx context.Context, schoolID string, in SubmitInput) (Record, error) {
	if err := ValidatePeriod(in.Month, in.Year); err != nil {
		return Record{}, err
	}
	basic, _, err := s.resolveBasicSalary(ctx, schoolID, in)
	if err != nil {
		return Record{}, err
	}
	active, err := s.catalog.ListActive(ctx, schoolID)
	if err != nil {
		return Record{}, err
	}
	if err := validateSelections(in, active); err != nil {
		return Record{}, err
	}

	totals := Compute(basic, in.Earnings, in.Deductions, active)
	return s.records.Upsert(ctx, UpsertParams{
		SchoolID:      schoolID,
		StaffID:       in.StaffID,
		Month:         in.Month,
		Year:          in.Year,
		Totals:        totals,
		PaymentMethod: paymentMethodOrDefault(in.PaymentMethod),
		PaymentStatus: StatusPending,
		Notes:         in.Notes,
	})
}

// BulkInput configures a whole-roster run for one period. Selections apply
// uniformly to every staff member; component defaults are not resolved here,
// callers wanting per-staff defaults submit individually.
type BulkInput struct {
	Month         int        `json:"month"`
	Year          int        `json:"year"`
	Earnings      Selections `json:"earningsSelections"`
	Deductions    Selections `json:"deductionsSelections"`
	PaymentMethod string     `json:"paymentMethod"`
}

// RunBulk generates pending records for every active staff member that does
// not already have one for the period. Staff with a record are reported in
// Skipped; staff without a base salary get a zero-amount record with an
// explanatory note so the gap is visible in the output rather than silently
// dropped.
func (s *Service) RunBulk(ctx context.Context, schoolID string, in BulkInput) (BulkResult, error) {
	if err := ValidatePeriod(in.Month, in.Year); err != nil {
		return BulkResult{}, err
	}
	members, err := s.staff.ListActive(ctx, schoolID)
	if err != nil {
		return BulkResult{}, err
	}
	active, err := s.catalog.ListActive(ctx, schoolID)
	if err != nil {
		return BulkResult{}, err
	}
	if err := validateBulkSelections(in, active); err != nil {
		return BulkResult{}, err
	}

	var (
		mu     sync.Mutex
		result BulkResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, member := range members {
		g.Go(func() error {
			var basic float64
			notes := ""
			if member.BaseSalary != nil {
				basic = *member.BaseSalary
			} else {
				notes = NoteMissingBaseSalary
			}

			totals := Compute(basic, in.Earnings, in.Deductions, active)
			record, created, err := s.records.CreateIfAbsent(gctx, UpsertParams{
				SchoolID:      schoolID,
				StaffID:       member.ID,
				Month:         in.Month,
				Year:          in.Year,
				Totals:        totals,
				PaymentMethod: paymentMethodOrDefault(in.PaymentMethod),
				PaymentStatus: StatusPending,
				Notes:         notes,
			})
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if created {
				result.Created = append(result.Created, record)
			} else {
				result.Skipped = append(result.Skipped, member.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BulkResult{}, err
	}

	sort.Slice(result.Created, func(i, j int) bool {
		return result.Created[i].StaffID < result.Created[j].StaffID
	})
	sort.Strings(result.Skipped)
	return result, nil
}

// UpdateStatus advances a record through the payment lifecycle. Marking paid
// stamps the payment date, defaulting to now when the caller does not supply
// one.
func (s *Service) UpdateStatus(ctx context.Context, schoolID, recordID, toStatus string, paymentDate *time.Time) (Record, error) {
	if !ValidStatus(toStatus) {
		return Record{}, ErrInvalidStatus
	}
	if toStatus == StatusPaid && paymentDate == nil {
		stamped := s.now()
		paymentDate = &stamped
	}
	return s.records.Advance(ctx, schoolID, recordID, toStatus, paymentDate)
}

func (s *Service) Get(ctx context.Context, schoolID, recordID string) (Record, error) {
	return s.records.Get(ctx, schoolID, recordID)
}

func (s *Service) List(ctx context.Context, schoolID string, f ListFilter, limit, offset int) ([]Record, error) {
	if f.Month != 0 || f.Year != 0 {
		if err := ValidatePeriod(f.Month, f.Year); err != nil {
			return nil, err
		}
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, ErrInvalidStatus
	}
	return s.records.List(ctx, schoolID, f, limit, offset)
}

func (s *Service) Summarize(ctx context.Context, schoolID string, month, year int) (Summary, error) {
	if err := ValidatePeriod(month, year); err != nil {
		return Summary{}, err
	}
	return s.records.Summarize(ctx, schoolID, month, year)
}

// resolveBasicSalary prefers an explicit override, then the base salary on
// file. A single-staff submission with neither is an error; bulk runs make the
// opposite call and generate a zero record instead.
func (s *Service) resolveBasicSalary(ctx context.Context, schoolID string, in SubmitInput) (float64, staff.Member, error) {
	member, err := s.staff.Get(ctx, schoolID, in.StaffID)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			return 0, staff.Member{}, ErrStaffNotFound
		}
		return 0, staff.Member{}, err
	}

	if in.BasicSalary != nil {
		basic := *in.BasicSalary
		if basic < 0 || math.IsNaN(basic) || math.IsInf(basic, 0) {
			return 0, staff.Member{}, ErrInvalidBasicSalary
		}
		return basic, member, nil
	}
	if member.BaseSalary == nil {
		return 0, staff.Member{}, ErrMissingBaseSalary
	}
	return *member.BaseSalary, member, nil
}

func validateSelections(in SubmitInput, active []components.Component) error {
	return checkSelectionIDs(active, in.Earnings, in.Deductions)
}

func validateBulkSelections(in BulkInput, active []components.Component) error {
	return checkSelectionIDs(active, in.Earnings, in.Deductions)
}

// checkSelectionIDs rejects selections naming components that are inactive,
// of the wrong type, or unknown. Compute would silently drop them, but a
// submission that references a stale component id deserves a 400, not a
// quietly smaller paycheck.
func checkSelectionIDs(active []components.Component, earnings, deductions Selections) error {
	earningIDs := make(map[string]bool, len(active))
	deductionIDs := make(map[string]bool, len(active))
	for _, c := range active {
		switch c.Type {
		case components.TypeEarning:
			earningIDs[c.ID] = true
		case components.TypeDeduction:
			deductionIDs[c.ID] = true
		}
	}
	for id := range earnings {
		if !earningIDs[id] {
			return ErrUnknownComponent
		}
	}
	for id := range deductions {
		if !deductionIDs[id] {
			return ErrUnknownComponent
		}
	}
	return nil
}

func paymentMethodOrDefault(method string) string {
	if method == "" {
		return PaymentMethodBank
	}
	return method
}

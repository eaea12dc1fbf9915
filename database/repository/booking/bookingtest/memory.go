// Package bookingtest provides an in-memory BookingRepository for tests.
//
// Transactions are fully serialized and roll back on error, and the store
// enforces the same uniqueness rules as the Postgres schema.
package bookingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingRepo "homeserve/database/repository/booking"
	"homeserve/models"
	"homeserve/utils"
)

type state struct {
	services      map[string]models.Service
	slots         map[string]models.Slot
	businesses    map[string]models.Business
	plans         map[string]models.ProviderPlan
	staff         map[string]models.StaffProfile
	bookings      map[string]models.Booking
	payments      map[string]models.PaymentRecord
	cancellations map[string]models.Cancellation
	assignments   map[string]models.StaffAssignment
	staffPayments map[string]models.StaffPayment
}

func newState() *state {
	return &state{
		services:      map[string]models.Service{},
		slots:         map[string]models.Slot{},
		businesses:    map[string]models.Business{},
		plans:         map[string]models.ProviderPlan{},
		staff:         map[string]models.StaffProfile{},
		bookings:      map[string]models.Booking{},
		payments:      map[string]models.PaymentRecord{},
		cancellations: map[string]models.Cancellation{},
		assignments:   map[string]models.StaffAssignment{},
		staffPayments: map[string]models.StaffPayment{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		services:      cloneMap(s.services),
		slots:         cloneMap(s.slots),
		businesses:    cloneMap(s.businesses),
		plans:         cloneMap(s.plans),
		staff:         cloneMap(s.staff),
		bookings:      cloneMap(s.bookings),
		payments:      cloneMap(s.payments),
		cancellations: cloneMap(s.cancellations),
		assignments:   cloneMap(s.assignments),
		staffPayments: cloneMap(s.staffPayments),
	}
}

// Store owns the in-memory tables.
type Store struct {
	mu   sync.Mutex
	data *state

	// Now stamps CreatedAt/UpdatedAt; tests may replace it.
	Now func() time.Time

	failures  int
	failWith  error
	commits   int
	rollbacks int
}

func NewStore() *Store {
	return &Store{data: newState(), Now: time.Now}
}

// Repo returns a BookingRepository view over the store.
func (s *Store) Repo() bookingRepo.BookingRepository {
	return &repo{s: s}
}

// FailNextTransactions makes the next n transactions fail with err before running.
func (s *Store) FailNextTransactions(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	s.failWith = err
}

// Stats returns how many transactions committed and rolled back.
func (s *Store) Stats() (commits, rollbacks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits, s.rollbacks
}

// Seed inserts catalog rows or lifecycle rows directly.
func (s *Store) Seed(values ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		switch x := v.(type) {
		case models.Service:
			s.data.services[x.ID] = x
		case models.Slot:
			s.data.slots[x.ID] = x
		case models.Business:
			s.data.businesses[x.ID] = x
		case models.ProviderPlan:
			s.data.plans[x.ID] = x
		case models.StaffProfile:
			s.data.staff[x.ID] = x
		case models.Booking:
			s.data.bookings[x.ID] = x
		case models.PaymentRecord:
			s.data.payments[x.ID] = x
		case models.Cancellation:
			s.data.cancellations[x.ID] = x
		case models.StaffAssignment:
			s.data.assignments[x.ID] = x
		default:
			panic("bookingtest: unsupported seed type")
		}
	}
}

func (s *Store) Booking(id string) (models.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data.bookings[id]
	return b, ok
}

func (s *Store) Bookings() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.data.bookings)
}

func (s *Store) Payment(id string) (models.PaymentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.payments[id]
	return p, ok
}

func (s *Store) Payments() []models.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.data.payments)
}

func (s *Store) Cancellations() []models.Cancellation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.data.cancellations)
}

func (s *Store) Assignments() []models.StaffAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.data.assignments)
}

func (s *Store) StaffPayments() []models.StaffPayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.data.staffPayments)
}

func (s *Store) Staff(id string) (models.StaffProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data.staff[id]
	return st, ok
}

func sortedValues[V any](m map[string]V) []V {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]V, 0, len(m))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

type repo struct {
	s    *Store
	inTx bool
}

// enter takes the store lock unless the caller already holds it through a transaction.
func (r *repo) enter() func() {
	if r.inTx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *repo) Transaction(ctx context.Context, fn func(tx bookingRepo.BookingRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if r.s.failures > 0 {
		r.s.failures--
		r.s.rollbacks++
		return r.s.failWith
	}

	snapshot := r.s.data.clone()
	if err := fn(&repo{s: r.s, inTx: true}); err != nil {
		r.s.data = snapshot
		r.s.rollbacks++
		return err
	}
	r.s.commits++
	return nil
}

func get[V any](m map[string]V, id string) (*V, error) {
	v, ok := m[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	return &v, nil
}

func (r *repo) GetService(_ context.Context, id string) (*models.Service, error) {
	defer r.enter()()
	return get(r.s.data.services, id)
}

func (r *repo) GetSlot(_ context.Context, id string) (*models.Slot, error) {
	defer r.enter()()
	return get(r.s.data.slots, id)
}

func (r *repo) GetBusiness(_ context.Context, id string) (*models.Business, error) {
	defer r.enter()()
	return get(r.s.data.businesses, id)
}

func (r *repo) GetActivePlan(_ context.Context, businessID string) (*models.ProviderPlan, error) {
	defer r.enter()()
	var best *models.ProviderPlan
	for _, p := range r.s.data.plans {
		if p.BusinessID != businessID || !p.Active {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			cp := p
			best = &cp
		}
	}
	if best == nil {
		return nil, bookingRepo.ErrNotFound
	}
	return best, nil
}

func (r *repo) GetStaff(_ context.Context, id string) (*models.StaffProfile, error) {
	defer r.enter()()
	return get(r.s.data.staff, id)
}

func (r *repo) UpdateStaffAvailability(_ context.Context, staffID string, availability models.StaffAvailability) error {
	defer r.enter()()
	st, ok := r.s.data.staff[staffID]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	st.Availability = availability
	st.UpdatedAt = r.s.Now()
	r.s.data.staff[staffID] = st
	return nil
}

func (r *repo) CountSlotOccupancy(_ context.Context, key models.SlotKey, now time.Time) (int64, error) {
	defer r.enter()()
	var n int64
	for _, b := range r.s.data.bookings {
		if b.SlotKey() != key {
			continue
		}
		if b.BookingStatus == models.BookingConfirmed || b.HoldActive(now) {
			n++
		}
	}
	return n, nil
}

func (r *repo) HasActiveBooking(_ context.Context, customerID string, key models.SlotKey) (bool, error) {
	defer r.enter()()
	return r.activeDuplicate(customerID, key, ""), nil
}

func (r *repo) activeDuplicate(customerID string, key models.SlotKey, exceptID string) bool {
	for _, b := range r.s.data.bookings {
		if b.ID != exceptID && b.CustomerID == customerID && b.SlotKey() == key && b.BookingStatus != models.BookingCancelled {
			return true
		}
	}
	return false
}

func (r *repo) CreateBooking(_ context.Context, b *models.Booking) error {
	defer r.enter()()
	if _, exists := r.s.data.bookings[b.ID]; exists {
		return utils.ErrInvalidState
	}
	if b.BookingStatus != models.BookingCancelled && r.activeDuplicate(b.CustomerID, b.SlotKey(), "") {
		return utils.ErrDuplicateBooking
	}
	now := r.s.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	r.s.data.bookings[b.ID] = *b
	return nil
}

func (r *repo) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	defer r.enter()()
	return get(r.s.data.bookings, id)
}

func (r *repo) LockBooking(ctx context.Context, id string) (*models.Booking, error) {
	return r.GetBooking(ctx, id)
}

func (r *repo) SaveBooking(_ context.Context, b *models.Booking) error {
	defer r.enter()()
	if b.BookingStatus != models.BookingCancelled && r.activeDuplicate(b.CustomerID, b.SlotKey(), b.ID) {
		return utils.ErrDuplicateBooking
	}
	b.UpdatedAt = r.s.Now()
	r.s.data.bookings[b.ID] = *b
	return nil
}

func (r *repo) SetCheckoutURL(_ context.Context, bookingIDs []string, url string) error {
	defer r.enter()()
	for _, id := range bookingIDs {
		b, ok := r.s.data.bookings[id]
		if !ok || b.BookingStatus != models.BookingPendingPayment {
			continue
		}
		u := url
		b.CheckoutURL = &u
		r.s.data.bookings[id] = b
	}
	return nil
}

func (r *repo) DeleteBookings(_ context.Context, ids []string) error {
	defer r.enter()()
	for _, id := range ids {
		delete(r.s.data.bookings, id)
	}
	return nil
}

func (r *repo) DeleteExpiredHolds(_ context.Context, now time.Time) ([]models.Booking, error) {
	defer r.enter()()
	var reclaimed []models.Booking
	for id, b := range r.s.data.bookings {
		if b.BookingStatus == models.BookingPendingPayment && b.HoldExpiresAt != nil && !b.HoldExpiresAt.After(now) {
			reclaimed = append(reclaimed, b)
			delete(r.s.data.bookings, id)
		}
	}
	sort.Slice(reclaimed, func(i, j int) bool { return reclaimed[i].ID < reclaimed[j].ID })
	return reclaimed, nil
}

func (r *repo) ListReminderCandidates(_ context.Context, dates []string) ([]models.Booking, error) {
	defer r.enter()()
	want := map[string]bool{}
	for _, d := range dates {
		want[d] = true
	}
	var out []models.Booking
	for _, b := range sortedValues(r.s.data.bookings) {
		if b.BookingStatus == models.BookingConfirmed && !b.ReminderSent && want[b.Date] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *repo) MarkReminderSent(_ context.Context, id string) (bool, error) {
	defer r.enter()()
	b, ok := r.s.data.bookings[id]
	if !ok || b.ReminderSent {
		return false, nil
	}
	b.ReminderSent = true
	r.s.data.bookings[id] = b
	return true, nil
}

func (r *repo) CreatePayment(_ context.Context, p *models.PaymentRecord) error {
	defer r.enter()()
	if _, exists := r.s.data.payments[p.ID]; exists {
		return utils.ErrInvalidState
	}
	now := r.s.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r *repo) GetPayment(_ context.Context, id string) (*models.PaymentRecord, error) {
	defer r.enter()()
	return get(r.s.data.payments, id)
}

func (r *repo) LockPayment(ctx context.Context, id string) (*models.PaymentRecord, error) {
	return r.GetPayment(ctx, id)
}

func (r *repo) SavePayment(_ context.Context, p *models.PaymentRecord) error {
	defer r.enter()()
	p.UpdatedAt = r.s.Now()
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r *repo) DeletePayment(_ context.Context, id string) error {
	defer r.enter()()
	delete(r.s.data.payments, id)
	return nil
}

func (r *repo) PurgePendingPayments(_ context.Context, customerID, exceptID string, now time.Time) (int64, error) {
	defer r.enter()()
	live := map[string]bool{}
	for _, b := range r.s.data.bookings {
		if b.PaymentID != nil && b.HoldActive(now) {
			live[*b.PaymentID] = true
		}
	}
	var n int64
	for id, p := range r.s.data.payments {
		if p.CustomerID == customerID && p.Status == models.PaymentRecordPending && id != exceptID && !live[id] {
			delete(r.s.data.payments, id)
			n++
		}
	}
	return n, nil
}

func (r *repo) PurgeOrphanedPendingPayments(_ context.Context, createdBefore time.Time) (int64, error) {
	defer r.enter()()
	referenced := map[string]bool{}
	for _, b := range r.s.data.bookings {
		if b.PaymentID != nil {
			referenced[*b.PaymentID] = true
		}
	}
	var n int64
	for id, p := range r.s.data.payments {
		if p.Status == models.PaymentRecordPending && p.CreatedAt.Before(createdBefore) && !referenced[id] {
			delete(r.s.data.payments, id)
			n++
		}
	}
	return n, nil
}

func (r *repo) CreateCancellation(_ context.Context, c *models.Cancellation) error {
	defer r.enter()()
	for _, existing := range r.s.data.cancellations {
		if existing.BookingID == c.BookingID {
			return utils.ErrAlreadyCancelled
		}
	}
	now := r.s.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.s.data.cancellations[c.ID] = *c
	return nil
}

func (r *repo) findCancellation(match func(models.Cancellation) bool) (*models.Cancellation, error) {
	for _, c := range r.s.data.cancellations {
		if match(c) {
			cp := c
			return &cp, nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (r *repo) GetCancellationByBooking(_ context.Context, bookingID string) (*models.Cancellation, error) {
	defer r.enter()()
	return r.findCancellation(func(c models.Cancellation) bool { return c.BookingID == bookingID })
}

func (r *repo) GetCancellationByRefund(_ context.Context, refundRef string) (*models.Cancellation, error) {
	defer r.enter()()
	return r.findCancellation(func(c models.Cancellation) bool {
		return c.RefundReference != nil && *c.RefundReference == refundRef
	})
}

func (r *repo) SaveCancellation(_ context.Context, c *models.Cancellation) error {
	defer r.enter()()
	c.UpdatedAt = r.s.Now()
	r.s.data.cancellations[c.ID] = *c
	return nil
}

func (r *repo) GetActiveAssignment(_ context.Context, bookingID string) (*models.StaffAssignment, error) {
	defer r.enter()()
	for _, a := range r.s.data.assignments {
		if a.BookingID == bookingID && a.Status.Active() {
			cp := a
			return &cp, nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (r *repo) activeAssignmentExists(bookingID, exceptID string) bool {
	for _, a := range r.s.data.assignments {
		if a.ID != exceptID && a.BookingID == bookingID && a.Status.Active() {
			return true
		}
	}
	return false
}

func (r *repo) CreateAssignment(_ context.Context, a *models.StaffAssignment) error {
	defer r.enter()()
	if a.Status.Active() && r.activeAssignmentExists(a.BookingID, "") {
		return utils.ErrAssignmentExists
	}
	now := r.s.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	r.s.data.assignments[a.ID] = *a
	return nil
}

func (r *repo) SaveAssignment(_ context.Context, a *models.StaffAssignment) error {
	defer r.enter()()
	if a.Status.Active() && r.activeAssignmentExists(a.BookingID, a.ID) {
		return utils.ErrAssignmentExists
	}
	a.UpdatedAt = r.s.Now()
	r.s.data.assignments[a.ID] = *a
	return nil
}

func (r *repo) CountAcceptedAssignmentsForStaff(_ context.Context, staffID string) (int64, error) {
	defer r.enter()()
	var n int64
	for _, a := range r.s.data.assignments {
		if a.StaffID == staffID && a.Status == models.AssignmentAccepted {
			n++
		}
	}
	return n, nil
}

func (r *repo) CreateStaffPayment(_ context.Context, p *models.StaffPayment) error {
	defer r.enter()()
	for _, existing := range r.s.data.staffPayments {
		if existing.BookingID == p.BookingID {
			return utils.ErrInvalidState
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.s.Now()
	}
	r.s.data.staffPayments[p.ID] = *p
	return nil
}

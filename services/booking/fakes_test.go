package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"slotbook/database"
	availabilityRepo "slotbook/database/repository/availability"
	bookingRepo "slotbook/database/repository/booking"
	paymentRepo "slotbook/database/repository/payment"
	reservationRepo "slotbook/database/repository/reservation"
	serviceRepo "slotbook/database/repository/service"
	verificationRepo "slotbook/database/repository/verification"
	"slotbook/models"
	"slotbook/services/payment"
)

// In-memory stands-ins for the Mongo and Redis repositories. They mirror
// the conditional-write semantics of the real implementations because the
// engine's idempotency guarantees lean on exactly those semantics.

type memAvailabilityRepo struct {
	mu   sync.Mutex
	data map[string]*models.WeeklyAvailability
}

func newMemAvailabilityRepo() *memAvailabilityRepo {
	return &memAvailabilityRepo{data: map[string]*models.WeeklyAvailability{}}
}

func (r *memAvailabilityRepo) Get(ctx context.Context, vendorID string) (*models.WeeklyAvailability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wa, ok := r.data[vendorID]
	if !ok {
		return nil, availabilityRepo.ErrNotFound
	}
	cp := *wa
	return &cp, nil
}

func (r *memAvailabilityRepo) Upsert(ctx context.Context, wa *models.WeeklyAvailability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *wa
	r.data[wa.VendorID] = &cp
	return nil
}

type memBookingRepo struct {
	mu   sync.Mutex
	data map[string]*models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{data: map[string]*models.Booking{}}
}

func (r *memBookingRepo) CreateGuarded(ctx context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.data {
		if other.VendorID != b.VendorID {
			continue
		}
		active := false
		for _, s := range models.ActiveStatuses() {
			if other.Status == s {
				active = true
				break
			}
		}
		if active && b.Start.Before(other.End) && other.Start.Before(b.End) {
			return bookingRepo.ErrSlotTaken
		}
	}
	cp := *b
	r.data[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.data[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) FindActiveInWindow(ctx context.Context, vendorID string, from, to time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.data {
		if b.VendorID != vendorID {
			continue
		}
		if b.Status != models.BookingStatusUpcoming && b.Status != models.BookingStatusRescheduled {
			continue
		}
		if b.Start.Before(to) && from.Before(b.End) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) UpdateStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.data[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if b.Status == s {
			b.Status = to
			b.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}

func (r *memBookingRepo) UpdateSchedule(ctx context.Context, id, vendorID, date string, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.data[id]
	if !ok {
		return false, nil
	}
	if b.Status != models.BookingStatusUpcoming && b.Status != models.BookingStatusRescheduled {
		return false, nil
	}
	for _, other := range r.data {
		if other.ID == id || other.VendorID != vendorID {
			continue
		}
		active := false
		for _, s := range models.ActiveStatuses() {
			if other.Status == s {
				active = true
				break
			}
		}
		if active && start.Before(other.End) && other.Start.Before(end) {
			return false, bookingRepo.ErrSlotTaken
		}
	}
	b.Date, b.Start, b.End = date, start, end
	b.Status = models.BookingStatusRescheduled
	return true, nil
}

func (r *memBookingRepo) CancelWithRefund(ctx context.Context, id, toStatus string, refund models.RefundRecord, payStatus string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.data[id]
	if !ok || b.IsTerminal() {
		return false, nil
	}
	b.Status = toStatus
	rf := refund
	b.Refund = &rf
	b.Payment.Status = payStatus
	return true, nil
}

func (r *memBookingRepo) SetPaymentAggregate(ctx context.Context, id string, paid, balance float64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.data[id]; ok {
		b.Payment.PaidAmount = paid
		b.Payment.BalanceAmount = balance
		b.Payment.Status = status
	}
	return nil
}

func (r *memBookingRepo) FindEndedActive(ctx context.Context, before time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.data {
		if (b.Status == models.BookingStatusUpcoming || b.Status == models.BookingStatusRescheduled) && b.End.Before(before) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) FindReminderDue(ctx context.Context, stageField string, from, to time.Time) ([]models.Booking, error) {
	return nil, nil
}

func (r *memBookingRepo) SetReminderFlag(ctx context.Context, id, stageField string) (bool, error) {
	return false, nil
}

func (r *memBookingRepo) FindVendorPromptDue(ctx context.Context, endedBefore time.Time) ([]models.Booking, error) {
	return nil, nil
}

func (r *memBookingRepo) SetVendorPromptSent(ctx context.Context, id string) (bool, error) {
	return false, nil
}

type memPaymentRepo struct {
	mu               sync.Mutex
	data             map[string]*models.Payment
	failProviderRefs bool
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{data: map[string]*models.Payment{}}
}

func (r *memPaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.IdempotencyKey != "" {
		for _, other := range r.data {
			if other.IdempotencyKey == p.IdempotencyKey {
				return paymentRepo.ErrDuplicateKey
			}
		}
	}
	cp := *p
	if cp.Meta == nil {
		cp.Meta = map[string]string{}
	}
	r.data[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, paymentRepo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPaymentRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.IdempotencyKey == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, paymentRepo.ErrNotFound
}

func (r *memPaymentRepo) FindByProviderRef(ctx context.Context, sessionID, intentID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if (sessionID != "" && p.ProviderSessionID == sessionID) ||
			(intentID != "" && p.ProviderPaymentIntentID == intentID) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, paymentRepo.ErrNotFound
}

func (r *memPaymentRepo) MarkPaid(ctx context.Context, id string, amountPaid float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = models.PaymentStatusPaid
	p.AmountPaid = amountPaid
	return true, nil
}

func (r *memPaymentRepo) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = models.PaymentStatusFailed
	p.Meta["failure_reason"] = reason
	return true, nil
}

func (r *memPaymentRepo) AttachBooking(ctx context.Context, id, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		p.BookingID = bookingID
		p.ReservationID = ""
	}
	return nil
}

func (r *memPaymentRepo) SetProviderRefs(ctx context.Context, id, sessionID, intentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failProviderRefs {
		return errors.New("storage unavailable")
	}
	if p, ok := r.data[id]; ok {
		p.ProviderSessionID = sessionID
		p.ProviderPaymentIntentID = intentID
	}
	return nil
}

func (r *memPaymentRepo) SetMeta(ctx context.Context, id, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		p.Meta[key] = value
	}
	return nil
}

func (r *memPaymentRepo) SumPaidForBooking(ctx context.Context, bookingID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, p := range r.data {
		if p.BookingID != bookingID {
			continue
		}
		switch p.Status {
		case models.PaymentStatusPaid, models.PaymentStatusRefunded:
			sum += p.AmountPaid - p.AmountRefunded
		}
	}
	if sum < 0 {
		sum = 0
	}
	return sum, nil
}

func (r *memPaymentRepo) MarkRefundedByBooking(ctx context.Context, bookingID string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var paid []*models.Payment
	for _, p := range r.data {
		if p.BookingID == bookingID && p.Status == models.PaymentStatusPaid {
			paid = append(paid, p)
		}
	}
	sort.Slice(paid, func(i, j int) bool { return paid[i].CreatedAt.After(paid[j].CreatedAt) })
	remaining := amount
	for _, p := range paid {
		if remaining <= 0 {
			break
		}
		refundable := p.AmountPaid - p.AmountRefunded
		if refundable <= 0 {
			continue
		}
		alloc := refundable
		if remaining < alloc {
			alloc = remaining
		}
		p.AmountRefunded += alloc
		if alloc == refundable {
			p.Status = models.PaymentStatusRefunded
		}
		remaining -= alloc
	}
	if remaining > 0 {
		return fmt.Errorf("refund exceeds paid ledger for booking %s", bookingID)
	}
	return nil
}

// all snapshots every ledger entry, for assertions.
func (r *memPaymentRepo) all() []models.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.data {
		out = append(out, *p)
	}
	return out
}

type memReservationRepo struct {
	mu   sync.Mutex
	data map[string]*models.Reservation
	now  func() time.Time
}

func newMemReservationRepo(now func() time.Time) *memReservationRepo {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &memReservationRepo{data: map[string]*models.Reservation{}, now: now}
}

func (r *memReservationRepo) Create(ctx context.Context, res *models.Reservation, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.data {
		if other.VendorID == res.VendorID && other.Date == res.Date &&
			other.Start.Equal(res.Start) && other.ExpiresAt.After(r.now()) {
			return reservationRepo.ErrSlotHeld
		}
	}
	cp := *res
	r.data[res.ID] = &cp
	return nil
}

func (r *memReservationRepo) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.data[id]
	if !ok || !res.ExpiresAt.After(r.now()) {
		return nil, reservationRepo.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *memReservationRepo) Delete(ctx context.Context, res *models.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, res.ID)
	return nil
}

func (r *memReservationRepo) ListActive(ctx context.Context, vendorID, date string) ([]models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reservation
	for _, res := range r.data {
		if res.VendorID == vendorID && res.Date == date && res.ExpiresAt.After(r.now()) {
			out = append(out, *res)
		}
	}
	return out, nil
}

// expire force-expires a reservation, simulating the TTL firing.
func (r *memReservationRepo) expire(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
}

// blindHoldRepo hides holds from slot reads while keeping them live for
// writes. It simulates a competing hold landing after a caller's
// validation read but before its write.
type blindHoldRepo struct {
	*memReservationRepo
}

func (r *blindHoldRepo) ListActive(ctx context.Context, vendorID, date string) ([]models.Reservation, error) {
	return nil, nil
}

type memServiceRepo struct {
	mu   sync.Mutex
	data map[string]*models.Service
}

func newMemServiceRepo(services ...*models.Service) *memServiceRepo {
	r := &memServiceRepo{data: map[string]*models.Service{}}
	for _, s := range services {
		r.data[s.ID] = s
	}
	return r
}

func (r *memServiceRepo) GetByID(ctx context.Context, id string) (*models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, serviceRepo.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memServiceRepo) Upsert(ctx context.Context, svc *models.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *svc
	r.data[svc.ID] = &cp
	return nil
}

func (r *memServiceRepo) ListByVendor(ctx context.Context, vendorID string) ([]models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Service
	for _, s := range r.data {
		if s.VendorID == vendorID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type memTokenStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{data: map[string]string{}}
}

func (s *memTokenStore) Issue(ctx context.Context, token, bookingID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[token] = bookingID
	return nil
}

func (s *memTokenStore) Consume(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bookingID, ok := s.data[token]
	if !ok {
		return "", verificationRepo.ErrTokenInvalid
	}
	delete(s.data, token)
	return bookingID, nil
}

// lastToken returns any issued token, for tests exercising verification.
func (s *memTokenStore) lastToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t := range s.data {
		return t
	}
	return ""
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []payment.CheckoutRequest
	fail     bool
	counter  int
}

func (g *fakeGateway) Name() string { return "stripe" }

func (g *fakeGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return nil, context.DeadlineExceeded
	}
	g.requests = append(g.requests, req)
	g.counter++
	return &payment.CheckoutSession{
		SessionID:       "cs_test_" + req.Reference,
		PaymentIntentID: "pi_test_" + req.Reference,
		URL:             "https://checkout.test/session/" + req.Reference,
	}, nil
}

type recordedNotification struct {
	Target  string
	ID      string
	Kind    string
	Subject string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
}

func (n *fakeNotifier) NotifyClient(ctx context.Context, clientID, kind, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recordedNotification{Target: "client", ID: clientID, Kind: kind, Subject: subject})
	return nil
}

func (n *fakeNotifier) NotifyVendor(ctx context.Context, vendorID, kind, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recordedNotification{Target: "vendor", ID: vendorID, Kind: kind, Subject: subject})
	return nil
}

// testEngine bundles an engine with handles on its fakes.
type testEngine struct {
	engine       *DefaultBookingEngine
	availability *memAvailabilityRepo
	bookings     *memBookingRepo
	payments     *memPaymentRepo
	reservations *memReservationRepo
	services     *memServiceRepo
	tokens       *memTokenStore
	gateway      *fakeGateway
	notifier     *fakeNotifier
}

func newTestEngine(now time.Time, services ...*models.Service) *testEngine {
	nowFn := func() time.Time { return now }
	te := &testEngine{
		availability: newMemAvailabilityRepo(),
		bookings:     newMemBookingRepo(),
		payments:     newMemPaymentRepo(),
		reservations: newMemReservationRepo(nowFn),
		services:     newMemServiceRepo(services...),
		tokens:       newMemTokenStore(),
		gateway:      &fakeGateway{},
		notifier:     &fakeNotifier{},
	}
	te.engine = &DefaultBookingEngine{
		Availability:   te.availability,
		Bookings:       te.bookings,
		Payments:       te.payments,
		Reservations:   te.reservations,
		Services:       te.services,
		Tokens:         te.tokens,
		Gateway:        te.gateway,
		Notifier:       te.notifier,
		Txn:            database.PassthroughTxnRunner{},
		ReservationTTL: 15 * time.Minute,
		VerifyTokenTTL: 24 * time.Hour,
		Now:            nowFn,
	}
	return te
}

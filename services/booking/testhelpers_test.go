package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	ledgerRepo "tripdesk/database/repository/ledger"
	"tripdesk/marketplace"
	"tripdesk/models"

	"go.uber.org/zap"
)

// fixedNow pins the service clock so deadline checks are deterministic.
var fixedNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

// callLog records the cross-gateway call order so tests can assert workflow
// step ordering (e.g. the new charge lands before the old booking is
// cancelled).
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, name)
}

func (l *callLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *callLog) indexOf(name string) int {
	for i, n := range l.names() {
		if n == name {
			return i
		}
	}
	return -1
}

func (l *callLog) count(name string) int {
	n := 0
	for _, e := range l.names() {
		if e == name {
			n++
		}
	}
	return n
}

type fakeStays struct {
	log *callLog

	offers    []models.StayOffer
	searchErr error

	accommodation *models.Accommodation
	ratesErr      error

	quote    *models.Quote
	quoteErr error

	bookings map[string]*models.Booking
	getErr   error
	// getHook runs at the top of GetBooking; concurrency tests use it to
	// detect overlapping workflow invocations.
	getHook func()

	created      []marketplace.CreateStayBookingParams
	createResult *models.Booking
	createErr    error

	cancelResult *models.CancellationResult
	cancelErr    error
}

func (f *fakeStays) Search(ctx context.Context, params marketplace.StaySearchParams) ([]models.StayOffer, error) {
	f.log.add("stays.search")
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.offers, nil
}

func (f *fakeStays) FetchAllRates(ctx context.Context, searchResultID string) (*models.Accommodation, error) {
	f.log.add("stays.fetch_rates")
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}
	return f.accommodation, nil
}

func (f *fakeStays) CreateQuote(ctx context.Context, rateID string) (*models.Quote, error) {
	f.log.add("stays.create_quote")
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	if f.quote != nil {
		q := *f.quote
		q.RateID = rateID
		return &q, nil
	}
	return &models.Quote{ID: "quo_1", RateID: rateID, TotalAmount: "330.00", TotalCurrency: "AUD"}, nil
}

func (f *fakeStays) CreateBooking(ctx context.Context, params marketplace.CreateStayBookingParams) (*models.Booking, error) {
	f.log.add("stays.create_booking")
	f.created = append(f.created, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createResult != nil {
		return f.createResult, nil
	}
	return &models.Booking{
		ID:       fmt.Sprintf("bok_new_%d", len(f.created)),
		Kind:     models.BookingKindStay,
		Status:   models.BookingStatusConfirmed,
		Guests:   params.Guests,
		Metadata: params.Metadata,
	}, nil
}

func (f *fakeStays) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	f.log.add("stays.get_booking")
	if f.getHook != nil {
		f.getHook()
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	booking, ok := f.bookings[bookingID]
	if !ok {
		return nil, &marketplace.APIError{Type: "not_found", Title: "Booking not found", Status: 404}
	}
	return booking, nil
}

func (f *fakeStays) CancelBooking(ctx context.Context, bookingID string) (*models.CancellationResult, error) {
	f.log.add("stays.cancel_booking")
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	if f.cancelResult != nil {
		return f.cancelResult, nil
	}
	cancelledAt := fixedNow
	return &models.CancellationResult{
		BookingID:   bookingID,
		Status:      models.BookingStatusCancelled,
		CancelledAt: &cancelledAt,
	}, nil
}

func (f *fakeStays) UpdateBooking(ctx context.Context, bookingID string, params marketplace.UpdateStayBookingParams) (*models.Booking, error) {
	f.log.add("stays.update_booking")
	booking, ok := f.bookings[bookingID]
	if !ok {
		return nil, &marketplace.APIError{Type: "not_found", Title: "Booking not found", Status: 404}
	}
	updated := *booking
	if params.Email != "" {
		updated.Email = params.Email
	}
	if params.PhoneNumber != "" {
		updated.PhoneNumber = params.PhoneNumber
	}
	return &updated, nil
}

type fakeFlights struct {
	log *callLog

	offers    []models.FlightOffer
	searchErr error

	offer    *models.FlightOffer
	offerErr error

	seatMaps    []models.SeatMap
	seatMapsErr error

	orders       map[string]*models.Booking
	createOrder  *models.Booking
	createErr    error
	createdWith  []marketplace.CreateOrderParams
	cancellation *models.OrderCancellation
	cancelErr    error
	confirmed    *models.OrderCancellation
	confirmErr   error
	changeOffers []models.ChangeOffer
	changeErr    error
}

func (f *fakeFlights) SearchOffers(ctx context.Context, params marketplace.FlightSearchParams) ([]models.FlightOffer, error) {
	f.log.add("flights.search")
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.offers, nil
}

func (f *fakeFlights) GetOffer(ctx context.Context, offerID string) (*models.FlightOffer, error) {
	f.log.add("flights.get_offer")
	if f.offerErr != nil {
		return nil, f.offerErr
	}
	return f.offer, nil
}

func (f *fakeFlights) GetSeatMaps(ctx context.Context, offerID string) ([]models.SeatMap, error) {
	f.log.add("flights.seat_maps")
	if f.seatMapsErr != nil {
		return nil, f.seatMapsErr
	}
	return f.seatMaps, nil
}

func (f *fakeFlights) CreateOrder(ctx context.Context, params marketplace.CreateOrderParams) (*models.Booking, error) {
	f.log.add("flights.create_order")
	f.createdWith = append(f.createdWith, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOrder != nil {
		return f.createOrder, nil
	}
	return &models.Booking{
		ID:       "ord_1",
		Kind:     models.BookingKindFlightOrder,
		Status:   models.BookingStatusConfirmed,
		Metadata: params.Metadata,
	}, nil
}

func (f *fakeFlights) GetOrder(ctx context.Context, orderID string) (*models.Booking, error) {
	f.log.add("flights.get_order")
	order, ok := f.orders[orderID]
	if !ok {
		return nil, &marketplace.APIError{Type: "not_found", Title: "Order not found", Status: 404}
	}
	return order, nil
}

func (f *fakeFlights) CreateOrderCancellation(ctx context.Context, orderID string) (*models.OrderCancellation, error) {
	f.log.add("flights.create_cancellation")
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.cancellation, nil
}

func (f *fakeFlights) ConfirmOrderCancellation(ctx context.Context, cancellationID string) (*models.OrderCancellation, error) {
	f.log.add("flights.confirm_cancellation")
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	if f.confirmed != nil {
		return f.confirmed, nil
	}
	confirmedAt := fixedNow
	confirmed := *f.cancellation
	confirmed.ConfirmedAt = &confirmedAt
	return &confirmed, nil
}

func (f *fakeFlights) CreateOrderChangeRequest(ctx context.Context, params marketplace.OrderChangeParams) ([]models.ChangeOffer, error) {
	f.log.add("flights.change_request")
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	return f.changeOffers, nil
}

type chargeCall struct {
	amount   string
	currency string
	tokenID  string
}

type refundCall struct {
	chargeRef string
	amount    string
	reason    string
}

type fakeProcessor struct {
	log *callLog

	tokenizeErr     error
	charges         []chargeCall
	chargeErr       error
	refunds         []refundCall
	refundErr       error
	alreadyRefunded bool
}

func (f *fakeProcessor) Tokenize(ctx context.Context, card models.CardDetails) (string, error) {
	f.log.add("payments.tokenize")
	if f.tokenizeErr != nil {
		return "", f.tokenizeErr
	}
	return "tok_1", nil
}

func (f *fakeProcessor) Charge(ctx context.Context, amount, currency, tokenID string) (string, error) {
	f.log.add("payments.charge")
	if f.chargeErr != nil {
		return "", f.chargeErr
	}
	f.charges = append(f.charges, chargeCall{amount: amount, currency: currency, tokenID: tokenID})
	return fmt.Sprintf("pi_%d", len(f.charges)), nil
}

func (f *fakeProcessor) Refund(ctx context.Context, chargeReference, amount, reason string) (*models.RefundResult, error) {
	f.log.add("payments.refund")
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, refundCall{chargeRef: chargeReference, amount: amount, reason: reason})
	return &models.RefundResult{
		RefundID:        fmt.Sprintf("re_%d", len(f.refunds)),
		Status:          "succeeded",
		Amount:          amount,
		AlreadyRefunded: f.alreadyRefunded,
	}, nil
}

type testEnv struct {
	svc     *DefaultBookingService
	stays   *fakeStays
	flights *fakeFlights
	proc    *fakeProcessor
	ledger  *ledgerRepo.MemoryPaymentLedger
	pending *MemoryPendingStore
	log     *callLog
}

func newTestEnv() *testEnv {
	log := &callLog{}
	stays := &fakeStays{log: log, bookings: map[string]*models.Booking{}}
	flights := &fakeFlights{log: log, orders: map[string]*models.Booking{}}
	proc := &fakeProcessor{log: log}
	ledger := ledgerRepo.NewMemoryPaymentLedger()
	pending := NewMemoryPendingStore(time.Hour)
	svc := &DefaultBookingService{
		Stays:     stays,
		Flights:   flights,
		Processor: proc,
		Ledger:    ledger,
		Pending:   pending,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return fixedNow },
	}
	return &testEnv{svc: svc, stays: stays, flights: flights, proc: proc, ledger: ledger, pending: pending, log: log}
}

// confirmedStayBooking is the canonical extendable booking: two nights at
// 200.00 AUD with a full-refund window still open.
func confirmedStayBooking() *models.Booking {
	deadline := fixedNow.Add(72 * time.Hour)
	return &models.Booking{
		ID:            "bok_1",
		Kind:          models.BookingKindStay,
		Status:        models.BookingStatusConfirmed,
		TotalAmount:   "200.00",
		TotalCurrency: "AUD",
		CheckInDate:   "2026-09-10",
		CheckOutDate:  "2026-09-12",
		Guests: []models.Guest{
			{GivenName: "Ada", FamilyName: "Lovelace", BornOn: "1990-12-10"},
		},
		Email: "ada@example.com",
		Accommodation: &models.Accommodation{
			ID:   "acc_1",
			Name: "Harbour View Hotel",
		},
		Rate: &models.Rate{
			ID:            "rat_orig",
			TotalAmount:   "200.00",
			TotalCurrency: "AUD",
			CancellationTimeline: []models.TimelineEntry{
				{Before: deadline, RefundAmount: "200.00", Currency: "AUD"},
			},
		},
	}
}

// extensionAccommodation offers one eligible replacement rate for the
// extended dates: three nights at 330.00 AUD.
func extensionAccommodation() *models.Accommodation {
	return &models.Accommodation{
		ID:   "acc_1",
		Name: "Harbour View Hotel",
		Rooms: []models.Room{
			{
				Name: "Deluxe King",
				Rates: []models.Rate{
					{
						ID:                      "rat_new",
						BoardType:               models.BoardTypeRoomOnly,
						PaymentType:             models.PaymentTypePayNow,
						AvailablePaymentMethods: []string{models.PaymentMethodBalance, models.PaymentMethodCard},
						TotalAmount:             "330.00",
						TotalCurrency:           "AUD",
					},
				},
			},
		},
	}
}

func cardPayment() *models.PaymentMethod {
	return &models.PaymentMethod{
		Type: models.PaymentMethodCard,
		Card: &models.CardDetails{
			Number:         "4242424242424242",
			ExpiryMonth:    "12",
			ExpiryYear:     "2030",
			CVC:            "123",
			CardholderName: "Ada Lovelace",
		},
	}
}

package booking

import (
	"fmt"
	"strings"
	"time"

	"tripdesk/models"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// adultAgeYears is the cutoff for pricing a guest as an adult.
const adultAgeYears = 18

// validateStayDates parses and orders the check-in/check-out pair.
func (s *DefaultBookingService) validateStayDates(checkInDate, checkOutDate string) (time.Time, time.Time, error) {
	checkIn, err := time.Parse(dateLayout, checkInDate)
	if err != nil {
		return time.Time{}, time.Time{}, newWorkflowError(CodeInvalidDates, "Invalid check-in date", fmt.Sprintf("%q is not a YYYY-MM-DD date", checkInDate))
	}
	checkOut, err := time.Parse(dateLayout, checkOutDate)
	if err != nil {
		return time.Time{}, time.Time{}, newWorkflowError(CodeInvalidDates, "Invalid check-out date", fmt.Sprintf("%q is not a YYYY-MM-DD date", checkOutDate))
	}
	if !checkOut.After(checkIn) {
		return time.Time{}, time.Time{}, newWorkflowError(CodeInvalidDates, "Check-out date must be after check-in date", "")
	}
	today := s.now().Truncate(24 * time.Hour)
	if checkIn.Before(today) {
		return time.Time{}, time.Time{}, newWorkflowError(CodeInvalidDates, "Check-in date cannot be in the past", "")
	}
	return checkIn, checkOut, nil
}

func nightsBetween(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}

// guestComposition splits guests into adults and children by birth date.
// Guests without a birth date are counted as adults with a logged warning;
// nobody is silently dropped.
func (s *DefaultBookingService) guestComposition(guests []models.Guest) (adults, children int) {
	now := s.now()
	for _, guest := range guests {
		if guest.BornOn == "" {
			s.Logger.Warn("guest missing birth date, defaulting to adult",
				zap.String("given_name", guest.GivenName),
				zap.String("family_name", guest.FamilyName))
			adults++
			continue
		}
		born, err := time.Parse(dateLayout, guest.BornOn)
		if err != nil {
			s.Logger.Warn("guest has unparseable birth date, defaulting to adult",
				zap.String("born_on", guest.BornOn))
			adults++
			continue
		}
		if born.AddDate(adultAgeYears, 0, 0).After(now) {
			children++
		} else {
			adults++
		}
	}
	return adults, children
}

// collectRates flattens every rate offered across the accommodation's rooms.
func collectRates(accommodation *models.Accommodation) []models.Rate {
	var rates []models.Rate
	for _, room := range accommodation.Rooms {
		rates = append(rates, room.Rates...)
	}
	return rates
}

// selectRate picks the replacement rate for an extension by priority:
// an explicitly preferred rate id, then the original booking's rate id, then
// the cheapest room-only pay-now balance-payable rate.
func selectRate(rates []models.Rate, preferredRateID, originalRateID string) *models.Rate {
	if preferredRateID != "" {
		for i := range rates {
			if rates[i].ID == preferredRateID {
				return &rates[i]
			}
		}
	}
	if originalRateID != "" {
		for i := range rates {
			if rates[i].ID == originalRateID {
				return &rates[i]
			}
		}
	}

	var cheapest *models.Rate
	var cheapestMinor int64
	for i := range rates {
		r := &rates[i]
		if !strings.EqualFold(r.BoardType, models.BoardTypeRoomOnly) ||
			!strings.EqualFold(r.PaymentType, models.PaymentTypePayNow) ||
			!r.BalancePayable() {
			continue
		}
		minor, err := models.ParseAmount(r.TotalAmount)
		if err != nil {
			continue
		}
		if cheapest == nil || minor < cheapestMinor {
			cheapest = r
			cheapestMinor = minor
		}
	}
	return cheapest
}

// checkRefundDeadline enforces the full-refund cutoff before a destructive
// step. Past the deadline it raises the confirmation interrupt unless the
// caller already opted to proceed; a timeline with no full-refund entry at
// all is ambiguous upstream data and only warns.
// interruptWhenNoWindow controls the no-full-refund-entry case: cancellation
// interrupts (the caller is about to forfeit money knowingly), extension only
// warns and proceeds (ambiguous upstream data).
func (s *DefaultBookingService) checkRefundDeadline(booking *models.Booking, proceed, interruptWhenNoWindow bool, warnings *[]string) error {
	if booking.Rate == nil || len(booking.Rate.CancellationTimeline) == 0 {
		s.Logger.Warn("booking has no cancellation timeline", zap.String("booking", booking.ID))
		*warnings = append(*warnings, "No cancellation timeline available for this booking; refund terms are unknown.")
		return nil
	}
	entry := models.FullRefundEntry(booking.Rate.CancellationTimeline, booking.TotalAmount)
	if entry == nil {
		s.Logger.Warn("no full-refund entry in cancellation timeline", zap.String("booking", booking.ID))
		*warnings = append(*warnings, "This booking has no full-refund window; cancelling may forfeit part of the amount paid.")
		if proceed || !interruptWhenNoWindow {
			return nil
		}
		return &ConfirmationRequired{
			Reason:  "no_full_refund_window",
			Message: "This booking has no full-refund window. Confirm to proceed anyway.",
		}
	}
	if s.now().After(entry.Before) {
		if proceed {
			*warnings = append(*warnings, "The full-refund deadline has passed; the refund may be partial or zero.")
			return nil
		}
		return &ConfirmationRequired{
			Reason: "past_full_refund_deadline",
			Message: fmt.Sprintf("The full-refund deadline (%s) has passed. Cancelling now may forfeit the refund. Confirm to proceed anyway.",
				entry.Before.Format(time.RFC3339)),
		}
	}
	return nil
}

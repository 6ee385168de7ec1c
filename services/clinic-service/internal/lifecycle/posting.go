package lifecycle

import (
	"fmt"
	"time"

	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
)

// PostingCategory is the ledger category for appointment-completion postings.
const PostingCategory = "Consultas"

// CashPosting builds the cash register entry for a completed appointment paid
// in cash. The amount is the price snapshotted on the appointment, never the
// current catalog price.
func CashPosting(appt model.Appointment, patientName string, now time.Time) model.CashMovement {
	return model.CashMovement{
		Type:          "income",
		Description:   fmt.Sprintf("Consulta - %s", patientName),
		Amount:        appt.Price,
		Date:          now,
		Category:      PostingCategory,
		PaymentMethod: string(PayCash),
		AppointmentID: appt.ID,
	}
}

// BankPosting builds the bank account credit for a completed appointment paid
// by pix or card.
func BankPosting(appt model.Appointment, patientName string, pay Payment, now time.Time) model.BankMovement {
	return model.BankMovement{
		AccountID:     pay.BankAccountID,
		Type:          "credit",
		Description:   fmt.Sprintf("Consulta (%s) - %s", pay.Method.Label(), patientName),
		Amount:        appt.Price,
		Date:          now,
		Category:      PostingCategory,
		AppointmentID: appt.ID,
	}
}

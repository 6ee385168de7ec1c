// Package lifecycle holds the appointment status machine: which transitions
// are valid, when payment data is required, and which ledger posting (if any)
// a transition produces. It is pure; persistence is the caller's concern.
package lifecycle

import "errors"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PayCash       PaymentMethod = "cash"
	PayPix        PaymentMethod = "pix"
	PayCreditCard PaymentMethod = "credit_card"
	PayDebitCard  PaymentMethod = "debit_card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayPix, PayCreditCard, PayDebitCard:
		return true
	}
	return false
}

// RequiresBankAccount reports whether the method settles into a bank account.
// Cash settles into the register and needs no account.
func (m PaymentMethod) RequiresBankAccount() bool {
	switch m {
	case PayPix, PayCreditCard, PayDebitCard:
		return true
	}
	return false
}

// Label is the customer-facing payment method name used in ledger descriptions.
func (m PaymentMethod) Label() string {
	switch m {
	case PayCash:
		return "Dinheiro"
	case PayPix:
		return "PIX"
	case PayCreditCard:
		return "Cartão de Crédito"
	case PayDebitCard:
		return "Cartão de Débito"
	}
	return string(m)
}

// Payment is the payment data supplied with a completion request.
type Payment struct {
	Method        PaymentMethod
	BankAccountID string
}

type PostingKind int

const (
	PostingNone PostingKind = iota
	PostingCash
	PostingBank
)

var (
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrPaymentMethodRequired = errors.New("payment method required")
	ErrBankAccountRequired   = errors.New("bank account required")
)

// Decision is the validated outcome of a requested transition.
type Decision struct {
	Target  Status
	Posting PostingKind
	Payment *Payment
}

// Decide validates a requested status change and determines the posting it
// must produce. Rules:
//
//   - Entering completed from any other status requires a payment method, and
//     pix/credit_card/debit_card additionally require a bank account.
//   - Re-requesting completed on an already completed appointment is accepted
//     without payment data and produces no posting. This is a deliberate
//     idempotence policy: the first completion already posted the ledger
//     entry, and a repeat must not post a second one.
//   - Every other transition produces no posting, even if payment data was
//     supplied.
//
// A validation error means nothing may change: no status update, no ledger
// entry, no notification.
func Decide(current, target Status, pay *Payment) (Decision, error) {
	if !current.Valid() || !target.Valid() {
		return Decision{}, ErrInvalidStatus
	}

	if target != StatusCompleted || current == StatusCompleted {
		return Decision{Target: target, Posting: PostingNone}, nil
	}

	if pay == nil || pay.Method == "" {
		return Decision{}, ErrPaymentMethodRequired
	}
	if !pay.Method.Valid() {
		return Decision{}, ErrInvalidPaymentMethod
	}
	if pay.Method.RequiresBankAccount() {
		if pay.BankAccountID == "" {
			return Decision{}, ErrBankAccountRequired
		}
		return Decision{Target: target, Posting: PostingBank, Payment: pay}, nil
	}
	return Decision{Target: target, Posting: PostingCash, Payment: pay}, nil
}

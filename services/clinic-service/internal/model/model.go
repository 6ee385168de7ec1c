package model

import "time"

type Patient struct {
	ID              string
	Name            string
	CPF             string
	BirthDate       time.Time
	Phone           string
	Email           string
	Address         string
	HealthInsurance string
	CreatedAt       time.Time
}

type Doctor struct {
	ID        string
	Name      string
	Specialty string
	CRM       string
	Phone     string
	Email     string
	Status    string
	CreatedAt time.Time
}

// Service is a catalog entry. Price is the current catalog price; appointments
// snapshot it at creation time.
type Service struct {
	ID              string
	Name            string
	Description     string
	Price           float64
	DurationMinutes int
	Category        string
	Status          string
	CreatedAt       time.Time
}

type Appointment struct {
	ID        string
	PatientID string
	DoctorID  string
	ServiceID string
	Date      time.Time
	Time      string
	Price     float64
	Notes     string
	Status    string
	CreatedAt time.Time
}

type BankAccount struct {
	ID        string
	Name      string
	Bank      string
	Agency    string
	Account   string
	Balance   float64
	CreatedAt time.Time
}

// CashMovement is a cash register ledger entry. AppointmentID is set only for
// entries posted by an appointment completion.
type CashMovement struct {
	ID            string
	Type          string // income | expense
	Description   string
	Amount        float64
	Date          time.Time
	Category      string
	PaymentMethod string // cash | credit | debit | pix | transfer
	AppointmentID string
	CreatedAt     time.Time
}

// BankMovement is a bank account ledger entry.
type BankMovement struct {
	ID            string
	AccountID     string
	Type          string // credit | debit
	Description   string
	Amount        float64
	Date          time.Time
	Category      string
	AppointmentID string
	CreatedAt     time.Time
}

// Transaction is a receivable or payable with its own payment lifecycle,
// independent from appointment postings.
type Transaction struct {
	ID          string
	Type        string // receivable | payable
	Description string
	Amount      float64
	DueDate     time.Time
	PaidDate    *time.Time
	Status      string // pending | paid | overdue | cancelled
	Category    string
	Reference   string
	CreatedAt   time.Time
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Status       string
	CreatedAt    time.Time
}

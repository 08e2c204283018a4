package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"

	Card     PaymentMethod = "card"
	Transfer PaymentMethod = "transfer"
	Cash     PaymentMethod = "cash"

	Monthly GoalType = "monthly"
	Yearly  GoalType = "yearly"
)

// DateLayout is the canonical, timezone-free transaction date format.
const DateLayout = "2006-01-02"

// PaymentMethods lists the channels in the order an entry is split into rows.
var PaymentMethods = []PaymentMethod{Card, Transfer, Cash}

type (
	TxType        string
	PaymentMethod string
	GoalType      string

	// Transaction is one money movement on one date via one payment channel.
	Transaction struct {
		ID            string        `json:"id"`
		OwnerID       string        `json:"ownerId"`
		Date          string        `json:"date"`
		Type          TxType        `json:"type"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
		Amount        int64         `json:"amount"`
		Memo          string        `json:"memo,omitempty"`
		Category      string        `json:"category,omitempty"`
		Vendor        string        `json:"vendor,omitempty"`
		Description   string        `json:"description,omitempty"`
		EntryGroupID  string        `json:"entryGroupId,omitempty"`
		CreatedAt     time.Time     `json:"createdAt"`
	}

	// Entry is the user-facing row: one date, shared annotations and up to
	// three payment amounts, backed by the transaction rows listed in IDs.
	Entry struct {
		RowID       string                   `json:"rowId,omitempty"`
		Date        string                   `json:"date"`
		Category    string                   `json:"category"`
		Vendor      string                   `json:"vendor"`
		Description string                   `json:"description"`
		Memo        string                   `json:"memo"`
		Card        int64                    `json:"card"`
		Transfer    int64                    `json:"transfer"`
		Cash        int64                    `json:"cash"`
		IDs         map[PaymentMethod]string `json:"ids,omitempty"`
		AllIDs      []string                 `json:"allIds,omitempty"`
	}

	// Goal is an income/profit target for one month or one year.
	// Month is 0 for yearly goals.
	Goal struct {
		ID         string    `json:"id"`
		OwnerID    string    `json:"ownerId"`
		GoalType   GoalType  `json:"goalType"`
		Year       int       `json:"year"`
		Month      int       `json:"month,omitempty"`
		IncomeGoal int64     `json:"incomeGoal"`
		ProfitGoal int64     `json:"profitGoal"`
		CreatedAt  time.Time `json:"createdAt"`
		UpdatedAt  time.Time `json:"updatedAt"`
	}
)

var (
	ErrInvalidDate          = errors.New("invalid date: expected YYYY-MM-DD")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyEntry           = errors.New("entry total must be greater than zero")
	ErrInvalidGoalType      = errors.New("invalid goal type")
	ErrInvalidYear          = errors.New("invalid year")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrProfitExceedsIncome  = errors.New("profit goal cannot exceed income goal")
	ErrEmptyOwner           = errors.New("owner id is required")
	ErrNotFound             = errors.New("not found")
)

func (t TxType) IsValid() bool {
	return t == Income || t == Expense
}

func (p PaymentMethod) IsValid() bool {
	switch p {
	case Card, Transfer, Cash:
		return true
	}
	return false
}

func (g GoalType) IsValid() bool {
	return g == Monthly || g == Yearly
}

// ValidateDate reports whether s is a real calendar date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if len(s) != len(DateLayout) {
		return ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return ErrInvalidDate
	}
	return nil
}

// DateParts splits a canonical date into its numeric year, month and day.
// Malformed input yields zeros.
func DateParts(s string) (year, month, day int) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return 0, 0, 0
	}
	return t.Year(), int(t.Month()), t.Day()
}

// FormatDate renders t in the canonical transaction date form.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func (t Transaction) Validate() error {
	if err := ValidateDate(t.Date); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if !t.PaymentMethod.IsValid() {
		return ErrInvalidPaymentMethod
	}
	if t.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// AmountFor returns the entry amount booked on the given channel.
func (e Entry) AmountFor(p PaymentMethod) int64 {
	switch p {
	case Card:
		return e.Card
	case Transfer:
		return e.Transfer
	case Cash:
		return e.Cash
	}
	return 0
}

func (e *Entry) setAmount(p PaymentMethod, amount int64) {
	switch p {
	case Card:
		e.Card = amount
	case Transfer:
		e.Transfer = amount
	case Cash:
		e.Cash = amount
	}
}

// AddRow folds one transaction row into the entry.
func (e *Entry) AddRow(t Transaction) {
	if e.IDs == nil {
		e.IDs = make(map[PaymentMethod]string, len(PaymentMethods))
	}
	e.setAmount(t.PaymentMethod, t.Amount)
	e.IDs[t.PaymentMethod] = t.ID
	e.AllIDs = append(e.AllIDs, t.ID)
}

func (e Entry) Total() int64 {
	return e.Card + e.Transfer + e.Cash
}

func (e Entry) Validate() error {
	if err := ValidateDate(e.Date); err != nil {
		return err
	}
	if e.Card < 0 || e.Transfer < 0 || e.Cash < 0 {
		return ErrInvalidAmount
	}
	if e.Total() <= 0 {
		return ErrEmptyEntry
	}
	return nil
}

// Normalize trims the free-text annotations.
func (e Entry) Normalize() Entry {
	e.Date = strings.TrimSpace(e.Date)
	e.Category = strings.TrimSpace(e.Category)
	e.Vendor = strings.TrimSpace(e.Vendor)
	e.Description = strings.TrimSpace(e.Description)
	e.Memo = strings.TrimSpace(e.Memo)
	return e
}

// Validate checks the goal as entered by a user, including the
// profit <= income rule that stores do not enforce.
func (g Goal) Validate() error {
	if !g.GoalType.IsValid() {
		return ErrInvalidGoalType
	}
	if g.Year < 1900 || g.Year > 9999 {
		return ErrInvalidYear
	}
	switch g.GoalType {
	case Monthly:
		if g.Month < 1 || g.Month > 12 {
			return ErrInvalidMonth
		}
	case Yearly:
		if g.Month != 0 {
			return ErrInvalidMonth
		}
	}
	if g.IncomeGoal < 0 || g.ProfitGoal < 0 {
		return ErrInvalidAmount
	}
	if g.ProfitGoal > g.IncomeGoal {
		return ErrProfitExceedsIncome
	}
	return nil
}

// Key identifies the goal slot an upsert targets.
func (g Goal) Key() string {
	return fmt.Sprintf("%s/%s/%04d-%02d", g.OwnerID, g.GoalType, g.Year, g.Month)
}

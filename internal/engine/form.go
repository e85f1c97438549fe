package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/model"
)

// ErrInvalidEntry reports a form with a blank required field.
var ErrInvalidEntry = errors.New("entry invalid")

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	return v
}

// Form is the user-entered state of one expense. Amount and category are
// free text until the form is saved.
type Form struct {
	CreatedDate  time.Time
	Name         string `validate:"notblank"`
	Amount       string `validate:"notblank"`
	CategoryName string `validate:"notblank"`
	CreatedBy    string
	ExpenseID    uuid.UUID
	CategoryID   uuid.UUID
	IsDeleted    bool
}

// NewForm returns an empty entry form with a fresh expense ID.
func NewForm() Form {
	return Form{
		ExpenseID:   model.NewID(),
		CreatedDate: time.Now(),
	}
}

// FormFromExpense fills a form for editing an existing expense.
func FormFromExpense(e model.Expense, categoryName string) Form {
	return Form{
		ExpenseID:    e.ExpenseID,
		CategoryID:   e.CategoryID,
		Name:         e.Name,
		Amount:       strconv.FormatFloat(e.Amount, 'f', -1, 64),
		CreatedBy:    e.CreatedBy,
		CreatedDate:  e.CreatedDate,
		IsDeleted:    e.IsDeleted,
		CategoryName: categoryName,
	}
}

// Validate reports which required fields are blank.
func (f Form) Validate() error {
	err := formValidator.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("%w: blank %s", ErrInvalidEntry, strings.Join(fields, ", "))
}

// Valid reports whether the form can be saved.
func (f Form) Valid() bool {
	return f.Validate() == nil
}

// ToExpense builds the expense record filed under categoryID.
func (f Form) ToExpense(categoryID uuid.UUID) model.Expense {
	return model.Expense{
		ExpenseID:   f.ExpenseID,
		CategoryID:  categoryID,
		Name:        f.Name,
		Amount:      ParseAmount(f.Amount),
		CreatedBy:   f.CreatedBy,
		CreatedDate: f.CreatedDate,
		IsDeleted:   f.IsDeleted,
	}
}

// ParseAmount converts amount text to a number. Text that is not a finite
// decimal number becomes 0.
func ParseAmount(text string) float64 {
	amount, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return amount
}

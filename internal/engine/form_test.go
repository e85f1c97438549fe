package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expense-saver/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{input: "12345.5", want: 12345.5},
		{input: "100", want: 100},
		{input: "-3.25", want: -3.25},
		{input: "1e3", want: 1000},
		{input: "abc", want: 0},
		{input: "12,5", want: 0},
		{input: "", want: 0},
		{input: "NaN", want: 0},
		{input: "Inf", want: 0},
		{input: "1e400", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseAmount(tt.input), 1e-9)
		})
	}
}

func TestForm_Validate(t *testing.T) {
	valid := Form{Name: "Lunch", Amount: "10", CategoryName: "Food"}

	tests := []struct {
		mutate func(*Form)
		name   string
		blank  string
	}{
		{name: "complete form", mutate: func(*Form) {}},
		{name: "blank name", mutate: func(f *Form) { f.Name = "  " }, blank: "Name"},
		{name: "empty amount", mutate: func(f *Form) { f.Amount = "" }, blank: "Amount"},
		{name: "tab category", mutate: func(f *Form) { f.CategoryName = "\t" }, blank: "CategoryName"},
		{name: "unparseable amount is still valid", mutate: func(f *Form) { f.Amount = "abc" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid
			tt.mutate(&form)

			err := form.Validate()
			if tt.blank == "" {
				require.NoError(t, err)
				assert.True(t, form.Valid())
				return
			}
			require.ErrorIs(t, err, ErrInvalidEntry)
			assert.Contains(t, err.Error(), tt.blank)
			assert.False(t, form.Valid())
		})
	}
}

func TestForm_ToExpense(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	categoryID := uuid.New()
	form := Form{
		ExpenseID:    uuid.New(),
		Name:         "Lunch",
		Amount:       "12345.5",
		CategoryName: "Food",
		CreatedBy:    "me",
		CreatedDate:  created,
	}

	got := form.ToExpense(categoryID)
	assert.Equal(t, model.Expense{
		ExpenseID:   form.ExpenseID,
		CategoryID:  categoryID,
		Name:        "Lunch",
		Amount:      12345.5,
		CreatedBy:   "me",
		CreatedDate: created,
	}, got)
}

func TestFormFromExpense(t *testing.T) {
	e := model.Expense{
		ExpenseID:   uuid.New(),
		CategoryID:  uuid.New(),
		Name:        "Taxi",
		Amount:      12345.5,
		CreatedDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		IsDeleted:   true,
	}

	form := FormFromExpense(e, "Travel")
	assert.Equal(t, "12345.5", form.Amount)
	assert.Equal(t, "Travel", form.CategoryName)
	assert.Equal(t, e, form.ToExpense(e.CategoryID))
}

func TestNewForm(t *testing.T) {
	a, b := NewForm(), NewForm()
	assert.NotEqual(t, uuid.Nil, a.ExpenseID)
	assert.NotEqual(t, a.ExpenseID, b.ExpenseID)
	assert.False(t, a.CreatedDate.IsZero())
	assert.False(t, a.Valid())
}

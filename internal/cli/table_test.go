package cli

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/expense-saver/internal/model"
)

func TestRenderExpenses(t *testing.T) {
	food := model.ExpenseCategory{CategoryID: uuid.New(), Name: "Food"}
	rows := []model.ExpenseWithCategory{
		{
			Category: food,
			Expense: model.Expense{
				ExpenseID:   uuid.New(),
				CategoryID:  food.CategoryID,
				Name:        "Lunch",
				Amount:      12345.5,
				CreatedDate: time.Date(2024, 3, 2, 12, 0, 0, 0, time.Local),
			},
		},
	}

	out := RenderExpenses(rows, 12345.5, defaultFormatter)
	assert.Contains(t, out, "Lunch")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "2024-03-02")
	assert.Contains(t, out, "12.346")
	assert.Contains(t, out, "Total: 12.346")
	assert.Contains(t, out, rows[0].Expense.ExpenseID.String())

	assert.Contains(t, RenderExpenses(nil, 0, defaultFormatter), "No expenses.")
}

func TestRenderCategories(t *testing.T) {
	cats := []model.ExpenseCategory{
		{CategoryID: uuid.New(), Name: "Food", CreatedBy: model.SystemAuthor, CreatedDate: time.Now()},
	}
	out := RenderCategories(cats)
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, model.SystemAuthor)

	assert.Contains(t, RenderCategories(nil), "No categories.")
}

package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
)

// DefaultCurrency - валюта предложений специалистов по умолчанию.
const DefaultCurrency = "GBP"

type Money struct {
	Amount   float64
	Currency string
}

func NewMoney(amount float64, currency string) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма должна быть числом")
	}
	if amount < 0 {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}, nil
}

func (m Money) String() string {
	return fmt.Sprintf("%s %.2f", m.Currency, m.Amount)
}

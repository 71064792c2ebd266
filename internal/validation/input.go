package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации заявок.
const (
	MaxDescriptionLength    = 2000
	MaxReasonForFaultLength = 1000
	MaxDurationLength       = 100
	MaxReviewCommentLength  = 500
	MaxShortFieldLength     = 200
	MinImages               = 1
	MaxImages               = 5
	MaxVideos               = 5
	MinCarYear              = 1900
	MinRating               = 1
	MaxRating               = 5
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email обязателен")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("некорректный формат email")
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateCount проверяет размер списка.
func ValidateCount(fieldName string, n, min, max int) error {
	if n < min || n > max {
		if min == 0 {
			return fmt.Errorf("%s: допускается не более %d элементов", fieldName, max)
		}
		return fmt.Errorf("%s: требуется от %d до %d элементов", fieldName, min, max)
	}
	return nil
}

// ValidateCarYear проверяет год выпуска относительно текущего года.
func ValidateCarYear(year, currentYear int) error {
	if year < MinCarYear || year > currentYear+1 {
		return fmt.Errorf("год выпуска должен быть между %d и %d", MinCarYear, currentYear+1)
	}
	return nil
}

// ValidateRating проверяет оценку отзыва.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("рейтинг должен быть от %d до %d", MinRating, MaxRating)
	}
	return nil
}

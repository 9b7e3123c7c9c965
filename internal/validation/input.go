package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength         = 3
	MaxUsernameLength         = 30
	MinDisplayNameLength      = 2
	MaxDisplayNameLength      = 100
	MinJobTitleLength         = 3
	MaxJobTitleLength         = 200
	MinJobDescriptionLength   = 10
	MaxJobDescriptionLength   = 5000
	MinQuoteMessageLength     = 5
	MaxQuoteMessageLength     = 2000
	MaxAddressLength          = 300
	MaxPhotoDescriptionLength = 500
	MinBudget                 = 0.0
	MaxBudget                 = 100000000.0 // 100 миллионов
)

// ValidateLength проверяет длину строки.
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
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
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

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if len(username) > 0 && unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateJobTitle проверяет заголовок заказа.
func ValidateJobTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок заказа обязателен")
	}
	return ValidateLength("заголовок заказа", strings.TrimSpace(title), MinJobTitleLength, MaxJobTitleLength)
}

// ValidateJobDescription проверяет описание заказа.
func ValidateJobDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание заказа обязательно")
	}
	return ValidateLength("описание заказа", strings.TrimSpace(description), MinJobDescriptionLength, MaxJobDescriptionLength)
}

// ValidateBudget проверяет бюджет заказа.
func ValidateBudget(budget float64) error {
	if budget <= MinBudget {
		return fmt.Errorf("бюджет должен быть положительным")
	}
	if budget > MaxBudget {
		return fmt.Errorf("бюджет не может превышать %.0f", MaxBudget)
	}
	return nil
}

// ValidateCoordinates проверяет широту и долготу.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("широта должна быть в диапазоне от -90 до 90")
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("долгота должна быть в диапазоне от -180 до 180")
	}
	return nil
}

// ValidateQuoteMessage проверяет сопроводительное сообщение сметы.
func ValidateQuoteMessage(message string) error {
	if message == "" {
		return fmt.Errorf("сообщение сметы обязательно")
	}
	return ValidateLength("сообщение сметы", strings.TrimSpace(message), MinQuoteMessageLength, MaxQuoteMessageLength)
}

// ValidatePhotoURL проверяет ссылку на фотоподтверждение.
func ValidatePhotoURL(link string) error {
	if link == "" {
		return fmt.Errorf("ссылка на фото обязательна")
	}

	link = strings.TrimSpace(link)

	// Файлы из собственного хранилища отдаются по относительному пути /media/...
	if strings.HasPrefix(link, "/") {
		return nil
	}

	parsedURL, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("некорректный формат URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("ссылка должна начинаться с http:// или https://")
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("ссылка должна содержать доменное имя")
	}

	return nil
}

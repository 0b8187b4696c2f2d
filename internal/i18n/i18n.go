// Package i18n negotiates the response locale and renders user-facing
// messages in English, Russian and Kazakh.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Locales supported by the message catalog.
const (
	English = "en"
	Russian = "ru"
	Kazakh  = "kk"
)

// Message keys. The English text doubles as the key.
const (
	MsgInvalidRequest   = "Invalid request: %s"
	MsgTimeout          = "Processing is taking longer than expected. Please try again later."
	MsgTransportTimeout = "The effects service did not answer in time."
	MsgRemoteFailed     = "Image processing failed: %s"
	MsgRejected         = "The effects service rejected the request: %s"
	MsgNetwork          = "Could not reach the effects service."
	MsgBadResponse      = "The effects service returned an unexpected response."
	MsgEmptyStatus      = "The effects service returned an empty job status."
	MsgRateLimited      = "Too many requests. Please wait a minute."
	MsgUnexpected       = "The request could not be completed: %s"
)

var keys = []string{
	MsgInvalidRequest, MsgTimeout, MsgTransportTimeout, MsgRemoteFailed, MsgRejected,
	MsgNetwork, MsgBadResponse, MsgEmptyStatus, MsgRateLimited, MsgUnexpected,
}

var supported = []language.Tag{language.English, language.Russian, language.Kazakh}

var matcher = language.NewMatcher(supported)

var translations = map[language.Tag]map[string]string{
	language.Russian: {
		MsgInvalidRequest:   "Некорректный запрос: %s",
		MsgTimeout:          "Обработка занимает больше времени, чем ожидалось. Попробуйте позже.",
		MsgTransportTimeout: "Сервис эффектов не ответил вовремя.",
		MsgRemoteFailed:     "Не удалось обработать изображение: %s",
		MsgRejected:         "Сервис эффектов отклонил запрос: %s",
		MsgNetwork:          "Не удалось связаться с сервисом эффектов.",
		MsgBadResponse:      "Сервис эффектов вернул неожиданный ответ.",
		MsgEmptyStatus:      "Сервис эффектов вернул пустой статус задачи.",
		MsgRateLimited:      "Слишком много запросов. Подождите минуту.",
		MsgUnexpected:       "Не удалось выполнить запрос: %s",
	},
	language.Kazakh: {
		MsgInvalidRequest:   "Жарамсыз сұраныс: %s",
		MsgTimeout:          "Өңдеу күтілгеннен ұзаққа созылды. Кейінірек қайталап көріңіз.",
		MsgTransportTimeout: "Эффектілер қызметі уақытында жауап бермеді.",
		MsgRemoteFailed:     "Суретті өңдеу сәтсіз аяқталды: %s",
		MsgRejected:         "Эффектілер қызметі сұранысты қабылдамады: %s",
		MsgNetwork:          "Эффектілер қызметімен байланыс орнатылмады.",
		MsgBadResponse:      "Эффектілер қызметі күтпеген жауап қайтарды.",
		MsgEmptyStatus:      "Эффектілер қызметі бос тапсырма күйін қайтарды.",
		MsgRateLimited:      "Сұраныстар тым көп. Бір минут күтіңіз.",
		MsgUnexpected:       "Сұранысты орындау мүмкін болмады: %s",
	},
}

var messages = mustBuildCatalog(translations)

// buildCatalog fails when a locale misses a key or a message is rejected
// by the catalog.
func buildCatalog(entries map[language.Tag]map[string]string) (catalog.Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range keys {
		if err := b.SetString(language.English, key, key); err != nil {
			return nil, fmt.Errorf("i18n: en %q: %w", key, err)
		}
	}
	for tag, msgs := range entries {
		for _, key := range keys {
			msg, ok := msgs[key]
			if !ok {
				return nil, fmt.Errorf("i18n: %s is missing %q", tag, key)
			}
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("i18n: %s %q: %w", tag, key, err)
			}
		}
	}
	return b, nil
}

func mustBuildCatalog(entries map[language.Tag]map[string]string) catalog.Catalog {
	c, err := buildCatalog(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// Normalize maps a locale hint such as "ru-RU" or "KK" to a supported
// locale. It returns "" when the hint matches nothing.
func Normalize(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return ""
	}
	return match(tag)
}

// Negotiate picks the best supported locale for an Accept-Language header.
func Negotiate(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return ""
	}
	return match(tags...)
}

func match(tags ...language.Tag) string {
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return ""
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// ForCountry returns the locale most users from an ISO country code read.
func ForCountry(country string) string {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "KZ":
		return Kazakh
	case "RU", "BY", "KG":
		return Russian
	case "":
		return ""
	default:
		return English
	}
}

// Printer returns a message printer for locale, falling back to English.
func Printer(locale string) *message.Printer {
	tag := language.English
	if l := Normalize(locale); l != "" {
		tag = language.Make(l)
	}
	return message.NewPrinter(tag, message.Catalog(messages))
}

// Sprintf renders the message key in locale.
func Sprintf(locale, key string, args ...any) string {
	return Printer(locale).Sprintf(key, args...)
}

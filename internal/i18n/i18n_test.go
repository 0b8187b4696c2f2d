package i18n

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"ru":    Russian,
		"ru-RU": Russian,
		"KK":    Kazakh,
		"kk-KZ": Kazakh,
		"en-GB": English,
		"de":    "",
		"":      "",
		"!!":    "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"kk-KZ,ru;q=0.8", Kazakh},
		{"de-DE,ru;q=0.5", Russian},
		{"en-US,en;q=0.9", English},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			if got := Negotiate(tc.header); got != tc.want {
				t.Fatalf("Negotiate(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

func TestForCountry(t *testing.T) {
	tests := map[string]string{
		"kz": Kazakh,
		"RU": Russian,
		"US": English,
		"":   "",
	}
	for in, want := range tests {
		if got := ForCountry(in); got != want {
			t.Fatalf("ForCountry(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSprintfTranslates(t *testing.T) {
	if got := Sprintf(Russian, MsgRemoteFailed, "bad face"); got != "Не удалось обработать изображение: bad face" {
		t.Fatalf("unexpected russian message %q", got)
	}
	if got := Sprintf(Kazakh, MsgNetwork); got != "Эффектілер қызметімен байланыс орнатылмады." {
		t.Fatalf("unexpected kazakh message %q", got)
	}
	if got := Sprintf("de", MsgTimeout); got != MsgTimeout {
		t.Fatalf("unsupported locale must fall back to english, got %q", got)
	}
}

func TestMessagesAreDistinct(t *testing.T) {
	for _, locale := range []string{English, Russian, Kazakh} {
		seen := make(map[string]string)
		for _, key := range keys {
			msg := Printer(locale).Sprintf(key, "x")
			if prev, ok := seen[msg]; ok {
				t.Fatalf("%s: %q and %q render the same text", locale, prev, key)
			}
			seen[msg] = key
		}
	}
}

func TestBuildCatalogRejectsMissingTranslation(t *testing.T) {
	partial := map[language.Tag]map[string]string{
		language.Russian: {MsgTimeout: translations[language.Russian][MsgTimeout]},
	}
	_, err := buildCatalog(partial)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected a missing translation error, got %v", err)
	}
}

func TestMustBuildCatalogPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for an incomplete catalog")
		}
	}()
	mustBuildCatalog(map[language.Tag]map[string]string{language.Kazakh: {}})
}

func TestEveryKeyTranslated(t *testing.T) {
	for _, locale := range []string{Russian, Kazakh} {
		for _, key := range keys {
			if got := Printer(locale).Sprintf(key, "x"); got == Printer(English).Sprintf(key, "x") {
				t.Fatalf("%s renders %q untranslated", locale, key)
			}
		}
	}
}

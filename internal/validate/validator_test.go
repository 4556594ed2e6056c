package validate

import (
	"strings"
	"testing"

	"github.com/ppiankov/tenscan/internal/model"
)

const (
	goodTitle   = "Правительство обсудило меры поддержки регионов"
	goodContent = "Министр финансов представил доклад о бюджете на следующий год, отметив рост расходов " +
		"на инфраструктуру и образование. Окончательное решение будет принято на заседании кабинета " +
		"в начале следующей недели."
)

func TestValidator_Accepts(t *testing.T) {
	v := NewValidator(nil)

	res := v.Validate(goodTitle, goodContent)
	acc, ok := res.(Accepted)
	if !ok {
		t.Fatalf("Expected Accepted, got %#v", res)
	}
	if acc.Title != goodTitle {
		t.Errorf("Expected title unchanged, got %q", acc.Title)
	}
	if acc.Content != goodContent {
		t.Errorf("Expected content unchanged, got %q", acc.Content)
	}
}

func TestValidator_Check(t *testing.T) {
	v := NewValidator(nil)

	ok, title, content := v.Check("<b>"+goodTitle+"</b>", goodContent)
	if !ok {
		t.Fatal("Expected article to be accepted")
	}
	if title != goodTitle || content != goodContent {
		t.Errorf("Expected cleaned text, got %q / %q", title, content)
	}

	ok, title, content = v.Check("коротко", goodContent)
	if ok || title != "" || content != "" {
		t.Errorf("Expected rejection with empty strings, got %v %q %q", ok, title, content)
	}
}

func TestValidator_Rejections(t *testing.T) {
	v := NewValidator(nil)

	shouting := strings.ToUpper(goodContent)
	exclaimed := strings.Join(strings.Fields(goodContent), "! ")
	repeated := goodContent + " раз два три четыре пять раз два три четыре пять раз два три четыре пять"

	tests := []struct {
		desc    string
		title   string
		content string
		rule    Rule
	}{
		{"short title", "Коротко", goodContent, RuleShortTitle},
		{"title short after cleaning", "<p>🔥🔥 Ура 🔥</p>", goodContent, RuleShortTitle},
		{"short content", goodTitle, "Слишком мало текста.", RuleShortContent},
		{"banned extraction marker", goodTitle, goodContent + " Не удалось извлечь текст статьи.", RuleBannedPhrase},
		{"banned engagement bait", goodTitle, goodContent + " Подписывайтесь на наш канал.", RuleBannedPhrase},
		{"too many emoji", goodTitle + " 🔥🔥🔥🔥", goodContent, RuleTooManyEmoji},
		{"repeated phrase", goodTitle, repeated, RuleRepeatedWords},
		{"uppercase", strings.ToUpper(goodTitle), shouting, RuleUppercase},
		{"exclamation density", goodTitle, exclaimed, RuleExclamation},
		{"invalid utf-8", goodTitle, "bad \xff\xfe bytes " + goodContent, RuleMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			res := v.Validate(tt.title, tt.content)
			rej, ok := res.(Rejected)
			if !ok {
				t.Fatalf("Expected Rejected(%s), got %#v", tt.rule, res)
			}
			if rej.Rule != tt.rule {
				t.Errorf("Expected rule %s, got %s (%s)", tt.rule, rej.Rule, rej.Reason())
			}
		})
	}
}

func TestValidator_ExtraBannedPhrases(t *testing.T) {
	cfg := model.DefaultConfig().Validation
	cfg.ExtraBanned = []string{"  Реклама  "}
	v := NewValidator(&cfg)

	res := v.Validate(goodTitle, goodContent+" Реклама партнёра.")
	rej, ok := res.(Rejected)
	if !ok || rej.Rule != RuleBannedPhrase || rej.Detail != "реклама" {
		t.Errorf("Expected banned phrase rejection for configured phrase, got %#v", res)
	}
}

func TestValidator_Clean(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		desc     string
		input    string
		expected string
	}{
		{"html tags and entities", "<p>Hello &amp; world</p><script>var x = 1;</script>", "Hello & world"},
		{"style dropped", "<style>p{color:red}</style><div>text</div>", "text"},
		{"markdown emphasis and link", "**Важно**: [читать](https://example.com/a)", "Важно: читать"},
		{"markdown heading", "# Заголовок\n> цитата", "Заголовок\nцитата"},
		{"punctuation runs", "Что???? Да!!! Итак.... раз,, два -- три", "Что? Да! Итак... раз, два - три"},
		{"whitespace runs", "a   b\t\tc\n\n\nd", "a b c\nd"},
		{"emoji stripped", "Новости 🔥 дня", "Новости дня"},
		{"foreign url removed", "см. https://spam.example.com/promo сегодня", "см. сегодня"},
		{"allowed url kept", "источник https://tass.ru/politika/1 сегодня", "источник https://tass.ru/politika/1 сегодня"},
		{"allowed subdomain kept", "см. https://www.news.ria.ru/x", "см. https://www.news.ria.ru/x"},
		{"lookalike domain removed", "см. https://notria.ru/x", "см."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := v.Clean(tt.input)
			if got != tt.expected {
				t.Errorf("Clean(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCountEmoji(t *testing.T) {
	if n := CountEmoji("plain text"); n != 0 {
		t.Errorf("Expected 0 emoji, got %d", n)
	}
	if n := CountEmoji("🔥 ✅ 🚀"); n != 3 {
		t.Errorf("Expected 3 emoji, got %d", n)
	}
	// joiners and variation selectors are not counted
	if n := CountEmoji("❤️"); n != 1 {
		t.Errorf("Expected 1 emoji, got %d", n)
	}
}

func TestMostRepeatedWindow(t *testing.T) {
	phrase, n := MostRepeatedWindow("a b c d e a b c d e a b c d e", 5)
	if phrase != "a b c d e" || n != 3 {
		t.Errorf("Expected \"a b c d e\" x3, got %q x%d", phrase, n)
	}

	if _, n := MostRepeatedWindow("too short", 5); n != 0 {
		t.Errorf("Expected 0 for short text, got %d", n)
	}
}

func TestRatios(t *testing.T) {
	if r := UpperRatio("ABcd"); r != 0.5 {
		t.Errorf("Expected upper ratio 0.5, got %f", r)
	}
	if r := UpperRatio("123 !!"); r != 0 {
		t.Errorf("Expected upper ratio 0 without letters, got %f", r)
	}
	if r := ExclaimRatio("ab!!"); r != 0.5 {
		t.Errorf("Expected exclaim ratio 0.5, got %f", r)
	}
	if r := ExclaimRatio(""); r != 0 {
		t.Errorf("Expected exclaim ratio 0 for empty, got %f", r)
	}
}

func TestValidator_NeverPanics(t *testing.T) {
	v := NewValidator(nil)
	inputs := []string{"", "<", "<<<>>>", "&", "&#xffffff;", "[](", "**", "\x00\x01", "<script>", strings.Repeat("!", 1000)}
	for _, in := range inputs {
		_ = v.Validate(in, in)
	}
}

package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/tenscan/internal/model"
)

// Rule names the check that rejected an article
type Rule string

const (
	RuleMalformed     Rule = "malformed_input"
	RuleShortTitle    Rule = "short_title"
	RuleShortContent  Rule = "short_content"
	RuleBannedPhrase  Rule = "banned_phrase"
	RuleTooManyEmoji  Rule = "too_many_emoji"
	RuleRepeatedWords Rule = "repeated_phrases"
	RuleUppercase     Rule = "uppercase_ratio"
	RuleExclamation   Rule = "exclamation_density"
)

// Result is either Accepted or Rejected
type Result interface {
	isResult()
}

// Accepted carries the cleaned title and content
type Accepted struct {
	Title   string
	Content string
}

// Rejected explains why the article was dropped
type Rejected struct {
	Rule   Rule
	Detail string
}

func (Accepted) isResult() {}
func (Rejected) isResult() {}

// Reason formats the rejection for logs and stats
func (r Rejected) Reason() string {
	if r.Detail == "" {
		return string(r.Rule)
	}
	return string(r.Rule) + ": " + r.Detail
}

// bannedPhrases are extraction-error markers and engagement bait, matched lowercased
var bannedPhrases = []string{
	"не удалось извлечь",
	"ошибка извлечения",
	"ошибка загрузки",
	"контент недоступен",
	"включите javascript",
	"failed to extract",
	"content not available",
	"enable javascript",
	"javascript is disabled",
	"lorem ipsum",
	"подписывайтесь на",
	"подпишитесь на",
	"подписаться на наш",
	"ставьте лайк",
	"поставьте лайк",
	"жмите на колокольчик",
	"переходите по ссылке",
	"читайте нас в",
	"subscribe to our",
	"like and subscribe",
	"click here",
}

var (
	emojiPattern = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{1F900}-\x{1F9FF}\x{1FA70}-\x{1FAFF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}\x{FE0F}\x{200D}]`)
	urlPattern   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"'()\[\]]+`)

	mdLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdEmphasis = regexp.MustCompile("(\\*\\*|__|~~|`+)")
	mdLineLead = regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}|>+|[*+-])[ \t]+`)
	mdStars    = regexp.MustCompile(`\*+`)

	punctRuns = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`!{2,}`), "!"},
		{regexp.MustCompile(`\?{2,}`), "?"},
		{regexp.MustCompile(`\.{4,}`), "..."},
		{regexp.MustCompile(`,{2,}`), ","},
		{regexp.MustCompile(`-{2,}`), "-"},
		{regexp.MustCompile(`[?!]{3,}`), "?!"},
	}
	spaceRun   = regexp.MustCompile(`[ \t\x{00A0}]+`)
	newlineRun = regexp.MustCompile(`\s*\n\s*`)
)

// Validator cleans raw article text and decides whether it is worth processing
type Validator struct {
	cfg     model.ValidationConfig
	allowed map[string]bool
	banned  []string
}

// NewValidator creates a validator; a nil config uses the defaults
func NewValidator(cfg *model.ValidationConfig) *Validator {
	if cfg == nil {
		cfg = &model.DefaultConfig().Validation
	}

	v := &Validator{
		cfg:     *cfg,
		allowed: make(map[string]bool),
		banned:  append([]string(nil), bannedPhrases...),
	}
	for _, d := range cfg.AllowedDomains {
		v.allowed[strings.TrimPrefix(strings.ToLower(d), "www.")] = true
	}
	for _, p := range cfg.ExtraBanned {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			v.banned = append(v.banned, p)
		}
	}
	return v
}

// Check mirrors Validate as (accepted, cleanTitle, cleanContent)
func (v *Validator) Check(title, content string) (bool, string, string) {
	if a, ok := v.Validate(title, content).(Accepted); ok {
		return true, a.Title, a.Content
	}
	return false, "", ""
}

// Validate cleans title and content and applies the rejection rules
func (v *Validator) Validate(title, content string) Result {
	if !utf8.ValidString(title) || !utf8.ValidString(content) {
		return Rejected{Rule: RuleMalformed, Detail: "invalid UTF-8"}
	}

	// Emoji are counted before cleaning strips them
	emoji := CountEmoji(title) + CountEmoji(content)

	cleanTitle := v.Clean(title)
	cleanContent := v.Clean(content)

	if n := utf8.RuneCountInString(cleanTitle); n < v.cfg.MinTitleLength {
		return Rejected{Rule: RuleShortTitle, Detail: fmt.Sprintf("%d < %d chars", n, v.cfg.MinTitleLength)}
	}
	if n := utf8.RuneCountInString(cleanContent); n < v.cfg.MinContentLength {
		return Rejected{Rule: RuleShortContent, Detail: fmt.Sprintf("%d < %d chars", n, v.cfg.MinContentLength)}
	}

	full := cleanTitle + "\n" + cleanContent
	lower := strings.ToLower(full)
	for _, phrase := range v.banned {
		if strings.Contains(lower, phrase) {
			return Rejected{Rule: RuleBannedPhrase, Detail: phrase}
		}
	}

	if emoji > v.cfg.MaxEmoji {
		return Rejected{Rule: RuleTooManyEmoji, Detail: fmt.Sprintf("%d > %d", emoji, v.cfg.MaxEmoji)}
	}

	if phrase, n := MostRepeatedWindow(lower, 5); n > 2 {
		return Rejected{Rule: RuleRepeatedWords, Detail: fmt.Sprintf("%q x%d", phrase, n)}
	}
	if r := UpperRatio(full); r > v.cfg.MaxUpperRatio {
		return Rejected{Rule: RuleUppercase, Detail: fmt.Sprintf("%.2f > %.2f", r, v.cfg.MaxUpperRatio)}
	}
	if r := ExclaimRatio(full); r > v.cfg.MaxExclaimRatio {
		return Rejected{Rule: RuleExclamation, Detail: fmt.Sprintf("%.3f > %.3f", r, v.cfg.MaxExclaimRatio)}
	}

	return Accepted{Title: cleanTitle, Content: cleanContent}
}

// Clean strips markup, foreign links and emoji and collapses runs
func (v *Validator) Clean(s string) string {
	if s == "" {
		return ""
	}
	s = StripHTML(s)
	s = stripMarkdown(s)
	s = urlPattern.ReplaceAllStringFunc(s, func(u string) string {
		if v.allowedURL(u) {
			return u
		}
		return " "
	})
	s = emojiPattern.ReplaceAllString(s, "")
	for _, p := range punctRuns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	s = spaceRun.ReplaceAllString(s, " ")
	s = newlineRun.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

func stripMarkdown(s string) string {
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdLineLead.ReplaceAllString(s, "")
	s = mdEmphasis.ReplaceAllString(s, "")
	return mdStars.ReplaceAllString(s, "")
}

func (v *Validator) allowedURL(raw string) bool {
	raw = strings.TrimRight(raw, ".,;:!?")
	if strings.HasPrefix(strings.ToLower(raw), "www.") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for {
		if v.allowed[host] {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return false
		}
		host = host[i+1:]
	}
}

// CountEmoji counts runes in the emoji ranges, ignoring joiners and variation selectors
func CountEmoji(s string) int {
	n := 0
	for _, m := range emojiPattern.FindAllString(s, -1) {
		if m != "\u200d" && m != "\ufe0f" {
			n++
		}
	}
	return n
}

// MostRepeatedWindow returns the most frequent n-word window and its count
func MostRepeatedWindow(text string, n int) (string, int) {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) < n {
		return "", 0
	}

	counts := make(map[string]int)
	best, bestN := "", 0
	for i := 0; i+n <= len(words); i++ {
		key := strings.Join(words[i:i+n], " ")
		counts[key]++
		if counts[key] > bestN {
			best, bestN = key, counts[key]
		}
	}
	return best, bestN
}

// UpperRatio is the share of uppercase letters among all letters
func UpperRatio(s string) float64 {
	letters, upper := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

// ExclaimRatio is the share of '!' among all runes
func ExclaimRatio(s string) float64 {
	total := utf8.RuneCountInString(s)
	if total == 0 {
		return 0
	}
	return float64(strings.Count(s, "!")) / float64(total)
}

package classify

import (
	"strings"

	"github.com/ppiankov/tenscan/internal/model"
)

// FallbackConfidence is the fixed confidence of keyword classifications
const FallbackConfidence = 0.3

// categoryKeywords are lowercase stems matched as substrings.
// Stems keep Russian inflections matching without a morphology library.
var categoryKeywords = map[model.Category][]string{
	model.CategoryMilitaryOperations: {
		"ракет", "удар", "обстрел", "атак", "бомб", "взрыв", "войск", "армия", "армии",
		"военн", "фронт", "наступлен", "беспилотник", "дрон", "пво", "артиллер", "танк",
		"минобороны", "боев", "сбит", "missile", "strike", "shelling", "troops", "military",
	},
	model.CategoryHumanitarianCrisis: {
		"жертв", "погиб", "ранен", "беженц", "эвакуац", "гуманитарн", "пострадавш",
		"разрушен", "без света", "без воды", "убежищ", "спасател", "госпитал", "голод",
		"casualties", "refugees", "evacuation", "humanitarian",
	},
	model.CategoryEconomicConsequences: {
		"санкци", "рубл", "доллар", "инфляц", "цены", "цен на", "экономик", "бюджет",
		"нефт", "газопровод", "рынок", "рынк", "бирж", "курс валют", "ввп", "экспорт", "импорт",
		"sanctions", "inflation", "economy", "market",
	},
	model.CategoryPoliticalDecisions: {
		"закон", "указ", "президент", "правительств", "госдум", "выбор", "переговор",
		"министр", "дипломат", "парламент", "саммит", "кремл", "посол", "референдум",
		"election", "parliament", "negotiations", "decree",
	},
	model.CategoryInformationSocial: {
		"соцсет", "телеграм", "сми", "журналист", "протест", "митинг", "фейк", "пропаганд",
		"общественн", "опрос", "блогер", "telegram", "protest", "propaganda", "media",
	},
}

// KeywordScores counts keyword hits per category in lowercased text
func KeywordScores(text string) map[model.Category]int {
	lower := strings.ToLower(text)
	scores := make(map[model.Category]int, len(categoryKeywords))
	for category, words := range categoryKeywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				scores[category]++
			}
		}
	}
	return scores
}

// Fallback classifies by keyword hits. The category with the most hits wins;
// ties go to the earlier category in enumeration order and no hits means other.
func Fallback(title, content string) model.Classification {
	scores := KeywordScores(title + " " + content)

	best := model.CategoryOther
	bestScore := 0
	for _, c := range model.Categories {
		if scores[c] > bestScore {
			best, bestScore = c, scores[c]
		}
	}

	return model.Classification{
		Category:   best,
		Confidence: FallbackConfidence,
		Provenance: model.ProvenanceFallback,
	}
}

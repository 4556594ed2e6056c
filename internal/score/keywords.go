package score

import "github.com/ppiankov/tenscan/internal/model"

// categoryPriors is the baseline tension of each category
var categoryPriors = map[model.Category]float64{
	model.CategoryMilitaryOperations:   0.9,
	model.CategoryHumanitarianCrisis:   0.8,
	model.CategoryPoliticalDecisions:   0.6,
	model.CategoryEconomicConsequences: 0.5,
	model.CategoryInformationSocial:    0.4,
	model.CategoryOther:                0.2,
}

// Tension keyword tiers, matched as lowercase stems.
// Low-tier words signal de-escalation and subtract from the score.
var (
	highTension = []string{
		"ракетн", "удар", "обстрел", "взрыв", "жертв", "погиб", "убит", "теракт",
		"бомбардир", "атак", "катастроф", "расстрел", "killed", "explosion", "attack",
	}
	mediumTension = []string{
		"санкци", "протест", "митинг", "кризис", "конфликт", "эвакуац", "задержан",
		"арест", "угроз", "мобилизац", "беженц", "ранен", "crisis", "protest",
	}
	lowTension = []string{
		"переговор", "соглашени", "гуманитарная помощь", "восстановлен", "перемири",
		"стабилиз", "фестивал", "праздник", "ceasefire", "agreement",
	}
)

// emotionWords mark emotionally loaded language
var emotionWords = []string{
	"трагеди", "ужас", "паник", "страх", "шок", "гнев", "возмущ", "кошмар", "горе",
	"слез", "отчаян", "скорб", "истерик", "tragedy", "panic", "horror", "outrage",
}

// Urgency tiers for the spike index, weighted 3:2:1
var (
	criticalUrgency = []string{"срочно", "экстренн", "молния", "breaking", "urgent"}
	highUrgency     = []string{"немедленно", "внезапно", "впервые", "неожиданно", "тревог"}
	mediumUrgency   = []string{"важно", "заявил", "подтвердил", "сообщает", "развива"}
)

// timeMarkers point at events happening right now
var timeMarkers = []string{
	"сегодня", "сейчас", "только что", "в эти минуты", "этой ночью", "этим утром",
	"минуту назад", "час назад", "today", "right now", "just now",
}

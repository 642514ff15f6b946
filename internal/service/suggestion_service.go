package service

import (
	"regexp"
	"strings"
)

// 行业分组。
const (
	BucketGeneral = "general"
	BucketWine    = "wine"
	BucketFood    = "food"
	BucketFashion = "fashion"
	BucketTech    = "tech"
	BucketSpirits = "spirits"
)

type bucketRule struct {
	bucket  string
	pattern *regexp.Regexp
}

// 按顺序匹配，第一个命中的分组生效。"it" 需要整词匹配，否则 "digital" 之类会误判为 tech。
var bucketRules = []bucketRule{
	{BucketWine, regexp.MustCompile(`wine|winery|vine`)},
	{BucketFood, regexp.MustCompile(`food|grocery|deli|snack`)},
	{BucketFashion, regexp.MustCompile(`fashion|apparel|clothing|shoes`)},
	{BucketTech, regexp.MustCompile(`tech|software|saas|\bit\b|hardware`)},
	{BucketSpirits, regexp.MustCompile(`spirit|liquor|whisky|vodka|gin|rum`)},
}

var suggestionPacks = map[string]map[string][]string{
	"en": {
		BucketGeneral: {
			"Export regulations for your products",
			"Build a 25-company prospect list",
			"Competitor price mapping in target markets",
			"Channel strategy & margin model",
			"90-day domestic sell-in plan",
		},
		BucketWine: {
			"Importer & distributor shortlist (25)",
			"Label rules & duties by market",
			"Pitch deck outline (buyers, tech, finance)",
			"Tasting & sampling plan",
			"UK off-trade pricing ladder",
		},
		BucketFood: {
			"EU/UK labeling checklist",
			"Premium deli / specialty channels mapping",
			"Prospects list (importers/wholesalers)",
			"Incoterms & lead-time plan",
			"Quarterly promo calendar",
		},
		BucketFashion: {
			"Wholesale vs DTC channel plan",
			"Showroom & agent shortlist",
			"Returns & sizing policy (EU/US)",
			"Retailer outreach sequence",
			"Price ladder vs competitors",
		},
		BucketTech: {
			"ICP + 25 prospect accounts",
			"Demo script & qualification flow",
			"Partner program outline",
			"Localization quick wins",
			"Pricing & packaging suggestions",
		},
		BucketSpirits: {
			"Distributor mapping by market",
			"Excise & label basics",
			"Bartender outreach sequence",
			"Tasting roadshow plan",
			"Competitive positioning storyboard",
		},
	},
	"it": {
		BucketGeneral: {
			"Norme export per i tuoi prodotti",
			"Crea una lista prospect di 25 aziende",
			"Mappatura prezzi competitor nei mercati target",
			"Strategia canali e modello margini",
			"Piano sell-in domestico 90 giorni",
		},
		BucketWine: {
			"Shortlist importatori/distributori (25)",
			"Regole etichetta e dazi per mercato",
			"Struttura pitch (buyer, tecnico, finance)",
			"Piano tasting & sampling",
			"Scala prezzi off-trade UK",
		},
		BucketFood: {
			"Checklist etichettatura EU/UK",
			"Mappatura canali gourmet/specialty",
			"Lista prospect (importatori/wholesaler)",
			"Piano Incoterms & lead time",
			"Calendario promo trimestrale",
		},
		BucketFashion: {
			"Piano canali Wholesale vs DTC",
			"Shortlist showroom & agenti",
			"Policy resi & taglie (EU/US)",
			"Sequenza outreach retailer",
			"Scala prezzi vs competitor",
		},
		BucketTech: {
			"ICP + 25 account prospect",
			"Script demo & flusso qualificazione",
			"Outline programma partner",
			"Localizzazione: quick wins",
			"Suggerimenti pricing & packaging",
		},
		BucketSpirits: {
			"Mappatura distributori per mercato",
			"Basi excise & etichettatura",
			"Sequenza outreach bartender",
			"Piano degustazioni itineranti",
			"Storyboard posizionamento competitivo",
		},
	},
}

// Suggestions 是建议接口的返回结构。
type Suggestions struct {
	Suggestions []string `json:"suggestions"`
	Bucket      string   `json:"bucket"`
	Lang        string   `json:"lang"`
}

// SuggestionService 根据行业描述返回本地化的建议问题。
type SuggestionService interface {
	Suggest(sectorText, lang string) Suggestions
}

type suggestionService struct{}

// NewSuggestionService 创建一个新的 SuggestionService 实例。
func NewSuggestionService() SuggestionService {
	return suggestionService{}
}

func (suggestionService) Suggest(sectorText, lang string) Suggestions {
	lang = strings.ToLower(valueOr(lang, "en"))
	pack, ok := suggestionPacks[lang]
	if !ok {
		pack = suggestionPacks["en"]
	}
	bucket := PickBucket(sectorText)
	items, ok := pack[bucket]
	if !ok {
		items = pack[BucketGeneral]
	}
	return Suggestions{Suggestions: items, Bucket: bucket, Lang: lang}
}

// PickBucket 把自由文本的行业描述归入一个分组。
func PickBucket(sectorText string) string {
	s := strings.ToLower(sectorText)
	for _, rule := range bucketRules {
		if rule.pattern.MatchString(s) {
			return rule.bucket
		}
	}
	return BucketGeneral
}

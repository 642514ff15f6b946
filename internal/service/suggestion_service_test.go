package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickBucket(t *testing.T) {
	tests := map[string]string{
		"Family Winery":        BucketWine,
		"gourmet food exports": BucketFood,
		"Shoes & apparel":      BucketFashion,
		"B2B SaaS":             BucketTech,
		"IT services":          BucketTech,
		"digital marketing":    BucketGeneral,
		"craft gin distillery": BucketSpirits,
		"":                     BucketGeneral,
	}
	for in, want := range tests {
		assert.Equal(t, want, PickBucket(in), in)
	}
}

func TestSuggestionService_Suggest(t *testing.T) {
	svc := NewSuggestionService()

	got := svc.Suggest("wine", "IT")
	assert.Equal(t, BucketWine, got.Bucket)
	assert.Equal(t, "it", got.Lang)
	assert.Equal(t, "Shortlist importatori/distributori (25)", got.Suggestions[0])

	got = svc.Suggest("", "")
	assert.Equal(t, BucketGeneral, got.Bucket)
	assert.Equal(t, "en", got.Lang)
	assert.Len(t, got.Suggestions, 5)
}

func TestSuggestionService_UnknownLangUsesEnglishPack(t *testing.T) {
	got := NewSuggestionService().Suggest("tech", "de")

	assert.Equal(t, "de", got.Lang)
	assert.Equal(t, "ICP + 25 prospect accounts", got.Suggestions[0])
}

package language

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "english",
			text: "This residential lease agreement is entered into by the landlord and the tenant. The tenant shall pay the monthly rent on the first day of every month.",
			want: constants.LangEnglish,
		},
		{
			name: "russian",
			text: "Настоящий договор аренды заключен между арендодателем и арендатором. Арендатор обязуется ежемесячно вносить арендную плату в полном объеме.",
			want: constants.LangRussian,
		},
		{
			name: "serbian cyrillic",
			text: "Овај уговор о закупу закључен је између закуподавца и закупца. Закупац се обавезује да плаћа закупнину сваког месеца најкасније до петог дана у месецу.",
			want: constants.LangSerbian,
		},
		{
			name: "french",
			text: "Le présent contrat de bail est conclu entre le bailleur et le locataire. Le locataire s'engage à payer le loyer chaque mois avant le cinquième jour.",
			want: constants.LangFrench,
		},
		{name: "too short", text: "Lease", want: constants.LangEnglish},
		{name: "empty", text: "", want: constants.LangEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, conf := Detect(tt.text)
			assert.Equal(t, tt.want, lang)
			assert.Greater(t, conf, 0.0)
			assert.LessOrEqual(t, conf, 1.0)
		})
	}
}

func TestDetect_ShortTextHasDefaultConfidence(t *testing.T) {
	_, conf := Detect("hi")
	assert.Equal(t, 0.5, conf)
}

func TestDetectGoverningLanguage(t *testing.T) {
	g := DetectGoverningLanguage("This document is translated from Serbian. Serbian version prevails.", constants.LangEnglish)
	assert.True(t, g.IsTranslation)
	assert.Equal(t, constants.LangSerbian, g.GoverningLanguage)
	assert.False(t, g.HasOriginalAttached)
	assert.Contains(t, g.Notes, "Translation indicator found: 'translated from'")
	assert.Contains(t, g.Notes, "; ")

	g = DetectGoverningLanguage("Plain lease text.", constants.LangFrench)
	assert.False(t, g.IsTranslation)
	assert.Equal(t, constants.LangFrench, g.GoverningLanguage)
	assert.Equal(t, "No translation indicators found", g.Notes)

	g = DetectGoverningLanguage("Translation of the original, which is attached hereto.", constants.LangEnglish)
	assert.True(t, g.IsTranslation)
	assert.True(t, g.HasOriginalAttached)
}

func TestDetectJurisdiction(t *testing.T) {
	assert.Equal(t, "Serbia", DetectJurisdiction("Governed by Serbian law. Courts in Belgrade have jurisdiction."))
	assert.Equal(t, "France", DetectJurisdiction("Soumis au droit français, tribunaux de Paris."))
	assert.Equal(t, "United States", DetectJurisdiction("The laws of the State of New York, USA apply."))
	assert.Equal(t, "", DetectJurisdiction("The usage of the premises is residential only."))
	// one hit each; earlier entry wins
	assert.Equal(t, "Serbia", DetectJurisdiction("Belgrade office and Paris office."))
}

func TestEstimateTimezone(t *testing.T) {
	assert.Equal(t, "Europe/Belgrade", EstimateTimezone("Serbia"))
	assert.Equal(t, "America/New_York", EstimateTimezone("united states"))
	assert.Equal(t, "", EstimateTimezone("Atlantis"))
	assert.Equal(t, "", EstimateTimezone(""))
}

func TestDetectStructure(t *testing.T) {
	text := strings.Join([]string{
		"LEASE AGREEMENT",
		"1. Parties",
		"2. Term",
		"3. Payment",
		"4. Termination",
		"5. Liability",
		"6. Governing Law",
	}, "\n")

	s := DetectStructure(text)
	assert.True(t, s.HasNumbering)
	assert.True(t, s.HasHeadings)
	assert.True(t, s.AppearsComplete)
	assert.ElementsMatch(t, []string{"parties", "term", "payment", "termination", "liability", "governing law"}, s.Sections)
}

func TestDetectStructure_Incomplete(t *testing.T) {
	s := DetectStructure("The tenant agrees to the payment schedule.")
	assert.False(t, s.AppearsComplete)
	assert.False(t, s.HasNumbering)
	assert.False(t, s.HasArticles)
	assert.False(t, s.HasHeadings)
	assert.Equal(t, []string{"payment"}, s.Sections)
}

func TestDetectStructure_Articles(t *testing.T) {
	s := DetectStructure("Статья 1 Стороны. Статья 2 Срок.")
	assert.True(t, s.HasArticles)
	assert.True(t, s.HasHeadings)
	assert.Contains(t, s.Sections, "стороны")
}

func TestExtractReferencedDocuments(t *testing.T) {
	text := "See Exhibit A and Schedule 2. The inventory is in exhibit a. Annexe B applies, as does Приложение 1."
	got := ExtractReferencedDocuments(text)
	assert.Equal(t, []string{"Exhibit A", "Schedule 2", "Annexe B", "Приложение 1"}, got)

	assert.Empty(t, ExtractReferencedDocuments("No attachments here"))
	assert.NotNil(t, ExtractReferencedDocuments(""))
}

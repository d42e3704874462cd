package constants

// Output and detection languages.
const (
	LangEnglish = "english"
	LangRussian = "russian"
	LangSerbian = "serbian"
	LangFrench  = "french"
)

var SupportedLanguages = []string{LangEnglish, LangRussian, LangSerbian, LangFrench}

func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

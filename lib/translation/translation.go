package translation

import (
	"github.com/leonelquinteros/gotext"
	"strings"
)

const domain = "default"

// Configure loads <dir>/<lang>/LC_MESSAGES/default.po. Missing files leave msgids untranslated.
func Configure(dir, lang string) {
	gotext.Configure(dir, strings.ToLower(lang), domain)
}

func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

// Translate returns the translation of msgID, or msgID itself when none is loaded.
func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}

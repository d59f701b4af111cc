package i18n

import (
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/scamguard/resources"
)

const (
	translationsPath = "i18n/translations.yml"
	defaultLanguage  = "en"
)

var state = struct {
	once         sync.Once
	translations map[string]map[string]string
}{}

func load() {
	state.translations = make(map[string]map[string]string)

	content, err := resources.FS.ReadFile(translationsPath)
	if err != nil {
		log.WithError(err).Errorln("cant load i18n")
		return
	}
	if err := yaml.Unmarshal(content, &state.translations); err != nil {
		log.WithError(err).Errorln("cant unmarshal i18n")
	}
}

// Get returns the translation of key for lang; English keys are their own
// translation, and a missing entry falls back to the key.
func Get(key, lang string) string {
	lang = strings.ToUpper(strings.TrimSpace(lang))
	if lang == "" || strings.EqualFold(lang, defaultLanguage) {
		return key
	}
	state.once.Do(load)

	if res, ok := state.translations[key][lang]; ok && res != "" {
		return res
	}
	log.Tracef(`no translation for key "%s"`, key)
	return key
}

// GetLanguagesList returns the codes the bot has translations for.
func GetLanguagesList() []string {
	list := make([]string, 0, len(languageNames))
	for code := range languageNames {
		list = append(list, code)
	}
	sort.Strings(list)
	return list
}

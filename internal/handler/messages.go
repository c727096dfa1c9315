package handler

import (
	"embed"
	"fmt"
	"net/http"
	"path"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/eventreg/internal/service"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// supportedTags lists the hint languages. The first entry is the fallback.
var supportedTags = []language.Tag{language.English, language.BrazilianPortuguese}

var matcher = language.NewMatcher(supportedTags)

func init() {
	if err := registerHints(); err != nil {
		panic(err)
	}
}

// registerHints loads every locale file into the default x/text catalog,
// keyed by failure kind.
func registerHints() error {
	for _, tag := range supportedTags {
		name := path.Join("locales", tag.String()+".yaml")
		data, err := localeFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		var hints map[string]string
		if err := yaml.Unmarshal(data, &hints); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for key, msg := range hints {
			if err := message.SetString(tag, key, msg); err != nil {
				return fmt.Errorf("register %s/%s: %w", tag, key, err)
			}
		}
	}
	return nil
}

// ResolveTag picks the best supported language from Accept-Language.
func ResolveTag(r *http.Request) language.Tag {
	accept := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if accept == "" {
		return supportedTags[0]
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return supportedTags[0]
	}
	_, idx, _ := matcher.Match(tags...)
	return supportedTags[idx]
}

// Hint returns a short localized suggestion for the failure kind, or an
// empty string for kinds without a catalog entry.
func Hint(r *http.Request, kind service.Kind) string {
	key := string(kind)
	msg := message.NewPrinter(ResolveTag(r)).Sprintf(key)
	if msg == key {
		return ""
	}
	return msg
}

// Package i18n loads the translated guard and editor messages and resolves
// the language a request should be answered in.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the source locale every catalog key must exist in
const BaseLocale = "en-US"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds every locale's messages keyed by message key
type Bundle struct {
	locales map[string]map[string]string
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

var (
	defaultBundle = mustLoadAndRegister()
	supportedTags = buildSupportedTags(defaultBundle)
	matcher       = language.NewMatcher(supportedTags)
)

// Default returns the embedded bundle, already registered with x/text
func Default() *Bundle {
	return defaultBundle
}

// LoadFromFS reads locales/<locale>/<namespace>.yaml files
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]map[string]string{}}
	for _, path := range paths {
		data, err := fs.ReadFile(catalogFS, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		if err := b.addFile(path, file); err != nil {
			return nil, err
		}
	}

	if !b.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	base := b.locales[BaseLocale]
	for locale, messages := range b.locales {
		for key := range messages {
			if _, ok := base[key]; !ok {
				return nil, fmt.Errorf("locale %s: key %q missing from base locale", locale, key)
			}
		}
	}
	return b, nil
}

func (b *Bundle) addFile(path string, file catalogFile) error {
	localeFromPath := filepath.Base(filepath.Dir(path))
	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", path)
	}
	if locale != localeFromPath {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", path, locale, localeFromPath)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages map is required", path)
	}

	messages, ok := b.locales[locale]
	if !ok {
		messages = map[string]string{}
		b.locales[locale] = messages
	}
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", path)
		}
		if _, exists := messages[key]; exists {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %q", path, key, locale)
		}
		messages[key] = value
	}
	return nil
}

// Register installs every message into the x/text default catalog, under the
// exact locale tag and its base language.
func (b *Bundle) Register() error {
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		tags := []language.Tag{tag}
		if base, conf := tag.Base(); conf != language.No {
			if baseTag, err := language.Parse(base.String()); err == nil && baseTag != tag {
				tags = append(tags, baseTag)
			}
		}
		for key, value := range b.locales[locale] {
			for _, t := range tags {
				if err := message.SetString(t, key, value); err != nil {
					return fmt.Errorf("register %s/%s: %w", t, key, err)
				}
			}
		}
	}
	return nil
}

// HasLocale reports whether the locale exists in this bundle
func (b *Bundle) HasLocale(locale string) bool {
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Locales returns all locale identifiers, sorted
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Message returns the raw, unformatted message with base-locale fallback
func (b *Bundle) Message(locale, key string) (string, bool) {
	if messages, ok := b.locales[strings.TrimSpace(locale)]; ok {
		if value, ok := messages[key]; ok {
			return value, true
		}
	}
	value, ok := b.locales[BaseLocale][key]
	return value, ok
}

// SupportedTags returns the locales a request can be answered in
func SupportedTags() []language.Tag {
	out := make([]language.Tag, len(supportedTags))
	copy(out, supportedTags)
	return out
}

// DefaultTag is the language used when nothing better matches
func DefaultTag() language.Tag {
	return language.MustParse(BaseLocale)
}

// MatchTags picks the best supported tag for the preferred list
func MatchTags(preferred ...language.Tag) language.Tag {
	if len(preferred) == 0 {
		return DefaultTag()
	}
	_, idx, conf := matcher.Match(preferred...)
	if conf == language.No {
		return DefaultTag()
	}
	return supportedTags[idx]
}

// ParseTag resolves a raw locale string to a supported tag
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Tag{}, false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return language.Tag{}, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.Tag{}, false
	}
	return supportedTags[idx], true
}

// Printer returns a message printer for a supported tag
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

func buildSupportedTags(b *Bundle) []language.Tag {
	// base locale first so the matcher falls back to it
	tags := []language.Tag{language.MustParse(BaseLocale)}
	for _, locale := range b.Locales() {
		if locale == BaseLocale {
			continue
		}
		tags = append(tags, language.MustParse(locale))
	}
	return tags
}

func mustLoadAndRegister() *Bundle {
	b, err := LoadFromFS(embeddedFS)
	if err != nil {
		panic(err)
	}
	if err := b.Register(); err != nil {
		panic(err)
	}
	return b
}

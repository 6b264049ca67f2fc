// Package i18n answers the engine's requests for translated stock strings
// from YAML catalogs.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/chatcore/internal/errors"
)

//go:embed catalogs/*.yaml
var builtin embed.FS

// CatalogFile is the on-disk form of a catalog.
type CatalogFile struct {
	// Language is a BCP 47 tag (e.g., "en", "pt-BR")
	Language string `yaml:"language"`
	// Version is the catalog file format version (currently "1")
	Version string `yaml:"version"`
	// Strings maps stock string ids to their text
	Strings map[uint32]string `yaml:"strings"`
}

// Validate checks that the catalog file is well-formed.
func (f *CatalogFile) Validate() error {
	if f.Language == "" {
		return errors.New("catalog language is required")
	}
	if _, err := language.Parse(f.Language); err != nil {
		return fmt.Errorf("invalid catalog language %q: %w", f.Language, err)
	}
	if f.Version != "1" {
		return fmt.Errorf("unsupported catalog version: %q (supported: 1)", f.Version)
	}
	for id, text := range f.Strings {
		if id == 0 {
			return errors.New("stock string id 0 is reserved")
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("stock string %d is empty", id)
		}
	}
	return nil
}

// Catalog holds the stock strings of one language.
type Catalog struct {
	tag     language.Tag
	strings map[uint32]string
}

// Language returns the catalog's language tag.
func (c *Catalog) Language() language.Tag { return c.tag }

// String returns the text for id.
func (c *Catalog) String(id uint32) (string, bool) {
	s, ok := c.strings[id]
	return s, ok
}

// Len returns the number of strings in the catalog.
func (c *Catalog) Len() int { return len(c.strings) }

// ParseCatalog decodes and validates a catalog. Texts are stored in NFC.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f CatalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	c := &Catalog{
		tag:     language.Make(f.Language),
		strings: make(map[uint32]string, len(f.Strings)),
	}
	for id, text := range f.Strings {
		c.strings[id] = norm.NFC.String(text)
	}
	return c, nil
}

// Bundle is a set of catalogs with language matching. English is always
// present and is the fallback for unmatched languages.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[language.Tag]*Catalog
	matcher  language.Matcher
}

// NewBundle returns a bundle with the built-in catalogs.
func NewBundle() (*Bundle, error) {
	b := &Bundle{catalogs: make(map[language.Tag]*Catalog)}
	if err := b.loadFS(builtin, "catalogs"); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadDir adds every *.yaml catalog in dir. A catalog for a language that is
// already present replaces individual strings and keeps the others.
func (b *Bundle) LoadDir(dir string) error {
	return b.loadFS(os.DirFS(dir), ".")
}

func (b *Bundle) loadFS(fsys fs.FS, dir string) error {
	matches, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(dir, "*.yaml")))
	if err != nil {
		return err
	}
	sort.Strings(matches)
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading catalog %s: %w", name, err)
		}
		c, err := ParseCatalog(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		b.Add(c)
	}
	return nil
}

// Add merges c into the bundle.
func (b *Bundle) Add(c *Catalog) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.catalogs[c.tag]; ok {
		for id, text := range c.strings {
			existing.strings[id] = text
		}
	} else {
		b.catalogs[c.tag] = c
	}
	b.matcher = nil
}

// Languages returns the tags of all loaded catalogs, English first.
func (b *Bundle) Languages() []language.Tag {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tagsLocked()
}

func (b *Bundle) tagsLocked() []language.Tag {
	tags := make([]language.Tag, 0, len(b.catalogs))
	if _, ok := b.catalogs[language.English]; ok {
		tags = append(tags, language.English)
	}
	var rest []language.Tag
	for tag := range b.catalogs {
		if tag != language.English {
			rest = append(rest, tag)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].String() < rest[j].String() })
	return append(tags, rest...)
}

// Match returns the catalog that best serves the given language preferences,
// e.g. "de-AT" or an Accept-Language style list "fr-CH, fr;q=0.9".
func (b *Bundle) Match(prefs string) *Catalog {
	b.mu.Lock()
	defer b.mu.Unlock()

	tags := b.tagsLocked()
	if len(tags) == 0 {
		return &Catalog{tag: language.Und, strings: map[uint32]string{}}
	}
	if b.matcher == nil {
		b.matcher = language.NewMatcher(tags)
	}
	want, _, err := language.ParseAcceptLanguage(prefs)
	if err != nil || len(want) == 0 {
		return b.catalogs[tags[0]]
	}
	_, idx, _ := b.matcher.Match(want...)
	return b.catalogs[tags[idx]]
}

// Translator resolves stock strings for one preferred language and falls
// back to English for ids the preferred catalog lacks.
type Translator struct {
	primary  *Catalog
	fallback *Catalog
}

// NewTranslator builds a Translator for prefs.
func (b *Bundle) NewTranslator(prefs string) *Translator {
	t := &Translator{primary: b.Match(prefs)}
	b.mu.RLock()
	t.fallback = b.catalogs[language.English]
	b.mu.RUnlock()
	return t
}

// Language returns the language of the primary catalog.
func (t *Translator) Language() language.Tag { return t.primary.tag }

// Translate returns the text for a stock string id.
func (t *Translator) Translate(id uint32) (string, bool) {
	if s, ok := t.primary.String(id); ok {
		return s, true
	}
	if t.fallback != nil {
		return t.fallback.String(id)
	}
	return "", false
}

// Preferences returns configured when it is set and otherwise derives a
// language tag from the POSIX locale variables, so "de_DE.UTF-8" becomes
// "de-DE". The result is suitable for Match and NewTranslator.
func Preferences(configured string) string {
	if configured != "" {
		return configured
	}
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return ""
}

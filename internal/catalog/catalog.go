// Package catalog provides the read-only field catalog: the mapping from
// field identifiers to semantic kinds, localized voice prompts, and localized
// confirmation/error message sets.
//
// Catalog data is plain YAML so new languages and fields can be added without
// touching validation logic. A default catalog covering the common personal
// information fields in twelve Indian languages is embedded in the binary;
// deployments can override it with their own files.
//
// Lookups never fail: an unknown language falls back to English, an unknown
// field falls back to a generic prompt synthesized from the field identifier.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed data/prompts.yaml data/messages.yaml
var defaultData embed.FS

// MessageSet holds the localized response variants for one field in one
// language. Confirm and Success are templates with exactly one %s placeholder
// that receives the transcript; Error is static guidance text.
type MessageSet struct {
	Confirm string `yaml:"confirm"`
	Success string `yaml:"success"`
	Error   string `yaml:"error"`
}

// PromptFile is the top-level structure of a prompt catalog YAML file.
//
// Example:
//
//	prompts:
//	  name:
//	    en: "Please tell me your full name"
//	    hi: "कृपया अपना पूरा नाम बताएं"
//	generic_prompts:
//	  en: "Please provide your %s"
type PromptFile struct {
	// Prompts maps field identifier to language key to prompt text.
	Prompts map[string]map[string]string `yaml:"prompts"`

	// GenericPrompts maps language key to a sentence template with exactly
	// one %s placeholder for the human-readable field label.
	GenericPrompts map[string]string `yaml:"generic_prompts"`
}

// MessageFile is the top-level structure of a message catalog YAML file.
type MessageFile struct {
	// Messages maps field identifier to language key to its message set.
	Messages map[string]map[string]MessageSet `yaml:"messages"`

	// FileUploadMessage is the fixed instruction returned for file fields.
	FileUploadMessage string `yaml:"file_upload_message"`
}

// Catalog is an immutable, validated prompt and message lookup table.
// It is safe for concurrent use.
type Catalog struct {
	prompts           map[string]map[string]string
	genericPrompts    map[string]string
	messages          map[string]map[string]MessageSet
	fileUploadMessage string
}

// LoadPromptFile reads and parses a prompt catalog YAML file from disk.
func LoadPromptFile(path string) (*PromptFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open prompt file %q: %w", path, err)
	}
	defer f.Close()

	pf, err := LoadPromptsFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse prompt file %q: %w", path, err)
	}
	return pf, nil
}

// LoadPromptsFromReader parses prompt catalog YAML from an [io.Reader].
func LoadPromptsFromReader(r io.Reader) (*PromptFile, error) {
	var pf PromptFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown top-level keys to catch typos
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("catalog: decode prompt yaml: %w", err)
	}
	return &pf, nil
}

// LoadMessageFile reads and parses a message catalog YAML file from disk.
func LoadMessageFile(path string) (*MessageFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open message file %q: %w", path, err)
	}
	defer f.Close()

	mf, err := LoadMessagesFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse message file %q: %w", path, err)
	}
	return mf, nil
}

// LoadMessagesFromReader parses message catalog YAML from an [io.Reader].
func LoadMessagesFromReader(r io.Reader) (*MessageFile, error) {
	var mf MessageFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&mf); err != nil {
		return nil, fmt.Errorf("catalog: decode message yaml: %w", err)
	}
	return &mf, nil
}

// New builds a Catalog from parsed prompt and message files.
// Returns an error describing every validation problem found.
func New(pf *PromptFile, mf *MessageFile) (*Catalog, error) {
	if pf == nil || mf == nil {
		return nil, fmt.Errorf("catalog: prompt and message files must not be nil")
	}
	c := &Catalog{
		prompts:           pf.Prompts,
		genericPrompts:    pf.GenericPrompts,
		messages:          mf.Messages,
		fileUploadMessage: mf.FileUploadMessage,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate checks the structural invariants the lookup methods rely on.
// All problems are collected and joined so a broken catalog file reports
// everything at once.
func (c *Catalog) validate() error {
	var errs []error

	if _, ok := c.genericPrompts[fallbackLanguage]; !ok {
		errs = append(errs, fmt.Errorf("catalog: generic_prompts missing %q entry", fallbackLanguage))
	}
	for lang, tmpl := range c.genericPrompts {
		if strings.Count(tmpl, "%s") != 1 {
			errs = append(errs, fmt.Errorf("catalog: generic_prompts[%s] must contain exactly one %%s placeholder", lang))
		}
	}
	for fieldID, byLang := range c.prompts {
		if _, ok := byLang[fallbackLanguage]; !ok {
			errs = append(errs, fmt.Errorf("catalog: prompts[%s] missing %q entry", fieldID, fallbackLanguage))
		}
	}
	for fieldID, byLang := range c.messages {
		if _, ok := byLang[fallbackLanguage]; !ok {
			errs = append(errs, fmt.Errorf("catalog: messages[%s] missing %q entry", fieldID, fallbackLanguage))
		}
		for lang, set := range byLang {
			if strings.Count(set.Confirm, "%s") != 1 {
				errs = append(errs, fmt.Errorf("catalog: messages[%s][%s].confirm must contain exactly one %%s placeholder", fieldID, lang))
			}
			if set.Error == "" {
				errs = append(errs, fmt.Errorf("catalog: messages[%s][%s].error must not be empty", fieldID, lang))
			}
		}
	}
	if _, ok := c.messages[fallbackFieldID]; !ok {
		errs = append(errs, fmt.Errorf("catalog: messages missing fallback field %q", fallbackFieldID))
	}
	if c.fileUploadMessage == "" {
		errs = append(errs, errors.New("catalog: file_upload_message must not be empty"))
	}

	return errors.Join(errs...)
}

const (
	// fallbackLanguage is the language key used when a requested language has
	// no localized entry.
	fallbackLanguage = "en"

	// fallbackFieldID is the message table used for field identifiers without
	// a dedicated entry. Unknown fields keep the name field's wording.
	fallbackFieldID = "name"
)

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultPromptFile parses the embedded prompt catalog. It panics if the
// embedded data is invalid, which can only happen through a broken build.
func DefaultPromptFile() *PromptFile {
	pr, err := defaultData.Open("data/prompts.yaml")
	if err != nil {
		panic(fmt.Sprintf("catalog: open embedded prompts: %v", err))
	}
	defer pr.Close()
	pf, err := LoadPromptsFromReader(pr)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded prompts: %v", err))
	}
	return pf
}

// DefaultMessageFile parses the embedded message catalog. It panics if the
// embedded data is invalid.
func DefaultMessageFile() *MessageFile {
	mr, err := defaultData.Open("data/messages.yaml")
	if err != nil {
		panic(fmt.Sprintf("catalog: open embedded messages: %v", err))
	}
	defer mr.Close()
	mf, err := LoadMessagesFromReader(mr)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded messages: %v", err))
	}
	return mf
}

// Default returns the embedded catalog. It panics if the embedded data is
// invalid, which can only happen through a broken build.
func Default() *Catalog {
	defaultOnce.Do(func() {
		var err error
		defaultCatalog, err = New(DefaultPromptFile(), DefaultMessageFile())
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded catalog invalid: %v", err))
		}
	})
	return defaultCatalog
}

// PrimarySubtag reduces a BCP-47-like language tag to its primary subtag
// ("hi-IN" to "hi"). An empty tag stays empty; callers treat that as a
// lookup miss and fall back to English.
func PrimarySubtag(tag string) string {
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		return tag[:i]
	}
	return tag
}

// ResolvePrompt returns the localized question to ask the user for fieldID.
//
// Fields with a dedicated prompt entry use it, falling back to English when
// the requested language is absent. All other fields get a generic sentence
// synthesized around a human-readable label derived from the identifier.
// ResolvePrompt always returns a non-empty string.
func (c *Catalog) ResolvePrompt(fieldID, language string) string {
	lang := PrimarySubtag(language)

	if byLang, ok := c.prompts[fieldID]; ok {
		if p, ok := byLang[lang]; ok {
			return p
		}
		return byLang[fallbackLanguage]
	}

	tmpl, ok := c.genericPrompts[lang]
	if !ok {
		tmpl = c.genericPrompts[fallbackLanguage]
	}
	return fmt.Sprintf(tmpl, FieldLabel(fieldID))
}

// MessagesFor returns the message set for fieldID in the requested language.
// The second return value reports whether fieldID has a dedicated entry;
// unknown fields reuse the name field's wording so callers can still produce
// a displayable response.
func (c *Catalog) MessagesFor(fieldID, language string) (MessageSet, bool) {
	lang := PrimarySubtag(language)

	byLang, known := c.messages[fieldID]
	if !known {
		byLang = c.messages[fallbackFieldID]
	}
	if set, ok := byLang[lang]; ok {
		return set, known
	}
	return byLang[fallbackLanguage], known
}

// FileUploadMessage returns the fixed instruction shown for file fields.
func (c *Catalog) FileUploadMessage() string {
	return c.fileUploadMessage
}

// Languages returns the language keys for which generic prompts exist,
// in no particular order.
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.genericPrompts))
	for lang := range c.genericPrompts {
		langs = append(langs, lang)
	}
	return langs
}

// FieldLabel derives a human-readable label from a field identifier by
// replacing underscores with spaces and breaking camelCase words apart.
// "father_name" becomes "father name", "aadhaarNumber" becomes "aadhaar Number".
func FieldLabel(fieldID string) string {
	var b strings.Builder
	b.Grow(len(fieldID) + 4)
	for _, r := range fieldID {
		switch {
		case r == '_':
			b.WriteByte(' ')
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

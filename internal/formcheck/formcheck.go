// Package formcheck runs rule-based validation over a completed form:
// format checks keyed off field identifiers, cross-field consistency checks,
// and per-service business rules.
//
// The checks are deliberately synchronous and deterministic. Anything a rule
// cannot decide (an unparseable date, an unfamiliar field) passes silently
// rather than blocking the applicant.
//
// Issue messages live in an embedded YAML table keyed by machine-readable
// code and language, with English as the fallback. Deployments can load
// their own table to add languages without rebuilding.
package formcheck

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/openseva/vaani/internal/catalog"
)

//go:embed data/issues.yaml
var defaultData embed.FS

// Severity classifies how serious an issue is. Errors make the form invalid;
// warnings are surfaced but do not block submission.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in the form.
type Issue struct {
	FieldID    string   `json:"fieldId"`
	FieldLabel string   `json:"fieldLabel"`
	Severity   Severity `json:"severity"`

	// Code is a stable machine-readable identifier such as "INVALID_PHONE".
	Code string `json:"code"`

	// Message is localized to the applicant's language.
	Message string `json:"message"`

	// MessageEn is always English, for logs and downstream tooling.
	MessageEn string `json:"messageEn"`

	// Suggestion is an optional fix hint, always English.
	Suggestion string `json:"suggestion,omitempty"`
}

// Result is the outcome of validating one form.
type Result struct {
	// IsValid is true when no error-severity issues were found.
	IsValid bool    `json:"isValid"`
	Issues  []Issue `json:"issues"`
}

// Field describes one field of a service form, as declared by the caller.
type Field struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Type         string `json:"type,omitempty"`
	RequiresFile bool   `json:"requiresFile,omitempty"`
}

// IssueFile is the top-level structure of an issue message YAML file.
//
// Example:
//
//	issues:
//	  INVALID_PHONE:
//	    en: "Phone number must be exactly 10 digits."
//	    hi: "फ़ोन नंबर 10 अंकों का होना चाहिए।"
type IssueFile struct {
	// Issues maps issue code to language key to localized message.
	Issues map[string]map[string]string `yaml:"issues"`
}

// Checker validates forms against the built-in rule set. It is immutable
// and safe for concurrent use.
type Checker struct {
	messages map[string]map[string]string
}

// LoadIssueFile reads and parses an issue message YAML file from disk.
func LoadIssueFile(path string) (*IssueFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("formcheck: open issue file %q: %w", path, err)
	}
	defer f.Close()

	inf, err := LoadIssuesFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("formcheck: parse issue file %q: %w", path, err)
	}
	return inf, nil
}

// LoadIssuesFromReader parses issue message YAML from an [io.Reader].
func LoadIssuesFromReader(r io.Reader) (*IssueFile, error) {
	var inf IssueFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&inf); err != nil {
		return nil, fmt.Errorf("formcheck: decode issue yaml: %w", err)
	}
	return &inf, nil
}

// knownCodes are the issue codes the rule set emits from the message table.
// Service-specific rules carry their own English wording and are not listed.
var knownCodes = []string{
	CodeInvalidPhone,
	CodeInvalidPhoneStart,
	CodeInvalidAadhaar,
	CodeInvalidPAN,
	CodeInvalidPIN,
	CodeInvalidEmail,
	CodeAgeTooYoung,
	CodeAgeFutureDOB,
	CodeAgeFieldMismatch,
	CodeMissingRequired,
}

// New builds a Checker from a parsed issue message file.
// Returns an error describing every validation problem found.
func New(inf *IssueFile) (*Checker, error) {
	if inf == nil {
		return nil, fmt.Errorf("formcheck: issue file must not be nil")
	}

	var errs []error
	for _, code := range knownCodes {
		byLang, ok := inf.Issues[code]
		if !ok {
			errs = append(errs, fmt.Errorf("formcheck: issues missing code %q", code))
			continue
		}
		if byLang[fallbackLanguage] == "" {
			errs = append(errs, fmt.Errorf("formcheck: issues[%s] missing %q entry", code, fallbackLanguage))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Checker{messages: inf.Issues}, nil
}

const fallbackLanguage = "en"

var (
	defaultOnce    sync.Once
	defaultChecker *Checker
)

// Default returns the Checker backed by the embedded message table. It panics
// if the embedded data is invalid, which can only happen through a broken
// build.
func Default() *Checker {
	defaultOnce.Do(func() {
		r, err := defaultData.Open("data/issues.yaml")
		if err != nil {
			panic(fmt.Sprintf("formcheck: open embedded issues: %v", err))
		}
		defer r.Close()
		inf, err := LoadIssuesFromReader(r)
		if err != nil {
			panic(fmt.Sprintf("formcheck: embedded issues: %v", err))
		}
		defaultChecker, err = New(inf)
		if err != nil {
			panic(fmt.Sprintf("formcheck: embedded issues invalid: %v", err))
		}
	})
	return defaultChecker
}

// message returns the localized text for code, falling back to English.
func (c *Checker) message(code, language string) string {
	byLang, ok := c.messages[code]
	if !ok {
		return "Invalid input"
	}
	if m, ok := byLang[catalog.PrimarySubtag(language)]; ok && m != "" {
		return m
	}
	return byLang[fallbackLanguage]
}

// messageEn returns the English text for code.
func (c *Checker) messageEn(code string) string {
	return c.message(code, fallbackLanguage)
}

// optionalMarkers are label fragments that mark a field as not required.
var optionalMarkers = []string{
	"optional", "(optional)", "if applicable", "if any", "if available",
}

// Validate runs every rule over the form and returns the deduplicated
// issue list. values is keyed by field id; language is a BCP-47-like tag;
// serviceID selects minimum-age and business rules, zero means no service.
func (c *Checker) Validate(fields []Field, values map[string]string, language string, serviceID int) Result {
	var issues []Issue
	minAge := serviceMinAge[serviceID]

	// Required fields. File fields are excluded because uploads are
	// collected through a separate flow.
	for _, f := range fields {
		if f.RequiresFile || f.Type == "file" {
			continue
		}
		label := strings.ToLower(f.Label)
		optional := false
		for _, marker := range optionalMarkers {
			if strings.Contains(label, marker) {
				optional = true
				break
			}
		}
		if optional {
			continue
		}
		if strings.TrimSpace(values[f.ID]) == "" {
			issues = append(issues, Issue{
				FieldID:    f.ID,
				FieldLabel: f.Label,
				Severity:   SeverityError,
				Code:       CodeMissingRequired,
				Message:    c.message(CodeMissingRequired, language),
				MessageEn:  fmt.Sprintf("Field %q is required but empty.", f.Label),
			})
		}
	}

	// Per-field format checks. Keyword matching on the identifier keeps the
	// rule set independent of any particular service's field naming.
	for _, f := range fields {
		value := values[f.ID]
		if strings.TrimSpace(value) == "" {
			continue
		}
		id := strings.ToLower(f.ID)
		switch {
		case matchesAny(id, phoneFieldIDs):
			issues = append(issues, c.checkPhone(f, value, language)...)
		case matchesAny(id, aadhaarFieldIDs):
			issues = append(issues, c.checkAadhaar(f, value, language)...)
		case matchesAny(id, panFieldIDs):
			issues = append(issues, c.checkPAN(f, value, language)...)
		case matchesAny(id, pinFieldIDs):
			issues = append(issues, c.checkPIN(f, value, language)...)
		case matchesAny(id, emailFieldIDs):
			issues = append(issues, c.checkEmail(f, value, language)...)
		case matchesAny(id, dobFieldIDs):
			issues = append(issues, c.checkDOB(f, value, language, minAge)...)
		}
	}

	issues = append(issues, c.crossCheckAgeAgainstDOB(values, language)...)
	issues = append(issues, c.runServiceRules(serviceID, values)...)

	issues = dedupe(issues)
	valid := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			valid = false
			break
		}
	}
	return Result{IsValid: valid, Issues: issues}
}

// dedupe collapses issues that share a field id and code, preferring the
// error-severity copy. Input order is preserved.
func dedupe(issues []Issue) []Issue {
	index := make(map[string]int, len(issues))
	out := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		key := issue.FieldID + ":" + issue.Code
		if i, ok := index[key]; ok {
			if issue.Severity == SeverityError {
				out[i] = issue
			}
			continue
		}
		index[key] = len(out)
		out = append(out, issue)
	}
	return out
}

func matchesAny(id string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(id, k) {
			return true
		}
	}
	return false
}

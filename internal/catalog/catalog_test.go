package catalog

import (
	"strings"
	"testing"
)

func TestResolvePromptKnownField(t *testing.T) {
	t.Parallel()
	c := Default()

	got := c.ResolvePrompt("name", "hi-IN")
	want := "कृपया अपना पूरा नाम बताएं"
	if got != want {
		t.Errorf("ResolvePrompt(name, hi-IN) = %q, want %q", got, want)
	}
}

func TestResolvePromptLanguageFallback(t *testing.T) {
	t.Parallel()
	c := Default()

	unsupported := c.ResolvePrompt("phone", "xx-YY")
	english := c.ResolvePrompt("phone", "en-US")
	if unsupported != english {
		t.Errorf("unsupported language prompt %q differs from English %q", unsupported, english)
	}
}

func TestResolvePromptEmptyLanguage(t *testing.T) {
	t.Parallel()
	c := Default()

	got := c.ResolvePrompt("email", "")
	want := c.ResolvePrompt("email", "en-IN")
	if got != want {
		t.Errorf("empty language prompt %q, want English %q", got, want)
	}
}

func TestResolvePromptGenericFallback(t *testing.T) {
	t.Parallel()
	c := Default()

	got := c.ResolvePrompt("father_name", "en-IN")
	if got == "" {
		t.Fatal("generic prompt must not be empty")
	}
	if !strings.Contains(got, "father name") {
		t.Errorf("generic prompt %q does not contain humanized label", got)
	}
}

func TestResolvePromptNeverEmpty(t *testing.T) {
	t.Parallel()
	c := Default()

	fields := []string{"name", "email", "phone", "address", "gender", "dob",
		"aadhaar_number", "completely_made_up_field", ""}
	languages := []string{"en-IN", "hi-IN", "te-IN", "xx", ""}
	for _, f := range fields {
		for _, l := range languages {
			if got := c.ResolvePrompt(f, l); got == "" {
				t.Errorf("ResolvePrompt(%q, %q) returned empty string", f, l)
			}
		}
	}
}

func TestMessagesForUnknownFieldFallsBack(t *testing.T) {
	t.Parallel()
	c := Default()

	set, known := c.MessagesFor("some_unknown_field", "en-IN")
	if known {
		t.Error("unknown field reported as known")
	}
	nameSet, _ := c.MessagesFor("name", "en-IN")
	if set != nameSet {
		t.Errorf("unknown field message set %+v, want name field's %+v", set, nameSet)
	}
}

func TestMessagesForLanguageFallback(t *testing.T) {
	t.Parallel()
	c := Default()

	set, known := c.MessagesFor("phone", "xx-YY")
	if !known {
		t.Error("phone reported as unknown field")
	}
	enSet, _ := c.MessagesFor("phone", "en-IN")
	if set != enSet {
		t.Errorf("unsupported language message set %+v, want English %+v", set, enSet)
	}
}

func TestFieldLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"father_name", "father name"},
		{"aadhaarNumber", "aadhaar Number"},
		{"name", "name"},
		{"annual_income", "annual income"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := FieldLabel(tc.in); got != tc.want {
			t.Errorf("FieldLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPrimarySubtag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"hi-IN", "hi"},
		{"en", "en"},
		{"", ""},
		{"ta-IN-x-custom", "ta"},
	}
	for _, tc := range cases {
		if got := PrimarySubtag(tc.in); got != tc.want {
			t.Errorf("PrimarySubtag(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestKindForField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		fieldID string
		want    FieldKind
	}{
		{"name", KindName},
		{"email", KindEmail},
		{"phone", KindPhone},
		{"address", KindAddress},
		{"gender", KindGender},
		{"dob", KindDateOfBirth},
		{"date", KindDateOfBirth},
		{"date_of_birth", KindDateOfBirth},
		{"poi_file", KindFileUpload},
		{"income_proof_doc", KindFileUpload},
		{"aadhaar_number", KindGeneric},
		{"", KindGeneric},
	}
	for _, tc := range cases {
		if got := KindForField(tc.fieldID); got != tc.want {
			t.Errorf("KindForField(%q) = %q, want %q", tc.fieldID, got, tc.want)
		}
	}
}

func TestNormalizable(t *testing.T) {
	t.Parallel()

	if !KindDateOfBirth.Normalizable() || !KindEmail.Normalizable() || !KindPhone.Normalizable() {
		t.Error("date_of_birth, email and phone must be normalizable")
	}
	if KindName.Normalizable() || KindGender.Normalizable() || KindFileUpload.Normalizable() {
		t.Error("name, gender and file_upload must not be normalizable")
	}
}

func TestLoadPromptsFromReaderRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	yml := `
prompts:
  name:
    en: "Please tell me your full name"
generic_prompts:
  en: "Please provide your %s"
surprise: true
`
	if _, err := LoadPromptsFromReader(strings.NewReader(yml)); err == nil {
		t.Error("expected error for unknown top-level key, got nil")
	}
}

func TestNewRejectsBadGenericTemplate(t *testing.T) {
	t.Parallel()

	pf := &PromptFile{
		GenericPrompts: map[string]string{"en": "no placeholder here"},
	}
	mf := &MessageFile{
		Messages: map[string]map[string]MessageSet{
			"name": {"en": {Confirm: "heard %s", Success: "ok %s", Error: "try again"}},
		},
		FileUploadMessage: "upload it",
	}
	if _, err := New(pf, mf); err == nil {
		t.Errorf("expected validation error for template without %%s, got nil")
	}
}

func TestNewRejectsMissingNameTable(t *testing.T) {
	t.Parallel()

	pf := &PromptFile{
		GenericPrompts: map[string]string{"en": "Please provide your %s"},
	}
	mf := &MessageFile{
		Messages: map[string]map[string]MessageSet{
			"phone": {"en": {Confirm: "heard %s", Error: "try again"}},
		},
		FileUploadMessage: "upload it",
	}
	if _, err := New(pf, mf); err == nil {
		t.Error("expected validation error for missing name fallback table, got nil")
	}
}

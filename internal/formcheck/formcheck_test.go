package formcheck

import (
	"strings"
	"testing"
	"time"
)

func isoDate(yearsAgo int) string {
	return time.Now().AddDate(-yearsAgo, 0, 0).Format("2006-01-02")
}

func findIssue(t *testing.T, res Result, code string) Issue {
	t.Helper()
	for _, issue := range res.Issues {
		if issue.Code == code {
			return issue
		}
	}
	t.Fatalf("no issue with code %q in %+v", code, res.Issues)
	return Issue{}
}

func hasIssue(res Result, code string) bool {
	for _, issue := range res.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func TestValidatePhone(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "phone", Label: "Phone Number"}}

	cases := []struct {
		value string
		code  string
	}{
		{"9876543210", ""},
		{"98765 43210", ""},
		{"12345", CodeInvalidPhone},
		{"+91 9876543210", CodeInvalidPhone}, // 12 digits with country code
		{"1234567890", CodeInvalidPhoneStart},
	}
	for _, tc := range cases {
		res := c.Validate(fields, map[string]string{"phone": tc.value}, "en", 0)
		if tc.code == "" {
			if !res.IsValid {
				t.Errorf("Validate(%q) issues = %+v, want none", tc.value, res.Issues)
			}
			continue
		}
		if res.IsValid {
			t.Errorf("Validate(%q) valid, want %s", tc.value, tc.code)
			continue
		}
		findIssue(t, res, tc.code)
	}
}

func TestValidatePhoneLocalizedMessage(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "mobile", Label: "Mobile"}}

	res := c.Validate(fields, map[string]string{"mobile": "12345"}, "hi-IN", 0)
	issue := findIssue(t, res, CodeInvalidPhone)
	if !strings.Contains(issue.Message, "फ़ोन") {
		t.Errorf("message %q is not in Hindi", issue.Message)
	}
	if issue.MessageEn != "Phone number must be exactly 10 digits." {
		t.Errorf("messageEn = %q", issue.MessageEn)
	}
}

func TestValidateAadhaar(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "aadhaar_no", Label: "Aadhaar Number"}}

	if res := c.Validate(fields, map[string]string{"aadhaar_no": "1234 5678 9012"}, "en", 0); !res.IsValid {
		t.Errorf("12-digit aadhaar rejected: %+v", res.Issues)
	}
	res := c.Validate(fields, map[string]string{"aadhaar_no": "12345"}, "en", 0)
	findIssue(t, res, CodeInvalidAadhaar)
}

func TestValidatePAN(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "pan_no", Label: "PAN"}}

	if res := c.Validate(fields, map[string]string{"pan_no": "abcde1234f"}, "en", 0); !res.IsValid {
		t.Errorf("lowercase PAN rejected: %+v", res.Issues)
	}
	res := c.Validate(fields, map[string]string{"pan_no": "AB123"}, "en", 0)
	issue := findIssue(t, res, CodeInvalidPAN)
	if issue.Suggestion != "Example: ABCDE1234F" {
		t.Errorf("suggestion = %q", issue.Suggestion)
	}
}

func TestValidatePIN(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "address_pincode", Label: "PIN Code"}}

	if res := c.Validate(fields, map[string]string{"address_pincode": "500001"}, "en", 0); !res.IsValid {
		t.Errorf("valid PIN rejected: %+v", res.Issues)
	}
	res := c.Validate(fields, map[string]string{"address_pincode": "5000"}, "en", 0)
	findIssue(t, res, CodeInvalidPIN)
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "email", Label: "Email"}}

	cases := []struct {
		value string
		valid bool
	}{
		{"name@example.com", true},
		{"skip", true}, // spoken escape for applicants without email
		{"SKIP", true},
		{"not-an-email", false},
		{"a@b", false}, // no TLD
	}
	for _, tc := range cases {
		res := c.Validate(fields, map[string]string{"email": tc.value}, "en", 0)
		if res.IsValid != tc.valid {
			t.Errorf("Validate(%q) valid = %v, want %v (%+v)", tc.value, res.IsValid, tc.valid, res.Issues)
		}
	}
}

func TestValidateDOBFuture(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "dob", Label: "Date of Birth"}}
	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")

	res := c.Validate(fields, map[string]string{"dob": future}, "en", 0)
	findIssue(t, res, CodeAgeFutureDOB)
}

func TestValidateDOBServiceMinAge(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "dob", Label: "Date of Birth"}}

	// Service 2 (Voter ID) requires 18 years.
	res := c.Validate(fields, map[string]string{"dob": isoDate(16)}, "en", 2)
	findIssue(t, res, CodeAgeTooYoung)

	if res := c.Validate(fields, map[string]string{"dob": isoDate(30)}, "en", 2); !res.IsValid {
		t.Errorf("adult applicant rejected: %+v", res.Issues)
	}
	// No service, no age floor.
	if res := c.Validate(fields, map[string]string{"dob": isoDate(16)}, "en", 0); !res.IsValid {
		t.Errorf("minor without service rejected: %+v", res.Issues)
	}
}

func TestValidateDOBUnparseablePasses(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "dob", Label: "Date of Birth"}}

	res := c.Validate(fields, map[string]string{"dob": "sometime in winter"}, "en", 2)
	if !res.IsValid {
		t.Errorf("unparseable date must pass, got %+v", res.Issues)
	}
}

func TestCrossCheckAgeAgainstDOB(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{
		{ID: "dob", Label: "Date of Birth"},
		{ID: "age", Label: "Age"},
	}

	res := c.Validate(fields, map[string]string{"dob": isoDate(30), "age": "45"}, "en", 0)
	issue := findIssue(t, res, CodeAgeFieldMismatch)
	if issue.Severity != SeverityWarning {
		t.Errorf("severity = %q, want warning", issue.Severity)
	}
	if !res.IsValid {
		t.Error("a lone warning must not invalidate the form")
	}

	// One year of tolerance covers a birthday between the two answers.
	res = c.Validate(fields, map[string]string{"dob": isoDate(30), "age": "29"}, "en", 0)
	if hasIssue(res, CodeAgeFieldMismatch) {
		t.Errorf("age within tolerance flagged: %+v", res.Issues)
	}
}

func TestValidateRequired(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{
		{ID: "name", Label: "Full Name"},
		{ID: "email", Label: "Email (optional)"},
		{ID: "poi_file", Label: "Proof of Identity", RequiresFile: true},
		{ID: "photo", Label: "Photograph", Type: "file"},
	}

	res := c.Validate(fields, map[string]string{}, "en", 0)
	issue := findIssue(t, res, CodeMissingRequired)
	if issue.FieldID != "name" {
		t.Errorf("missing field = %q, want name", issue.FieldID)
	}
	if len(res.Issues) != 1 {
		t.Errorf("issues = %+v, want only the name field", res.Issues)
	}
}

func TestServiceRuleGSTIN(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "gstin", Label: "GSTIN"}}

	if res := c.Validate(fields, map[string]string{"gstin": "22AAAAA0000A1Z5"}, "en", 15); !res.IsValid {
		t.Errorf("valid GSTIN rejected: %+v", res.Issues)
	}
	res := c.Validate(fields, map[string]string{"gstin": "INVALID"}, "en", 15)
	issue := findIssue(t, res, "SVC_15_GSTIN")
	if issue.Severity != SeverityError {
		t.Errorf("severity = %q, want error", issue.Severity)
	}
}

func TestServiceRuleUAN(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "uan_no", Label: "UAN Number"}}

	if res := c.Validate(fields, map[string]string{"uan_no": "1234 5678 9012"}, "en", 13); !res.IsValid {
		t.Errorf("valid UAN rejected: %+v", res.Issues)
	}
	res := c.Validate(fields, map[string]string{"uan_no": "12345"}, "en", 13)
	findIssue(t, res, "SVC_13_UAN_NO")
}

func TestServiceRuleLandArea(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "land_area", Label: "Land Area"}}

	if res := c.Validate(fields, map[string]string{"land_area": "2.5"}, "en", 33); !res.IsValid {
		t.Errorf("positive land area rejected: %+v", res.Issues)
	}
	res := c.Validate(fields, map[string]string{"land_area": "-1"}, "en", 33)
	findIssue(t, res, "SVC_33_LAND_AREA")
}

func TestServiceRuleArmsLicenseAge(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "dob", Label: "Date of Birth"}}

	res := c.Validate(fields, map[string]string{"dob": isoDate(19)}, "en", 40)
	findIssue(t, res, "SVC_40_DOB")

	if res := c.Validate(fields, map[string]string{"dob": isoDate(25)}, "en", 40); !res.IsValid {
		t.Errorf("25-year-old rejected: %+v", res.Issues)
	}
}

func TestServiceRuleSeniorCitizen(t *testing.T) {
	t.Parallel()
	c := Default()
	fields := []Field{{ID: "dob_age", Label: "Date of Birth / Age"}}

	res := c.Validate(fields, map[string]string{"dob_age": "55"}, "en", 42)
	if !hasIssue(res, "SVC_42_DOB_AGE") {
		t.Errorf("age 55 passed for senior citizen card: %+v", res.Issues)
	}
	if res := c.Validate(fields, map[string]string{"dob_age": "65"}, "en", 42); hasIssue(res, "SVC_42_DOB_AGE") {
		t.Errorf("age 65 rejected: %+v", res.Issues)
	}
}

func TestCalcAge(t *testing.T) {
	t.Parallel()

	cases := []struct {
		dob  string
		want int
		ok   bool
	}{
		{isoDate(30), 30, true},
		{time.Now().AddDate(-30, 0, 0).Format("02/01/2006"), 30, true},
		{time.Now().AddDate(-30, 0, 0).Format("02-01-2006"), 30, true},
		{"not a date", 0, false},
		{"1700-01-01", 0, false}, // over 150 years
	}
	for _, tc := range cases {
		got, ok := calcAge(tc.dob)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("calcAge(%q) = (%d, %v), want (%d, %v)", tc.dob, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDedupePrefersErrors(t *testing.T) {
	t.Parallel()

	issues := []Issue{
		{FieldID: "age", Code: CodeAgeFieldMismatch, Severity: SeverityWarning},
		{FieldID: "age", Code: CodeAgeFieldMismatch, Severity: SeverityError},
		{FieldID: "phone", Code: CodeInvalidPhone, Severity: SeverityError},
	}
	out := dedupe(issues)
	if len(out) != 2 {
		t.Fatalf("dedupe kept %d issues, want 2", len(out))
	}
	if out[0].Severity != SeverityError {
		t.Errorf("dedupe kept the warning copy: %+v", out[0])
	}
}

func TestNewRejectsIncompleteTable(t *testing.T) {
	t.Parallel()

	_, err := New(&IssueFile{Issues: map[string]map[string]string{
		CodeInvalidPhone: {"en": "Phone number must be exactly 10 digits."},
	}})
	if err == nil {
		t.Fatal("New accepted a table missing most codes")
	}
	if !strings.Contains(err.Error(), CodeMissingRequired) {
		t.Errorf("error %q does not mention the missing code", err)
	}
}

func TestLoadIssuesRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := LoadIssuesFromReader(strings.NewReader("issues: {}\nextra: true\n"))
	if err == nil {
		t.Fatal("unknown top-level key accepted")
	}
}

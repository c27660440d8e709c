package formcheck

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Issue codes emitted by the built-in rule set.
const (
	CodeInvalidPhone      = "INVALID_PHONE"
	CodeInvalidPhoneStart = "INVALID_PHONE_START"
	CodeInvalidAadhaar    = "INVALID_AADHAAR"
	CodeInvalidPAN        = "INVALID_PAN"
	CodeInvalidPIN        = "INVALID_PIN"
	CodeInvalidEmail      = "INVALID_EMAIL"
	CodeAgeTooYoung       = "AGE_TOO_YOUNG"
	CodeAgeFutureDOB      = "AGE_FUTURE_DOB"
	CodeAgeFieldMismatch  = "AGE_FIELD_MISMATCH"
	CodeMissingRequired   = "MISSING_REQUIRED"
)

// Identifier keywords that route a field to a format check. A field matches
// when its lowercased id contains any keyword.
var (
	phoneFieldIDs = []string{
		"phone", "mobile", "telephone", "contact_no", "contact_number",
		"informant_mobile", "emergency_contact", "whatsapp", "helpline",
		"applicant_phone", "guardian_phone", "father_phone", "mother_phone",
		"spouse_phone", "nominee_phone", "employer_phone", "reference_phone",
	}
	aadhaarFieldIDs = []string{
		"aadhaar", "aadhar", "aadhar_no", "aadhaar_no",
		"father_aadhaar", "mother_aadhaar", "spouse_aadhaar",
		"guardian_aadhaar", "nominee_aadhaar", "applicant_aadhaar",
	}
	panFieldIDs = []string{
		"pan", "pan_no", "pan_number", "pan_card", "pan_card_no",
		"applicant_pan", "owner_pan", "employer_pan",
	}
	pinFieldIDs = []string{
		"pincode", "pin_code", "address_pincode", "pin",
		"postal_code", "zip_code", "present_pincode", "permanent_pincode",
		"delivery_pincode", "farm_pincode",
	}
	emailFieldIDs = []string{
		"email", "email_id", "email_address", "applicant_email",
		"contact_email", "official_email", "registered_email",
	}
	dobFieldIDs = []string{
		"dob", "date_of_birth", "dob_age", "birth_date",
		"applicant_dob", "date_of_birth_age", "birth_year",
		"dob_time",
	}
)

var (
	panRegex   = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)
	gstinRegex = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	uanRegex   = regexp.MustCompile(`^\d{12}$`)

	isoDateRegex   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slashDateRegex = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	dashDateRegex  = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	numberRegex    = regexp.MustCompile(`\d+`)
)

func digits(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// calcAge derives a completed age in years from a date of birth string.
// Accepted layouts are YYYY-MM-DD, DD/MM/YYYY and DD-MM-YYYY. A future date
// yields a negative age; anything unparseable or older than 150 years
// returns ok=false and is left to human review.
func calcAge(dob string) (int, bool) {
	dob = strings.TrimSpace(dob)
	var d time.Time
	var err error
	switch {
	case isoDateRegex.MatchString(dob):
		d, err = time.Parse("2006-01-02", dob)
	case slashDateRegex.MatchString(dob):
		d, err = time.Parse("02/01/2006", dob)
	case dashDateRegex.MatchString(dob):
		d, err = time.Parse("02-01-2006", dob)
	default:
		return 0, false
	}
	if err != nil {
		return 0, false
	}

	now := time.Now()
	age := now.Year() - d.Year()
	if now.Month() < d.Month() || (now.Month() == d.Month() && now.Day() < d.Day()) {
		age--
	}
	if age > 150 {
		return 0, false
	}
	return age, true
}

func (c *Checker) checkPhone(f Field, value, language string) []Issue {
	d := digits(value)
	if d == "" {
		return nil
	}
	if len(d) != 10 {
		return []Issue{{
			FieldID: f.ID, FieldLabel: f.Label, Severity: SeverityError,
			Code:       CodeInvalidPhone,
			Message:    c.message(CodeInvalidPhone, language),
			MessageEn:  c.messageEn(CodeInvalidPhone),
			Suggestion: "Enter exactly 10 digits without spaces or country code.",
		}}
	}
	if d[0] < '6' || d[0] > '9' {
		return []Issue{{
			FieldID: f.ID, FieldLabel: f.Label, Severity: SeverityError,
			Code:       CodeInvalidPhoneStart,
			Message:    c.message(CodeInvalidPhoneStart, language),
			MessageEn:  c.messageEn(CodeInvalidPhoneStart),
			Suggestion: "Indian mobile numbers start with 6, 7, 8, or 9.",
		}}
	}
	return nil
}

func (c *Checker) checkAadhaar(f Field, value, language string) []Issue {
	d := digits(value)
	if d == "" || len(d) == 12 {
		return nil
	}
	return []Issue{{
		FieldID: f.ID, FieldLabel: f.Label, Severity: SeverityError,
		Code:       CodeInvalidAadhaar,
		Message:    c.message(CodeInvalidAadhaar, language),
		MessageEn:  c.messageEn(CodeInvalidAadhaar),
		Suggestion: "Aadhaar is a 12-digit number.",
	}}
}

func (c *Checker) checkPAN(f Field, value, language string) []Issue {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" || panRegex.MatchString(v) {
		return nil
	}
	return []Issue{{
		FieldID: f.ID, FieldLabel: f.Label, Severity: SeverityError,
		Code:       CodeInvalidPAN,
		Message:    c.message(CodeInvalidPAN, language),
		MessageEn:  c.messageEn(CodeInvalidPAN),
		Suggestion: "Example: ABCDE1234F",
	}}
}

func (c *Checker) checkPIN(f Field, value, language string) []Issue {
	d := digits(value)
	if d == "" || len(d) == 6 {
		return nil
	}
	return []Issue{{
		FieldID: f.ID, FieldLabel: f.Label, Severity: SeverityError,
		Code:       CodeInvalidPIN,
		Message:    c.message(CodeInvalidPIN, language),
		MessageEn:  c.messageEn(CodeInvalidPIN),
		Suggestion: "PIN code is always 6 digits.",
	}}
}

func (c *Checker) checkEmail(f Field, value, language string) []Issue {
	v := strings.TrimSpace(value)
	// "skip" is the spoken escape hatch for applicants without email.
	if v == "" || strings.EqualFold(v, "skip") || emailRegex.MatchString(v) {
		return nil
	}
	return []Issue{{
		FieldID: f.ID, FieldLabel: f.Label, Severity: SeverityError,
		Code:       CodeInvalidEmail,
		Message:    c.message(CodeInvalidEmail, language),
		MessageEn:  c.messageEn(CodeInvalidEmail),
		Suggestion: "Example: name@example.com",
	}}
}

func (c *Checker) checkDOB(f Field, value, language string, minAge int) []Issue {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	age, ok := calcAge(v)
	if !ok {
		return nil
	}
	if age < 0 {
		return []Issue{{
			FieldID: f.ID, FieldLabel: f.Label, Severity: SeverityError,
			Code:      CodeAgeFutureDOB,
			Message:   c.message(CodeAgeFutureDOB, language),
			MessageEn: c.messageEn(CodeAgeFutureDOB),
		}}
	}
	if minAge > 0 && age < minAge {
		return []Issue{{
			FieldID: f.ID, FieldLabel: f.Label, Severity: SeverityError,
			Code:      CodeAgeTooYoung,
			Message:   c.message(CodeAgeTooYoung, language),
			MessageEn: c.messageEn(CodeAgeTooYoung),
		}}
	}
	return nil
}

// crossCheckAgeAgainstDOB compares a stated age field against the age derived
// from the date of birth. One year of tolerance covers birthdays between
// filling the two fields.
func (c *Checker) crossCheckAgeAgainstDOB(values map[string]string, language string) []Issue {
	dobValue := values["dob"]
	if dobValue == "" {
		dobValue = values["date_of_birth"]
	}
	ageValue := values["age"]
	if ageValue == "" {
		ageValue = values["mother_age"]
	}
	if dobValue == "" || ageValue == "" {
		return nil
	}

	derived, ok := calcAge(dobValue)
	if !ok {
		return nil
	}
	stated, err := strconv.Atoi(digits(ageValue))
	if err != nil {
		return nil
	}

	diff := derived - stated
	if diff < 0 {
		diff = -diff
	}
	if diff <= 1 {
		return nil
	}
	return []Issue{{
		FieldID:    "age",
		FieldLabel: "Age",
		Severity:   SeverityWarning,
		Code:       CodeAgeFieldMismatch,
		Message:    c.message(CodeAgeFieldMismatch, language),
		MessageEn:  "DOB gives age " + strconv.Itoa(derived) + " but stated age is " + strconv.Itoa(stated) + ". Please reconcile.",
	}}
}

// serviceMinAge is the minimum applicant age per government service id.
// Services without an entry have no age floor.
var serviceMinAge = map[int]int{
	2:  18, // Voter ID
	3:  18, // PAN Card
	5:  16, // Driving License (learner)
	6:  18, // Passport
	7:  18, // Vehicle Registration
	10: 18, // EPF/ESIC
	11: 18, // Labour Card
	13: 18, // EPF Withdrawal
	14: 18, // Income Tax Return
	15: 18, // GST Registration
	16: 18, // Mudra Loan
	17: 60, // Old Age Pension
	18: 18, // Widow Pension
	19: 18, // Kisan Samman Nidhi
	20: 18, // Ration Card
	21: 18, // Ayushman Bharat
	22: 18, // MGNREGA
	23: 18, // PM Awas Yojana
	25: 18, // Disability Certificate
	26: 18, // BPL Certificate
	27: 18, // Domicile Certificate
	28: 18, // Trade License
	29: 18, // Shop Registration
	31: 18, // Gas Connection Ujjwala
	33: 18, // Kisan Credit Card
	34: 18, // Pesticide License
	35: 18, // Legal Heir Certificate
	36: 18, // Marriage Registration
	37: 18, // Death Registration
	38: 18, // Digital Signature Certificate
	39: 18, // Domain Registration
	40: 21, // Arms License
	41: 18, // Ex-Servicemen ID
	42: 60, // Senior Citizen Card
	43: 18, // Transgender ID Card
	44: 18, // SC/ST Fellowship
	45: 18, // Minority Scholarship
}

// serviceRule is one business rule bound to a specific service form.
// check returns true when the value is acceptable; service rules carry their
// own English wording because they are too service-specific for the shared
// message table.
type serviceRule struct {
	fieldID    string
	label      string
	check      func(value string, values map[string]string) bool
	severity   Severity
	messageEn  string
	suggestion string
}

// parseLooseDate accepts the date layouts that show up in spoken or typed
// answers. Unparseable input returns ok=false.
func parseLooseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{
		"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02",
		"02/01/2006", "02-01-2006",
	} {
		if d, err := time.Parse(layout, v); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// notInFuture passes empty and unparseable values through.
func notInFuture(v string, _ map[string]string) bool {
	if strings.TrimSpace(v) == "" {
		return true
	}
	d, ok := parseLooseDate(v)
	return !ok || !d.After(time.Now())
}

// firstNumberAtLeast extracts the first run of digits and compares it with
// min. Values without a number pass.
func firstNumberAtLeast(v string, min int) bool {
	d := numberRegex.FindString(v)
	if d == "" {
		return true
	}
	n, err := strconv.Atoi(d)
	return err != nil || n >= min
}

var serviceRules = map[int][]serviceRule{
	// Birth Certificate
	8: {{
		fieldID: "dob_time", label: "Date & Time of Birth",
		check:     notInFuture,
		severity:  SeverityError,
		messageEn: "Date of birth cannot be in the future.",
	}},

	// Income Certificate
	9: {{
		fieldID: "annual_income", label: "Annual Income",
		check: func(v string, _ map[string]string) bool {
			if strings.TrimSpace(v) == "" {
				return true
			}
			n, err := strconv.Atoi(digits(v))
			return err == nil && n > 0 && n < 100_000_000
		},
		severity:   SeverityWarning,
		messageEn:  "Annual income should be a realistic amount in Indian Rupees.",
		suggestion: "Enter yearly income amount e.g. 120000",
	}},

	// EPF Withdrawal
	13: {{
		fieldID: "uan_no", label: "UAN Number",
		check: func(v string, _ map[string]string) bool {
			v = strings.ReplaceAll(v, " ", "")
			return v == "" || uanRegex.MatchString(v)
		},
		severity:   SeverityError,
		messageEn:  "UAN (Universal Account Number) must be exactly 12 digits.",
		suggestion: "Find your UAN on your payslip or EPFO portal.",
	}},

	// GST Registration
	15: {{
		fieldID: "gstin", label: "GSTIN",
		check: func(v string, _ map[string]string) bool {
			return v == "" || gstinRegex.MatchString(strings.ToUpper(v))
		},
		severity:   SeverityError,
		messageEn:  "GSTIN must be 15 characters e.g. 22AAAAA0000A1Z5.",
		suggestion: "Example: 22AAAAA0000A1Z5",
	}},

	// Old Age Pension
	17: {{
		fieldID: "dob_age", label: "Date of Birth / Age",
		check: func(v string, _ map[string]string) bool {
			return firstNumberAtLeast(v, 60)
		},
		severity:  SeverityError,
		messageEn: "Old Age Pension requires the applicant to be at least 60 years old.",
	}},

	// Soil Health Card
	32: {{
		fieldID: "survey_no", label: "Survey/Khasra Number",
		check: func(v string, _ map[string]string) bool {
			return v == "" || strings.TrimSpace(v) != ""
		},
		severity:  SeverityWarning,
		messageEn: "Survey/Khasra number is required for processing.",
	}},

	// Kisan Credit Card
	33: {{
		fieldID: "land_area", label: "Land Area",
		check: func(v string, _ map[string]string) bool {
			if strings.TrimSpace(v) == "" {
				return true
			}
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			return err == nil && n > 0
		},
		severity:   SeverityError,
		messageEn:  "Land area must be a positive number.",
		suggestion: "Example: 2.5 (in acres or hectares)",
	}},

	// Marriage Registration
	36: {{
		fieldID: "marriage_date", label: "Date of Marriage",
		check:     notInFuture,
		severity:  SeverityError,
		messageEn: "Marriage date cannot be in the future.",
	}},

	// Death Registration
	37: {{
		fieldID: "date_of_death", label: "Date of Death",
		check:     notInFuture,
		severity:  SeverityError,
		messageEn: "Date of death cannot be in the future.",
	}},

	// Arms License
	40: {{
		fieldID: "dob", label: "Date of Birth",
		check: func(v string, _ map[string]string) bool {
			if strings.TrimSpace(v) == "" {
				return true
			}
			age, ok := calcAge(v)
			return !ok || age >= 21
		},
		severity:  SeverityError,
		messageEn: "Arms Licence applicant must be at least 21 years old.",
	}},

	// Senior Citizen Card
	42: {{
		fieldID: "dob_age", label: "Date of Birth / Age",
		check: func(v string, _ map[string]string) bool {
			return firstNumberAtLeast(v, 60)
		},
		severity:  SeverityError,
		messageEn: "Senior Citizen Card requires the applicant to be at least 60 years old.",
	}},
}

func (c *Checker) runServiceRules(serviceID int, values map[string]string) []Issue {
	rules, ok := serviceRules[serviceID]
	if !ok {
		return nil
	}
	var issues []Issue
	for _, rule := range rules {
		value := values[rule.fieldID]
		if rule.check(value, values) {
			continue
		}
		issues = append(issues, Issue{
			FieldID:    rule.fieldID,
			FieldLabel: rule.label,
			Severity:   rule.severity,
			Code:       "SVC_" + strconv.Itoa(serviceID) + "_" + strings.ToUpper(rule.fieldID),
			Message:    rule.messageEn,
			MessageEn:  rule.messageEn,
			Suggestion: rule.suggestion,
		})
	}
	return issues
}

package catalog

// FieldKind is the semantic category of a form field. It determines which
// validation rule the response engine applies and whether the utterance
// normalizer runs before validation.
type FieldKind string

const (
	KindName        FieldKind = "name"
	KindEmail       FieldKind = "email"
	KindPhone       FieldKind = "phone"
	KindAddress     FieldKind = "address"
	KindDateOfBirth FieldKind = "date_of_birth"
	KindGender      FieldKind = "gender"
	KindGeneric     FieldKind = "generic"
	KindFileUpload  FieldKind = "file_upload"
)

// IsValid reports whether k is a known field kind.
func (k FieldKind) IsValid() bool {
	switch k {
	case KindName, KindEmail, KindPhone, KindAddress, KindDateOfBirth,
		KindGender, KindGeneric, KindFileUpload:
		return true
	}
	return false
}

// Normalizable reports whether utterances of this kind should pass through
// the LLM normalizer before validation. Only kinds prone to spoken-form
// ambiguity qualify.
func (k FieldKind) Normalizable() bool {
	switch k {
	case KindDateOfBirth, KindEmail, KindPhone:
		return true
	}
	return false
}

// fileFieldIDs lists field identifiers that carry document uploads. Answers
// for these fields never go through voice validation.
var fileFieldIDs = map[string]struct{}{
	"poi_file":           {},
	"poa_file":           {},
	"dob_file":           {},
	"poi_doc":            {},
	"poa_doc":            {},
	"dob_doc":            {},
	"doc_type":           {},
	"citizen_proof":      {},
	"address_proof":      {},
	"hospital_doc":       {},
	"parent_doc":         {},
	"caste_proof_file":   {},
	"income_proof_file":  {},
	"income_proof_doc":   {},
	"family_id_doc":      {},
	"birth_cert_file":    {},
	"id_proof_file":      {},
	"address_proof_file": {},
}

// dateFieldIDs lists identifiers treated as dates for normalization and
// validation purposes even though they are not literally named "dob".
var dateFieldIDs = map[string]struct{}{
	"dob":           {},
	"date":          {},
	"date_of_birth": {},
	"birth_date":    {},
}

// KindForField resolves the semantic kind of a field identifier. Unknown
// identifiers map to KindGeneric, which validates permissively.
func KindForField(fieldID string) FieldKind {
	if _, ok := fileFieldIDs[fieldID]; ok {
		return KindFileUpload
	}
	if _, ok := dateFieldIDs[fieldID]; ok {
		return KindDateOfBirth
	}
	switch fieldID {
	case "name":
		return KindName
	case "email":
		return KindEmail
	case "phone":
		return KindPhone
	case "address":
		return KindAddress
	case "gender":
		return KindGender
	}
	return KindGeneric
}

// IsFileField reports whether fieldID names a document-upload field.
func IsFileField(fieldID string) bool {
	_, ok := fileFieldIDs[fieldID]
	return ok
}

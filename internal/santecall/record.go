// ABOUTME: Patient record returned by the SanteCall lookup API
// ABOUTME: Lenient field types that keep "absent" distinct from any concrete value

package santecall

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// PatientRecord is the lookup result. Every field is optional.
type PatientRecord struct {
	Civilite      Text `json:"civilite"`
	FirstName     Text `json:"first_name"`
	LastName      Text `json:"last_name"`
	PhoneNumber   Text `json:"phone_number"`
	Email         Text `json:"email_patient"`
	CabinetStatus Text `json:"cabinet_status"`

	CabinetName          Text `json:"cabinet_nom"`
	CabinetAddress       Text `json:"cabinet_adresse"`
	CabinetHours         Text `json:"cabinet_horaires_texte"`
	CabinetClosures      Text `json:"cabinet_fermeture_exception"`
	SoftwareType         Text `json:"software_type"`
	PatientPractitioner  Text `json:"patient_prat"`
	CabinetPractitioners Text `json:"cabinet_prats"`

	ConfirmationEnabled Flag `json:"confirmation_rdv_enabled"`
	CancellationEnabled Flag `json:"annulation_rdv_enabled"`
	BookingEnabled      Flag `json:"prise_rdv_enabled"`

	Appointments []Appointment `json:"scheduled_appointments"`
}

// Appointment is one scheduled appointment, in the order the API returned it.
type Appointment struct {
	Date           Text `json:"date"`
	PractitionerID Text `json:"practitioner_id"`
	ActeID         Text `json:"acte_id"`
}

// Text is a display value decoded from any JSON scalar or array.
// Null, absent and blank values are not Valid.
type Text struct {
	Value string
	Valid bool

	falsy bool // decoded from false, a numeric zero or an empty object
}

// TextOf returns a Text holding s. Blank strings are not Valid.
func TextOf(s string) Text {
	return Text{Value: s, Valid: strings.TrimSpace(s) != ""}
}

// Or returns the value, or placeholder when the value is not Valid.
func (t Text) Or(placeholder string) string {
	if !t.Valid {
		return placeholder
	}
	return t.Value
}

// Truthy reports whether the value is Valid and was not decoded from false,
// a numeric zero or an empty object. Optional lines are shown only when Truthy.
func (t Text) Truthy() bool {
	return t.Valid && !t.falsy
}

// UnmarshalJSON accepts strings, numbers, booleans, arrays and objects.
// Numbers keep their literal form; arrays are joined with ", ".
func (t *Text) UnmarshalJSON(data []byte) error {
	v, err := decodeAny(data)
	if err != nil {
		return err
	}
	*t = TextOf(displayString(v))
	switch v.(type) {
	case bool, json.Number, map[string]any:
		t.falsy = !truthy(v)
	}
	return nil
}

func displayString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := displayString(item); strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Flag is a feature toggle. It accepts booleans, numbers (non-zero is true)
// and strings (strconv.ParseBool syntax, otherwise any non-blank string is true).
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	v, err := decodeAny(data)
	if err != nil {
		return err
	}
	*f = Flag(truthy(v))
	return nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case json.Number:
		n, err := x.Float64()
		return err == nil && n != 0
	case string:
		s := strings.TrimSpace(x)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return false
	}
}

func decodeAny(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeRecord parses a lookup response body. Bodies the API uses for
// "no match" (empty, null, false, 0, "", {} and []) yield a nil record.
func decodeRecord(body []byte) (*PatientRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	v, err := decodeAny(body)
	if err != nil {
		return nil, err
	}
	if !truthy(v) {
		return nil, nil
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, errNotAnObject
	}

	var record PatientRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

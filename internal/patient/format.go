// ABOUTME: Renders a patient record as the plain-text block returned to MCP clients
// ABOUTME: Fixed section order and placeholders so downstream readers can rely on the shape

package patient

import (
	"fmt"
	"strings"

	"github.com/2389/santecall-gateway/internal/santecall"
)

// Placeholders and fixed sentences used in the rendered text.
const (
	NotFoundText        = "Aucun patient trouvé avec ce numéro de téléphone."
	NotProvided         = "Non renseigné"
	UnknownDate         = "Date inconnue"
	UnknownPractitioner = "Praticien inconnu"
	UnknownActe         = "Acte non précisé"
	NoAppointmentsText  = "Aucun rendez-vous programmé"
)

// Format renders record as text. A nil record means no patient matched.
func Format(record *santecall.PatientRecord) string {
	if record == nil {
		return NotFoundText
	}

	var lines []string
	field := func(label string, v santecall.Text) {
		lines = append(lines, label+": "+v.Or(NotProvided))
	}
	optional := func(label string, v santecall.Text) {
		if v.Truthy() {
			lines = append(lines, label+": "+v.Value)
		}
	}

	lines = append(lines, "=== PATIENT ===")
	field("Civilité", record.Civilite)
	field("Prénom", record.FirstName)
	field("Nom", record.LastName)
	field("Téléphone", record.PhoneNumber)
	field("Email", record.Email)
	field("Statut cabinet", record.CabinetStatus)

	lines = append(lines, "", "=== CABINET ===")
	field("Nom", record.CabinetName)
	field("Adresse", record.CabinetAddress)
	field("Horaires", record.CabinetHours)
	optional("Fermetures exceptionnelles", record.CabinetClosures)
	field("Logiciel", record.SoftwareType)
	optional("Praticien du patient", record.PatientPractitioner)
	optional("Praticiens du cabinet", record.CabinetPractitioners)

	lines = append(lines, "", "=== FONCTIONNALITÉS ===",
		"Confirmation RDV: "+yesNo(record.ConfirmationEnabled),
		"Annulation RDV: "+yesNo(record.CancellationEnabled),
		"Prise de RDV: "+yesNo(record.BookingEnabled),
	)

	lines = append(lines, "")
	if len(record.Appointments) == 0 {
		lines = append(lines, "=== RENDEZ-VOUS PROGRAMMÉS ===", NoAppointmentsText)
	} else {
		lines = append(lines, fmt.Sprintf("=== RENDEZ-VOUS PROGRAMMÉS (%d) ===", len(record.Appointments)))
		for i, appt := range record.Appointments {
			lines = append(lines, fmt.Sprintf("%d. %s - %s - %s",
				i+1,
				appt.Date.Or(UnknownDate),
				appt.PractitionerID.Or(UnknownPractitioner),
				appt.ActeID.Or(UnknownActe),
			))
		}
	}

	return strings.Join(lines, "\n")
}

func yesNo(f santecall.Flag) string {
	if f {
		return "Oui"
	}
	return "Non"
}

// Package patient provides the search_patient MCP tool.
//
// The tool takes a phone number and an optional cabinet identifier
// (volubile_id), looks the patient up through a santecall.Looker and renders
// the record with Format. When the caller omits volubile_id the configured
// default is used.
//
// Format output is a fixed sequence of sections (PATIENT, CABINET,
// FONCTIONNALITÉS, RENDEZ-VOUS PROGRAMMÉS). Missing values are rendered as
// "Non renseigné" rather than dropped so that clients reading the text always
// see the same lines in the same order.
package patient

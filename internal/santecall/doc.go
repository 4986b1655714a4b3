// Package santecall is the client for the SanteCall patient lookup API.
//
// # Overview
//
// The gateway resolves a caller's phone number into a patient record through a
// single GET request:
//
//	GET <base url>?phone=+33600000000&token=<token>&volubile_id=<tenant>
//
// The response is a JSON object describing the patient, the practice
// ("cabinet"), the self-service features enabled for that practice and the
// patient's scheduled appointments. An empty body, null or an empty object
// means no patient matched.
//
// # Errors
//
// Lookup never panics on backend misbehavior. Every failure is a *LookupError
// whose Kind tells callers what went wrong:
//
//   - KindNetwork: the request could not be sent or the connection dropped
//   - KindTimeout: the bounded request timeout elapsed
//   - KindStatus: the API answered with a non-2xx status
//   - KindPayload: the body was not a usable JSON object
//
// Error messages never contain the request URL, since the API token travels
// as a query parameter.
//
// # Usage
//
//	client, err := santecall.NewClient(santecall.Config{
//	    BaseURL: "https://hds.santecall.ai/public/lookup",
//	    Token:   os.Getenv("SANTECALL_TOKEN"),
//	    Timeout: 30 * time.Second,
//	})
//	record, err := client.Lookup(ctx, "+33678951483", "42")
package santecall

// ABOUTME: The search_patient MCP tool backed by the SanteCall lookup API
// ABOUTME: Applies the default tenant, calls the lookup client and formats the record

package patient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/2389/santecall-gateway/internal/mcp"
	"github.com/2389/santecall-gateway/internal/santecall"
)

// ToolName is the MCP name of the patient search tool.
const ToolName = "search_patient"

// Argument names of search_patient.
const (
	ArgPhone      = "phone"
	ArgVolubileID = "volubile_id"
)

// MissingPhoneText is returned when the phone argument is absent or blank.
const MissingPhoneText = "Erreur: Le numéro de téléphone est requis."

// LookupObserver records backend lookup latency by result label.
type LookupObserver interface {
	ObserveLookup(result string, duration time.Duration)
}

// Definition returns the tool descriptor advertised in tools/list.
func Definition() mcpgo.Tool {
	return mcpgo.NewTool(ToolName,
		mcpgo.WithDescription("Recherche un patient par son numéro de téléphone. Retourne les informations du patient, ses rendez-vous programmés, et les informations du cabinet."),
		mcpgo.WithString(ArgPhone,
			mcpgo.Required(),
			mcpgo.Description("Numéro de téléphone du patient (format international, ex: +33678951483)"),
		),
		mcpgo.WithString(ArgVolubileID,
			mcpgo.Description("ID du cabinet (optionnel, utilise la valeur par défaut si non fourni)"),
		),
		mcpgo.WithReadOnlyHintAnnotation(true),
		mcpgo.WithDestructiveHintAnnotation(false),
		mcpgo.WithIdempotentHintAnnotation(true),
		mcpgo.WithOpenWorldHintAnnotation(true),
	)
}

// SearchConfig holds the dependencies of the search tool.
type SearchConfig struct {
	Looker            santecall.Looker
	DefaultVolubileID string
	Observer          LookupObserver // optional
	Logger            *slog.Logger
}

// SearchTool looks up patients by phone number.
type SearchTool struct {
	looker            santecall.Looker
	defaultVolubileID string
	observer          LookupObserver
	logger            *slog.Logger
}

// NewSearchTool creates the search tool.
func NewSearchTool(cfg SearchConfig) (*SearchTool, error) {
	if cfg.Looker == nil {
		return nil, errors.New("looker is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchTool{
		looker:            cfg.Looker,
		defaultVolubileID: cfg.DefaultVolubileID,
		observer:          cfg.Observer,
		logger:            logger.With("component", "patient.search"),
	}, nil
}

// Tool returns the registry entry for search_patient.
func (s *SearchTool) Tool() mcp.Tool {
	return mcp.Tool{
		Definition:     Definition(),
		Handler:        s.Search,
		ArgumentErrors: map[string]string{ArgPhone: MissingPhoneText},
	}
}

// Search is the tool handler. Lookup failures are returned as *SearchError.
func (s *SearchTool) Search(ctx context.Context, args mcp.Arguments) (string, error) {
	phone := args.String(ArgPhone)
	if phone == "" {
		return "", errors.New(MissingPhoneText)
	}

	volubileID := args.String(ArgVolubileID)
	if volubileID == "" {
		volubileID = s.defaultVolubileID
	}

	start := time.Now()
	record, err := s.looker.Lookup(ctx, phone, volubileID)
	s.observe(err, record, time.Since(start))
	if err != nil {
		return "", &SearchError{Err: err}
	}
	if record == nil {
		s.logger.Debug("no patient matched", "volubile_id", volubileID)
	}
	return Format(record), nil
}

func (s *SearchTool) observe(err error, record *santecall.PatientRecord, d time.Duration) {
	if s.observer == nil {
		return
	}
	result := "found"
	switch {
	case err != nil:
		var lookupErr *santecall.LookupError
		if errors.As(err, &lookupErr) {
			result = lookupErr.Kind.String()
		} else {
			result = "error"
		}
	case record == nil:
		result = "not_found"
	}
	s.observer.ObserveLookup(result, d)
}

// SearchError is a failed lookup rendered for the MCP client.
type SearchError struct {
	Err error
}

func (e *SearchError) Error() string {
	return "Erreur lors de la recherche: Erreur API SanteCall: " + describe(e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// describe renders a lookup failure in the client's language.
func describe(err error) string {
	var lookupErr *santecall.LookupError
	if !errors.As(err, &lookupErr) {
		return err.Error()
	}
	switch lookupErr.Kind {
	case santecall.KindNetwork:
		return "service injoignable"
	case santecall.KindTimeout:
		return "délai de réponse dépassé"
	case santecall.KindStatus:
		return fmt.Sprintf("réponse HTTP %d", lookupErr.Status)
	case santecall.KindPayload:
		return "réponse invalide"
	default:
		return lookupErr.Error()
	}
}

package resources

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/valhalla/console/internal/platform/valhalla"
	"github.com/valhalla/console/internal/shared"
)

// Backend is the subset of the REST client the screens need.
type Backend interface {
	List(ctx context.Context, resource string, q valhalla.ListQuery) ([]valhalla.Record, int, error)
	Get(ctx context.Context, resource, id string) (valhalla.Record, error)
	Create(ctx context.Context, resource string, fields map[string]any) (valhalla.Record, error)
	Update(ctx context.Context, resource, id string, fields map[string]any) (valhalla.Record, error)
	Delete(ctx context.Context, resource, id string) error
	Count(ctx context.Context, resource string) (int, error)
}

// Page is one list screen worth of records.
type Page struct {
	Records    []valhalla.Record
	Pagination shared.Pagination
	Search     string
}

// Service wraps resource operations.
type Service struct {
	backend   Backend
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService constructs a Service.
func NewService(backend Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, validator: validator.New(), logger: logger}
}

// List fetches one page of def.
func (s *Service) List(ctx context.Context, def Definition, page, perPage int, search string) (Page, error) {
	records, total, err := s.backend.List(ctx, def.Endpoint, valhalla.ListQuery{Page: page, Limit: perPage, Search: search})
	if err != nil {
		return Page{}, err
	}
	return Page{Records: records, Pagination: shared.NewPagination(page, perPage, total), Search: search}, nil
}

// Get fetches one record.
func (s *Service) Get(ctx context.Context, def Definition, id string) (valhalla.Record, error) {
	return s.backend.Get(ctx, def.Endpoint, id)
}

// Create validates values and posts them.
func (s *Service) Create(ctx context.Context, def Definition, values map[string]string) (valhalla.Record, map[string]string, error) {
	payload, errs := s.Parse(def, values)
	if len(errs) > 0 {
		return nil, errs, nil
	}
	rec, err := s.backend.Create(ctx, def.Endpoint, payload)
	return rec, nil, err
}

// Update validates values and replaces the record.
func (s *Service) Update(ctx context.Context, def Definition, id string, values map[string]string) (valhalla.Record, map[string]string, error) {
	payload, errs := s.Parse(def, values)
	if len(errs) > 0 {
		return nil, errs, nil
	}
	rec, err := s.backend.Update(ctx, def.Endpoint, id, payload)
	return rec, nil, err
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, def Definition, id string) error {
	return s.backend.Delete(ctx, def.Endpoint, id)
}

// Parse validates raw form values against the field rules and converts them
// to the JSON types the backend expects. Empty optional fields are omitted.
func (s *Service) Parse(def Definition, values map[string]string) (map[string]any, map[string]string) {
	payload := make(map[string]any, len(def.Fields))
	errs := make(map[string]string)
	for _, f := range def.Fields {
		raw := strings.TrimSpace(values[f.Name])
		if f.Rules != "" {
			if err := s.validator.Var(raw, f.Rules); err != nil {
				errs[f.Name] = ruleMessage(err)
				continue
			}
		}
		switch f.Kind {
		case KindBool:
			payload[f.Name] = raw == "on" || raw == "true" || raw == "1"
		case KindNumber, KindMoney:
			if raw == "" {
				continue
			}
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs[f.Name] = "Debe ser un número."
				continue
			}
			payload[f.Name] = n
		default:
			if raw == "" {
				continue
			}
			payload[f.Name] = raw
		}
	}
	return payload, errs
}

// Counts fetches the totals of defs concurrently. A failed count is nil.
func (s *Service) Counts(ctx context.Context, defs []Definition) map[string]*int {
	results := make([]*int, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, def := range defs {
		g.Go(func() error {
			n, err := s.backend.Count(gctx, def.Endpoint)
			if err != nil {
				s.logger.Debug("dashboard count", slog.String("resource", def.Endpoint), slog.Any("error", err))
				return nil
			}
			results[i] = &n
			return nil
		})
	}
	_ = g.Wait()
	out := make(map[string]*int, len(defs))
	for i, def := range defs {
		out[def.FeatureKey] = results[i]
	}
	return out
}

func ruleMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Valor inválido."
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio."
	case "email":
		return "Ingresa un correo válido."
	case "max":
		return "Máximo " + fe.Param() + " caracteres."
	case "number", "numeric":
		return "Debe ser un número."
	case "alphanum":
		return "Solo letras y números."
	case "oneof":
		return "Selecciona una opción válida."
	case "datetime":
		return "Usa el formato AAAA-MM-DD."
	}
	return "Valor inválido."
}

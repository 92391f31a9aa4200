package resources

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valhalla/console/internal/platform/valhalla"
	"github.com/valhalla/console/internal/rbac"
)

func definition(t *testing.T, key string) Definition {
	t.Helper()
	for _, def := range DefaultDefinitions() {
		if def.FeatureKey == key {
			return def
		}
	}
	t.Fatalf("no definition for %s", key)
	return Definition{}
}

func TestDefinitionsCoverRegistry(t *testing.T) {
	registry := rbac.DefaultRegistry()
	seen := map[string]bool{}
	for _, def := range DefaultDefinitions() {
		_, ok := registry.Feature(def.FeatureKey)
		assert.True(t, ok, def.FeatureKey)
		assert.False(t, seen[def.FeatureKey], "duplicate definition %s", def.FeatureKey)
		seen[def.FeatureKey] = true
	}
	for _, f := range registry.Features() {
		if f.Key == rbac.FeatureProfile {
			continue
		}
		assert.True(t, seen[f.Key], "feature %s has no screens", f.Key)
	}
}

func TestParseConvertsKinds(t *testing.T) {
	s := NewService(nil, nil)
	payload, errs := s.Parse(definition(t, rbac.FeaturePets), map[string]string{
		"name": " Max ", "species": "dog", "vaccinated": "on", "apartmentId": "301",
	})
	assert.Empty(t, errs)
	assert.Equal(t, map[string]any{"name": "Max", "species": "dog", "vaccinated": true, "apartmentId": 301.0}, payload)
}

func TestParseReportsRuleViolations(t *testing.T) {
	s := NewService(nil, nil)
	_, errs := s.Parse(definition(t, rbac.FeaturePayments), map[string]string{
		"apartmentId": "1", "concept": "Cuota", "amount": "abc", "dueDate": "31/12/2025", "status": "unknown",
	})
	assert.Equal(t, "Debe ser un número.", errs["amount"])
	assert.Equal(t, "Usa el formato AAAA-MM-DD.", errs["dueDate"])
	assert.Equal(t, "Selecciona una opción válida.", errs["status"])
	assert.NotContains(t, errs, "concept")
}

func TestParseOmitsEmptyOptionalFields(t *testing.T) {
	s := NewService(nil, nil)
	payload, errs := s.Parse(definition(t, rbac.FeatureOwners), map[string]string{
		"fullName": "Ana", "document": "123", "email": "ana@example.com",
	})
	assert.Empty(t, errs)
	assert.NotContains(t, payload, "phone")
}

type countingBackend struct {
	Backend
}

func (countingBackend) Count(_ context.Context, resource string) (int, error) {
	if resource == "towers" {
		return 0, errors.New("down")
	}
	return len(resource), nil
}

func TestCountsToleratesFailures(t *testing.T) {
	s := NewService(countingBackend{}, nil)
	counts := s.Counts(context.Background(), []Definition{definition(t, rbac.FeatureOwners), definition(t, rbac.FeatureTowers)})
	if assert.NotNil(t, counts[rbac.FeatureOwners]) {
		assert.Equal(t, len("owners"), *counts[rbac.FeatureOwners])
	}
	assert.Nil(t, counts[rbac.FeatureTowers])
}

var _ Backend = (*valhalla.Client)(nil)

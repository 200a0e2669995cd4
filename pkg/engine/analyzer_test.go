package engine

import (
	"strings"
	"testing"

	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasWarning(report *ValidationReport, fragment string) bool {
	for _, w := range report.Warnings {
		if strings.Contains(w, fragment) {
			return true
		}
	}
	return false
}

func TestAnalyze_Valid(t *testing.T) {
	report, err := Analyze(&config.MockConfig{Endpoints: []config.Endpoint{retryEndpoint()}})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 1, report.Endpoints)
}

func TestAnalyze_Errors(t *testing.T) {
	ep := retryEndpoint()
	ep.Method = "FETCH"
	report, err := Analyze(&config.MockConfig{Endpoints: []config.Endpoint{ep}})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "FETCH")
}

func TestAnalyze_Warnings(t *testing.T) {
	cfg := &config.MockConfig{Endpoints: []config.Endpoint{
		{Name: "a", Method: "GET", Path: "/users/:id", Responses: []config.Response{{Status: 200}}},
		{Name: "b", Method: "GET", Path: "/users/:uid", Responses: []config.Response{{Status: 200}}},
		{Name: "c", Method: "GET", Path: "/c", Responses: []config.Response{
			{Status: 200},
			{Status: 201, Condition: "query.x == '1'"},
			{Status: 503, Default: true, Condition: "request_count > 1"},
		}},
		{Name: "d", Method: "GET", Path: "/d", Responses: []config.Response{
			{Status: 200, Weight: ptr(0.0)},
			{Status: 500, Weight: ptr(0.0)},
		}},
	}}

	report, err := Analyze(cfg)
	require.NoError(t, err)
	assert.True(t, report.Valid)

	assert.True(t, hasWarning(report, "Endpoint 'b'"), report.Warnings)
	assert.True(t, hasWarning(report, "'c' resposta 1: inalcançável"), report.Warnings)
	assert.True(t, hasWarning(report, "'c' resposta 2: a condição da resposta default é ignorada"), report.Warnings)
	assert.True(t, hasWarning(report, "'c' resposta 2: default inalcançável"), report.Warnings)
	assert.True(t, hasWarning(report, "'d': soma dos pesos é zero"), report.Warnings)
}

func TestRuleSet_Summary(t *testing.T) {
	se := newEngine(t, []config.Endpoint{retryEndpoint()})
	sum := se.Current().Summary()

	assert.Equal(t, uint64(1), sum.Generation)
	require.Len(t, sum.Endpoints, 1)
	assert.Equal(t, EndpointSummary{
		Name: "retry", Method: "GET", Path: "/retry", Stateful: true, Responses: 2, HasDefault: true,
	}, sum.Endpoints[0])
	assert.ElementsMatch(t, []string{"GET"}, se.Current().Allowed("/retry"))
}

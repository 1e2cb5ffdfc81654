package debtagg

import (
	"testing"

	"github.com/panbanda/arrears/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(file, name string, start, end uint32) Span {
	return Span{ID: models.NewFunctionID(file, name, start), Start: start, End: end}
}

func marker(file string, line uint32, kind models.MarkerKind) models.DebtMarker {
	return models.DebtMarker{File: file, Line: line, Kind: kind}
}

func TestMarkersJoinToContainingFunction(t *testing.T) {
	agg := New([]Span{
		span("a.rs", "first", 1, 10),
		span("a.rs", "second", 20, 35),
	})
	agg.Absorb([]models.DebtMarker{
		marker("a.rs", 5, models.MarkerTodo),
		marker("a.rs", 10, models.MarkerFixme),
		marker("a.rs", 25, models.MarkerErrorSwallow),
	})

	first := agg.Counts(models.NewFunctionID("a.rs", "first", 1))
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Todos)
	assert.Equal(t, 1, first.Fixmes)

	second := agg.Counts(models.NewFunctionID("a.rs", "second", 20))
	require.NotNil(t, second)
	assert.Equal(t, 1, second.ErrorSwallows)
	assert.Equal(t, 1, second.Total())
}

func TestMarkersOutsideAnyFunctionDropped(t *testing.T) {
	agg := New([]Span{span("a.rs", "only", 10, 20)})
	agg.Absorb([]models.DebtMarker{
		marker("a.rs", 5, models.MarkerTodo),   // before
		marker("a.rs", 25, models.MarkerTodo),  // after
		marker("b.rs", 15, models.MarkerTodo),  // wrong file
		marker("a.rs", 15, models.MarkerFixme), // inside
	})

	assert.Equal(t, 3, agg.Dropped())
	c := agg.Counts(models.NewFunctionID("a.rs", "only", 10))
	require.NotNil(t, c)
	assert.Equal(t, 1, c.Total())
}

func TestBoundaryLinesInclusive(t *testing.T) {
	agg := New([]Span{span("a.rs", "f", 10, 20)})
	agg.Absorb([]models.DebtMarker{
		marker("a.rs", 10, models.MarkerTodo),
		marker("a.rs", 20, models.MarkerTodo),
	})
	c := agg.Counts(models.NewFunctionID("a.rs", "f", 10))
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Todos)
}

func TestFirstPayloadKeptPerKind(t *testing.T) {
	agg := New([]Span{span("a.rs", "f", 1, 50)})
	agg.Absorb([]models.DebtMarker{
		{File: "a.rs", Line: 2, Kind: models.MarkerErrorSwallow, Payload: "empty catch"},
		{File: "a.rs", Line: 9, Kind: models.MarkerErrorSwallow, Payload: "except: pass"},
	})
	c := agg.Counts(models.NewFunctionID("a.rs", "f", 1))
	require.NotNil(t, c)
	assert.Equal(t, 2, c.ErrorSwallows)
	assert.Equal(t, "empty catch", c.Payloads[models.MarkerErrorSwallow])
}

func TestSpansFromMetrics(t *testing.T) {
	m := &models.FunctionMetrics{ID: models.NewFunctionID("a.rs", "f", 7), Length: 4}
	spans := SpansFromMetrics([]*models.FunctionMetrics{m})
	require.Len(t, spans, 1)
	assert.Equal(t, uint32(7), spans[0].Start)
	assert.Equal(t, uint32(10), spans[0].End)
}

func TestDeterministicAcrossAbsorbOrder(t *testing.T) {
	build := func(ms []models.DebtMarker) *Aggregator {
		agg := New([]Span{span("a.rs", "f", 1, 100)})
		agg.Absorb(ms)
		return agg
	}
	ms := []models.DebtMarker{
		marker("a.rs", 3, models.MarkerTodo),
		marker("a.rs", 40, models.MarkerHack),
		marker("a.rs", 90, models.MarkerSuppression),
	}
	reversed := []models.DebtMarker{ms[2], ms[1], ms[0]}

	a := build(ms).Counts(models.NewFunctionID("a.rs", "f", 1))
	b := build(reversed).Counts(models.NewFunctionID("a.rs", "f", 1))
	assert.Equal(t, a.Total(), b.Total())
	assert.Equal(t, a.Todos, b.Todos)
	assert.Equal(t, a.Hacks, b.Hacks)
	assert.Equal(t, a.Suppressions, b.Suppressions)
}

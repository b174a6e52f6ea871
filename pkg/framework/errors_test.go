package framework

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregatedError(t *testing.T) {
	var agg AggregatedError
	require.NoError(t, agg.Aggregate())

	agg.Add(nil, errors.New("pump: read closed"), nil)
	agg.Add(errors.New("transport: dial refused"))
	err := agg.Aggregate()
	require.Error(t, err)
	require.Len(t, agg.Errors, 2)
	require.Equal(t, "multiple errors:\npump: read closed\ntransport: dial refused", err.Error())
}

package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" authorization = Bearer abc ,x-team=farm,,novalue,=skip")
	require.Equal(t, map[string]string{
		"authorization": "Bearer abc",
		"x-team":        "farm",
	}, headers)
}

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "farmd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{Traces: true})
	require.Error(t, err)
}

func TestInitRejectsSampleRatio(t *testing.T) {
	_, err := Init(context.Background(), Config{ServiceName: "farmd", Traces: true, SampleRatio: 1.5})
	require.Error(t, err)
}

//go:build integration

package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catastro/internal/platform/config"
	"catastro/pkg/testutil/containers"
)

func TestNewPingsBrokers(t *testing.T) {
	rp := containers.GetManager().GetRedpanda(t)

	client, err := New(context.Background(), config.Kafka{Brokers: []string{rp.Broker}, Topic: "catastro.test.platform"})
	require.NoError(t, err)
	require.NotNil(t, client)
	client.Close()
}

func TestNewWithoutBrokersIsDisabled(t *testing.T) {
	client, err := New(context.Background(), config.Kafka{})
	assert.NoError(t, err)
	assert.Nil(t, client)
}

package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutBrokersIsDisabled(t *testing.T) {
	client, err := New(nil, "casedesk.lifecycle")
	require.NoError(t, err)
	assert.Nil(t, client)
}

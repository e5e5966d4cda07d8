package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/pkg/core"
)

func TestEnvelope_CarriesRawPayload(t *testing.T) {
	raw, err := json.Marshal(SessionStartPayload{
		Session: &core.Session{ID: "s1"},
		Markers: []core.MarkerDescriptor{{Name: "chapel"}},
	})
	require.NoError(t, err)

	data, err := json.Marshal(Envelope{Type: TypeSessionStart, Payload: raw})
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TypeSessionStart, decoded.Type)

	var start SessionStartPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &start))
	assert.Equal(t, "s1", start.Session.ID)
	require.Len(t, start.Markers, 1)
	assert.Equal(t, "chapel", start.Markers[0].Name)
}

func TestAckMessage_Decode(t *testing.T) {
	var ack AckMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ack","for":"session_end"}`), &ack))
	assert.Equal(t, TypeAck, ack.Type)
	assert.Equal(t, TypeSessionEnd, ack.For)
}

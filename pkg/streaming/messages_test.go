package streaming

import (
	"encoding/json"
	"testing"

	"github.com/aigeo-prime/firewatch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Telemetry(t *testing.T) {
	snaps := []core.TelemetrySnapshot{{EntityID: "scout-alpha-01", Kind: core.KindGround, Battery: 99.5}}

	b, err := Encode(TypeTelemetry, 7, snaps)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.JSONEq(t, `"telemetry"`, string(raw["type"]))
	assert.JSONEq(t, `7`, string(raw["seq"]))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(raw["payload"], &got))
	require.Len(t, got, 1)
	assert.Equal(t, "scout-alpha-01", got[0]["entityId"])
	assert.Equal(t, "scout", got[0]["type"])
	assert.NotContains(t, got[0], "altitude")
}

func TestEncode_RawPayloadAndNoSeq(t *testing.T) {
	b, err := Encode(TypeFireData, 0, []byte(`{"type":"FeatureCollection","features":[]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"fire_data","payload":{"type":"FeatureCollection","features":[]}}`, string(b))

	b, err = Encode(TypePong, 0, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(b))
}

func TestEncode_MarshalError(t *testing.T) {
	_, err := Encode(TypeTelemetry, 1, make(chan int))
	assert.Error(t, err)
}

func TestEncodeError(t *testing.T) {
	assert.JSONEq(t, `{"type":"error","payload":{"message":"unknown message type: foo"}}`,
		string(EncodeError("unknown message type: foo")))
}

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"type":"get_state"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeGetState, env.Type)

	_, err = Decode([]byte(`{}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

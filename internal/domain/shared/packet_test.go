package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestPacket(t *testing.T) {
	pkt, err := NewRequestPacket("id-1", "ping", map[string]any{"count": 2})
	require.NoError(t, err)

	assert.Equal(t, "id-1", pkt.PacketID)
	assert.Equal(t, TypeRequest, pkt.Type)

	payload, err := pkt.DecodeRequest()
	require.NoError(t, err)
	assert.Equal(t, "ping", payload.Route)
	assert.Equal(t, float64(2), payload.Arguments["count"])
}

func TestNewRequestPacket_NilArguments(t *testing.T) {
	pkt, err := NewRequestPacket("id-1", "ping", nil)
	require.NoError(t, err)

	payload, err := pkt.DecodeRequest()
	require.NoError(t, err)
	assert.NotNil(t, payload.Arguments)
	assert.Empty(t, payload.Arguments)
}

func TestNewClientToServerPacket(t *testing.T) {
	pkt, err := NewClientToServerPacket("id-2", "status", nil)
	require.NoError(t, err)
	assert.Equal(t, TypeClientToServer, pkt.Type)
}

func TestNewResponsePacket_EchoesPacketID(t *testing.T) {
	pkt, err := NewResponsePacket("id-3", "pong")
	require.NoError(t, err)

	assert.Equal(t, "id-3", pkt.PacketID)
	assert.Equal(t, TypeResponse, pkt.Type)

	var value string
	require.NoError(t, json.Unmarshal(pkt.Data, &value))
	assert.Equal(t, "pong", value)
}

func TestNewResponsePacket_UnencodableValue(t *testing.T) {
	_, err := NewResponsePacket("id-3", func() {})
	assert.Error(t, err)
}

func TestNewFailurePacket(t *testing.T) {
	pkt := NewFailurePacket("id-4", "boom")
	assert.Equal(t, TypeFailureResponse, pkt.Type)

	payload, err := pkt.DecodeFailure()
	require.NoError(t, err)
	assert.Equal(t, "boom", payload.Exception)
}

func TestNewIdentifyPacket_WithOverrideKey(t *testing.T) {
	pkt := NewIdentifyPacket("worker-1", "secret")
	assert.Equal(t, IdentifyPacketID, pkt.PacketID)

	payload, err := pkt.DecodeIdentify()
	require.NoError(t, err)
	assert.Equal(t, "worker-1", payload.ClientIdentifier)
	require.NotNil(t, payload.OverrideKey)
	assert.Equal(t, "secret", *payload.OverrideKey)
}

func TestNewIdentifyPacket_EmptyOverrideKeyIsNull(t *testing.T) {
	frame, err := NewIdentifyPacket("worker-1", "").Encode()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(frame, &raw))
	data, ok := raw["data"].(map[string]any)
	require.True(t, ok)

	// The key must be present and explicitly null.
	value, present := data["override_key"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestParsePacket_RoundTrip(t *testing.T) {
	original, err := NewRequestPacket("id-5", "ping", map[string]any{"a": "b"})
	require.NoError(t, err)
	frame, err := original.Encode()
	require.NoError(t, err)

	parsed, err := ParsePacket(frame)
	require.NoError(t, err)
	assert.Equal(t, original.PacketID, parsed.PacketID)
	assert.Equal(t, original.Type, parsed.Type)

	payload, err := parsed.DecodeRequest()
	require.NoError(t, err)
	assert.Equal(t, "b", payload.Arguments["a"])
}

func TestParsePacket_InvalidJSON(t *testing.T) {
	_, err := ParsePacket([]byte("{not json"))
	assert.Error(t, err)
}

func TestParsePacket_MissingType(t *testing.T) {
	_, err := ParsePacket([]byte(`{"packet_id": "x", "data": {}}`))
	assert.Error(t, err)
}

func TestParsePacket_UnknownTypeParses(t *testing.T) {
	// An unknown type is a dispatch-level concern, not a parse failure.
	pkt, err := ParsePacket([]byte(`{"packet_id": "x", "type": "mystery"}`))
	require.NoError(t, err)
	assert.False(t, pkt.Type.IsValid())
}

func TestPacketType_IsValid(t *testing.T) {
	for _, typ := range []PacketType{
		TypeRequest, TypeResponse, TypeIdentify, TypeClientToServer, TypeFailureResponse,
	} {
		assert.True(t, typ.IsValid(), string(typ))
	}
	assert.False(t, PacketType("nope").IsValid())
}

func TestDecodeRequest_MissingRoute(t *testing.T) {
	pkt := &Packet{
		PacketID: "x",
		Type:     TypeRequest,
		Data:     json.RawMessage(`{"arguments": {}}`),
	}
	_, err := pkt.DecodeRequest()
	assert.Error(t, err)
}

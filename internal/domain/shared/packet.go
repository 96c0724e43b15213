package shared

import (
	"encoding/json"
	"fmt"
)

// PacketType identifies the kind of frame carried inside the envelope.
type PacketType string

const (
	// TypeRequest is a server-originated request targeting a client route.
	TypeRequest PacketType = "request"
	// TypeResponse carries a handler's return value back to the requester.
	TypeResponse PacketType = "response"
	// TypeIdentify is the first frame a client sends after connecting, and
	// the acknowledgement the server returns once the client is admitted.
	TypeIdentify PacketType = "identify"
	// TypeClientToServer is the client-originated analogue of TypeRequest.
	TypeClientToServer PacketType = "client_to_server"
	// TypeFailureResponse reports a remote handler failure to the requester.
	TypeFailureResponse PacketType = "failure_response"
)

// IdentifyPacketID is the conventional packet id of an identify frame.
// Receivers must not rely on its value.
const IdentifyPacketID = "IDENTIFY"

// Packet is the wire envelope shared by every frame. The shape of Data is
// determined by Type.
type Packet struct {
	PacketID string          `json:"packet_id"`
	Type     PacketType      `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// RequestPayload is the Data of a request or client_to_server frame.
type RequestPayload struct {
	Route     string         `json:"route"`
	Arguments map[string]any `json:"arguments"`
}

// FailurePayload is the Data of a failure_response frame. Exception carries
// the stringified error raised by the remote handler.
type FailurePayload struct {
	Exception string `json:"exception"`
}

// IdentifyPayload is the Data of an identify frame. OverrideKey is nil when
// the client is not attempting to reclaim an already-bound identifier.
type IdentifyPayload struct {
	OverrideKey      *string `json:"override_key"`
	ClientIdentifier string  `json:"client_identifier"`
}

// IsValid reports whether t is one of the five known packet types.
func (t PacketType) IsValid() bool {
	switch t {
	case TypeRequest, TypeResponse, TypeIdentify, TypeClientToServer, TypeFailureResponse:
		return true
	}
	return false
}

// NewRequestPacket builds a request frame for the given route and arguments.
func NewRequestPacket(packetID, route string, arguments map[string]any) (*Packet, error) {
	return newRoutedPacket(TypeRequest, packetID, route, arguments)
}

// NewClientToServerPacket builds the client-originated request frame.
func NewClientToServerPacket(packetID, route string, arguments map[string]any) (*Packet, error) {
	return newRoutedPacket(TypeClientToServer, packetID, route, arguments)
}

func newRoutedPacket(typ PacketType, packetID, route string, arguments map[string]any) (*Packet, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}
	data, err := json.Marshal(RequestPayload{Route: route, Arguments: arguments})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return &Packet{PacketID: packetID, Type: typ, Data: data}, nil
}

// NewResponsePacket builds a response frame echoing the request's packet id.
// The value must be JSON-encodable.
func NewResponsePacket(packetID string, value any) (*Packet, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response value: %w", err)
	}
	return &Packet{PacketID: packetID, Type: TypeResponse, Data: data}, nil
}

// NewFailurePacket builds a failure_response frame carrying the stringified
// cause of a handler failure.
func NewFailurePacket(packetID, exception string) *Packet {
	data, _ := json.Marshal(FailurePayload{Exception: exception})
	return &Packet{PacketID: packetID, Type: TypeFailureResponse, Data: data}
}

// NewIdentifyPacket builds the identify frame. An empty overrideKey is
// serialized as an explicit null.
func NewIdentifyPacket(clientIdentifier, overrideKey string) *Packet {
	payload := IdentifyPayload{ClientIdentifier: clientIdentifier}
	if overrideKey != "" {
		payload.OverrideKey = &overrideKey
	}
	data, _ := json.Marshal(payload)
	return &Packet{PacketID: IdentifyPacketID, Type: TypeIdentify, Data: data}
}

// ParsePacket decodes a raw text frame into a Packet. It rejects frames that
// are not valid JSON or that lack a type. A well-formed frame with an unknown
// type parses successfully; rejecting it is the dispatcher's decision so that
// the session can stay alive.
func ParsePacket(frame []byte) (*Packet, error) {
	var p Packet
	if err := json.Unmarshal(frame, &p); err != nil {
		return nil, fmt.Errorf("malformed packet: %w", err)
	}
	if p.Type == "" {
		return nil, fmt.Errorf("malformed packet: missing type")
	}
	return &p, nil
}

// Encode serializes the packet to a UTF-8 JSON text frame.
func (p *Packet) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode packet: %w", err)
	}
	return data, nil
}

// DecodeRequest decodes the Data of a request or client_to_server frame.
func (p *Packet) DecodeRequest() (*RequestPayload, error) {
	var payload RequestPayload
	if err := json.Unmarshal(p.Data, &payload); err != nil {
		return nil, fmt.Errorf("malformed request payload: %w", err)
	}
	if payload.Route == "" {
		return nil, fmt.Errorf("malformed request payload: missing route")
	}
	return &payload, nil
}

// DecodeFailure decodes the Data of a failure_response frame.
func (p *Packet) DecodeFailure() (*FailurePayload, error) {
	var payload FailurePayload
	if err := json.Unmarshal(p.Data, &payload); err != nil {
		return nil, fmt.Errorf("malformed failure payload: %w", err)
	}
	return &payload, nil
}

// DecodeIdentify decodes the Data of an identify frame.
func (p *Packet) DecodeIdentify() (*IdentifyPayload, error) {
	var payload IdentifyPayload
	if err := json.Unmarshal(p.Data, &payload); err != nil {
		return nil, fmt.Errorf("malformed identify payload: %w", err)
	}
	return &payload, nil
}

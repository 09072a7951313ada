// Package metricsws
package metricsws

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
)

// SubprotocolCBOR switches outbound frames to CBOR binary messages.
const SubprotocolCBOR = "fleetmon.cbor"

type Codec interface {
	Encode(v any) ([]byte, error)
	MessageType() int
}

type jsonCodec struct{}

func (jsonCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) MessageType() int             { return websocket.TextMessage }

type cborCodec struct {
	enc cbor.EncMode
}

func newCBORCodec() (*cborCodec, error) {
	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		return nil, err
	}
	return &cborCodec{enc: enc}, nil
}

func (c *cborCodec) Encode(v any) ([]byte, error) { return c.enc.Marshal(v) }
func (c *cborCodec) MessageType() int             { return websocket.BinaryMessage }

// decodeInbound reads a control frame. Text frames are JSON and binary frames
// are CBOR, whatever codec the session writes with.
func decodeInbound(messageType int, data []byte, v any) error {
	if messageType == websocket.BinaryMessage {
		return cbor.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

package store

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/tinylib/msgp/msgp"
)

// MsgpackBackendName is the registered name of MsgpackBackend.
const MsgpackBackendName = "msgpack"

// MsgpackBackend stores each observation as a zstd-compressed MessagePack
// document in observations/<id>.msgpack.zst. Unlike JSON, MessagePack keeps
// integers and floats apart.
type MsgpackBackend struct {
	fileStore
}

// EncodeAll and DecodeAll are safe for concurrent use.
var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

func init() {
	Register(MsgpackBackendName, func(home string) (Backend, error) {
		return NewMsgpackBackend(home), nil
	})
}

// NewMsgpackBackend returns a MessagePack backend rooted at home.
func NewMsgpackBackend(home string) *MsgpackBackend {
	return &MsgpackBackend{fileStore: fileStore{
		Base: NewBase(home),
		codec: fileCodec{
			ext:    ".msgpack.zst",
			encode: encodeMsgpack,
			decode: decodeMsgpack,
		},
	}}
}

// Name implements Backend.
func (b *MsgpackBackend) Name() string { return MsgpackBackendName }

func encodeMsgpack(obs Observation) ([]byte, error) {
	raw, err := msgp.AppendIntf(nil, obs.AsMap())
	if err != nil {
		return nil, err
	}

	enc, err := zstdEncoder()
	if err != nil {
		return nil, err
	}

	return enc.EncodeAll(raw, nil), nil
}

func decodeMsgpack(data []byte) (Observation, error) {
	dec, err := zstdDecoder()
	if err != nil {
		return Observation{}, err
	}

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return Observation{}, err
	}

	v, _, err := msgp.ReadIntfBytes(raw)
	if err != nil {
		return Observation{}, err
	}

	m, ok := v.(map[string]any)
	if !ok {
		return Observation{}, fmt.Errorf("expected a map, got %T", v)
	}

	return ObservationFromMap(m)
}

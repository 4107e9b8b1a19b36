package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

type note struct {
	messages.ApplicationBase
	Text string         `json:"text"`
	Blob messages.Bytes `json:"blob"`
}

func (*note) MessageKind() messages.Kind { return "note" }

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	r := messages.NewRegistry()
	require.NoError(t, r.Register("note", messages.KindApplication, func() messages.Message { return &note{} }))
	return New(r)
}

func TestCodec_HelloWireForm(t *testing.T) {
	c := newTestCodec(t)
	id := types.MustParsePeerID("00000000-0000-0000-0000-000000000001")
	h := messages.NewHello(id, 4096)

	payload, err := c.Encode(h)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(payload, &fields))
	assert.Equal(t, "hello", fields["type"])
	assert.Equal(t, id.String(), fields["moduleid"])
	assert.Equal(t, float64(4096), fields["framesize"])
	assert.Equal(t, h.MessageID().String(), fields["uuid"])
	assert.True(t, bytes.HasPrefix(payload, []byte(`{"type":"hello",`)))
}

func TestCodec_RoundTripCustom(t *testing.T) {
	c := newTestCodec(t)
	app := types.NewApplicationID()
	in := &note{ApplicationBase: messages.NewApplicationBase(app), Text: "hi", Blob: messages.Bytes{1, 2, 3}}

	payload, err := c.Encode(in)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"blob":"AQID"`)

	out, err := c.Decode(payload)
	require.NoError(t, err)
	n, ok := out.(*note)
	require.True(t, ok)
	assert.Equal(t, in.MessageID(), n.MessageID())
	assert.Equal(t, app, n.ApplicationID())
	assert.Equal(t, "hi", n.Text)
	assert.Equal(t, messages.Bytes{1, 2, 3}, n.Blob)
}

func TestCodec_ResponseKeepsSource(t *testing.T) {
	c := newTestCodec(t)
	req := messages.NewHello(types.NewPeerID(), 1)
	resp := messages.NewDefaultResponse(req.MessageID())

	payload, err := c.Encode(resp)
	require.NoError(t, err)
	out, err := c.Decode(payload)
	require.NoError(t, err)

	r, ok := out.(messages.Response)
	require.True(t, ok)
	assert.Equal(t, req.MessageID(), r.SourceID())
}

func TestCodec_DecodeErrors(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = c.Decode([]byte(`{"uuid":"00000000-0000-0000-0000-000000000000"}`))
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = c.Decode([]byte(`{"type":"unheard_of"}`))
	assert.ErrorIs(t, err, messages.ErrUnknownKind)

	_, err = c.Decode([]byte(`{"type":"response"}`))
	assert.ErrorIs(t, err, messages.ErrAbstractKind)

	_, err = c.Decode([]byte{'{', 0xff, '}'})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = c.Encode(nil)
	assert.ErrorIs(t, err, ErrNilMessage)
}

func TestCodec_Adapter(t *testing.T) {
	c := newTestCodec(t)
	c.RegisterAdapter("note", messages.AdapterFuncs{
		Marshal: func(m messages.Message) ([]byte, error) {
			return []byte(`{"text":"` + m.(*note).Text + `!"}`), nil
		},
		Unmarshal: func(data []byte) (messages.Message, error) {
			var n note
			if err := json.Unmarshal(data, &n); err != nil {
				return nil, err
			}
			n.Text += "?"
			return &n, nil
		},
	})

	payload, err := c.Encode(&note{Text: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"note","text":"x!"}`, string(payload))

	out, err := c.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "x!?", out.(*note).Text)

	// 非对象输出被拒绝
	c.RegisterAdapter("note", messages.AdapterFuncs{
		Marshal:   func(messages.Message) ([]byte, error) { return []byte(`[]`), nil },
		Unmarshal: func([]byte) (messages.Message, error) { return nil, errors.New("unused") },
	})
	_, err = c.Encode(&note{})
	assert.ErrorIs(t, err, ErrMalformed)

	// 移除后恢复默认映射
	c.RegisterAdapter("note", nil)
	payload, err = c.Encode(&note{Text: "y"})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"text":"y"`)
}

func TestCodec_EmptyObjectBody(t *testing.T) {
	c := newTestCodec(t)
	c.RegisterAdapter("note", messages.AdapterFuncs{
		Marshal:   func(messages.Message) ([]byte, error) { return []byte(`{ }`), nil },
		Unmarshal: func([]byte) (messages.Message, error) { return &note{}, nil },
	})
	payload, err := c.Encode(&note{})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"note"}`, string(payload))
}

package messages

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-modnet/pkg/types"
)

type testPing struct {
	ApplicationBase
	Text string `json:"text"`
}

func (*testPing) MessageKind() Kind { return "test_ping" }

type testPong struct {
	ResponseBase
}

func (*testPong) MessageKind() Kind { return "test_pong" }

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []Kind{KindDefaultResponse, KindResponse, KindMessage}, r.Chain(KindDefaultResponse))
	assert.Equal(t, []Kind{KindHello, KindMessage}, r.Chain(KindHello))
	assert.Equal(t, []Kind{KindMessage}, r.Chain(KindMessage))
	assert.Nil(t, r.Chain("nope"))

	m, err := r.New(KindHello)
	require.NoError(t, err)
	assert.IsType(t, &Hello{}, m)

	_, err = r.New(KindResponse)
	assert.ErrorIs(t, err, ErrAbstractKind)
	_, err = r.New("nope")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegistry_RegisterCustom(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("test_ping", KindApplication, func() Message { return &testPing{} }))
	require.NoError(t, r.Register("test_pong", KindResponse, func() Message { return &testPong{} }))

	assert.Equal(t, []Kind{"test_ping", KindApplication, KindMessage}, r.Chain("test_ping"))
	assert.True(t, r.IsA("test_pong", KindResponse))
	assert.False(t, r.IsA("test_ping", KindResponse))
	assert.True(t, r.Known("test_ping"))

	// 返回副本
	chain := r.Chain("test_ping")
	chain[0] = "mutated"
	assert.Equal(t, Kind("test_ping"), r.Chain("test_ping")[0])
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := NewRegistry()

	assert.ErrorIs(t, r.Register(KindHello, KindMessage, nil), ErrKindExists)
	assert.ErrorIs(t, r.Register("orphan", "missing", nil), ErrUnknownParent)

	// 工厂类型与注册类型不一致
	err := r.Register("other", KindMessage, func() Message { return &Hello{} })
	assert.ErrorIs(t, err, ErrKindMismatch)

	// response 之下必须是 Response
	err = r.Register("test_ping", KindResponse, func() Message { return &testPing{} })
	assert.ErrorIs(t, err, ErrKindMismatch)

	assert.Panics(t, func() { r.MustRegister(KindHello, KindMessage, nil) })
}

func TestBuiltinConstructors(t *testing.T) {
	id := types.NewPeerID()

	h := NewHello(id, 1024)
	assert.NotEqual(t, uuid.Nil, h.MessageID())
	assert.Equal(t, KindHello, h.MessageKind())

	req := NewHello(id, 1)
	resp := NewDefaultResponse(req.MessageID())
	assert.Equal(t, req.MessageID(), resp.SourceID())
	assert.NotEqual(t, resp.MessageID(), resp.SourceID())

	resp.SetSourceID(uuid.Nil)
	assert.Equal(t, uuid.Nil, resp.SourceID())

	app := types.NewApplicationID()
	p := &testPing{ApplicationBase: NewApplicationBase(app)}
	var am ApplicationMessage = p
	assert.Equal(t, app, am.ApplicationID())
}

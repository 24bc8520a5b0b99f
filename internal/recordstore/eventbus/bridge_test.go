package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linagora/overture/internal/recordstore/eventbus"
	rst "github.com/linagora/overture/internal/recordstore/types"
)

type recordingHandler struct {
	id     string
	events []eventbus.Event
	err    error
}

func (h *recordingHandler) ID() string { return h.id }

func (h *recordingHandler) Handle(e eventbus.Event) error {
	h.events = append(h.events, e)
	return h.err
}

func TestDispatch_StatusChangeReachesAllHandlersInRegistrationOrder(t *testing.T) {
	b := eventbus.New()
	var order []string
	a := &recordingHandler{id: "a"}
	c := &recordingHandler{id: "c"}
	b.Register(a)
	b.Register(c)

	b.OnStatusChange("widget", 1, rst.Empty, rst.Ready)

	for _, h := range []*recordingHandler{a, c} {
		require.Len(t, h.events, 1)
		assert.Equal(t, eventbus.StatusChanged, h.events[0].Type)
		order = append(order, h.id)
	}
	assert.Equal(t, []string{"a", "c"}, order)
}

func TestDispatch_DataChangeCarriesChangedKeys(t *testing.T) {
	b := eventbus.New()
	h := &recordingHandler{id: "h"}
	b.Register(h)

	b.OnDataChange("widget", 2, []string{"name", "x"})

	require.Len(t, h.events, 1)
	assert.Equal(t, eventbus.DataChanged, h.events[0].Type)
	assert.Equal(t, []string{"name", "x"}, h.events[0].ChangedKeys)
}

func TestUnregister_StopsFutureDispatch(t *testing.T) {
	b := eventbus.New()
	h := &recordingHandler{id: "h"}
	b.Register(h)

	require.True(t, b.Unregister("h"))
	b.OnStatusChange("widget", 1, rst.Empty, rst.Ready)

	assert.Empty(t, h.events)
}

func TestUnregister_UnknownIDReturnsFalse(t *testing.T) {
	b := eventbus.New()
	assert.False(t, b.Unregister("nope"))
}

func TestHandlers_ReturnsSortedSnapshot(t *testing.T) {
	b := eventbus.New()
	b.Register(&recordingHandler{id: "zeta"})
	b.Register(&recordingHandler{id: "alpha"})

	ids := make([]string, 0, 2)
	for _, h := range b.Handlers() {
		ids = append(ids, h.ID())
	}
	assert.Equal(t, []string{"alpha", "zeta"}, ids)
}

func TestDispatch_HandlerErrorDoesNotStopOtherHandlers(t *testing.T) {
	b := eventbus.New()
	failing := &recordingHandler{id: "failing", err: assert.AnError}
	ok := &recordingHandler{id: "ok"}
	b.Register(failing)
	b.Register(ok)

	b.OnStatusChange("widget", 1, rst.Empty, rst.Ready)

	assert.Len(t, failing.events, 1)
	assert.Len(t, ok.events, 1)
}

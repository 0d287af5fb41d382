package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatch(t *testing.T) {
	r := NewRouter()
	var got VenueUpdateRequest
	Register(r, ActionVenueUpdate, func(_ context.Context, _ *Conn, _ Inbound, req VenueUpdateRequest) error {
		got = req
		return nil
	})

	err := r.dispatch(context.Background(), nil, Inbound{
		Action: ActionVenueUpdate,
		Data:   json.RawMessage(`{"venueId":7,"data":{"crowdLevel":"low"}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.VenueID)
	assert.JSONEq(t, `{"crowdLevel":"low"}`, string(got.Data))
}

func TestRouterUnknownAction(t *testing.T) {
	r := NewRouter()
	err := r.dispatch(context.Background(), nil, Inbound{Action: "nonsense"})
	assert.ErrorIs(t, err, errUnknownAction)
}

func TestRouterMalformedPayload(t *testing.T) {
	r := NewRouter()
	Register(r, ActionVenueUpdate, func(_ context.Context, _ *Conn, _ Inbound, _ VenueUpdateRequest) error {
		t.Fatal("handler must not run on malformed payload")
		return nil
	})

	err := r.dispatch(context.Background(), nil, Inbound{
		Action: ActionVenueUpdate,
		Data:   json.RawMessage(`{"venueId":"seven"}`),
	})
	assert.EqualError(t, err, "malformed_payload")
}

func TestRouterValidatesPayload(t *testing.T) {
	r := NewRouter()
	Register(r, ActionVenueUpdate, func(_ context.Context, _ *Conn, _ Inbound, _ VenueUpdateRequest) error {
		t.Fatal("handler must not run on invalid payload")
		return nil
	})

	err := r.dispatch(context.Background(), nil, Inbound{
		Action: ActionVenueUpdate,
		Data:   json.RawMessage(`{"venueId":-3}`),
	})
	assert.EqualError(t, err, "invalid_payload")
}

func TestRegisterRejectsUnknownAction(t *testing.T) {
	r := NewRouter()
	assert.Panics(t, func() {
		Register(r, Action("bogus"), func(_ context.Context, _ *Conn, _ Inbound, _ json.RawMessage) error {
			return nil
		})
	})
}

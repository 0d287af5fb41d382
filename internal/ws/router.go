package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

var errUnknownAction = errors.New("unknown_action")

var validate = validator.New()

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *Conn, in Inbound) error

// Router maps every Action to exactly one handler.
type Router struct {
	handlers map[Action]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[Action]rawHandler)} }

// Register binds an action to a strongly-typed handler. The request type is
// decoded from the inbound data payload and validated before dispatch.
func Register[Req any](
	r *Router,
	action Action,
	h func(ctx context.Context, c *Conn, in Inbound, req Req) error,
) {
	if !action.Valid() {
		panic("ws router: unknown action " + string(action))
	}

	r.handlers[action] = func(ctx context.Context, c *Conn, in Inbound) error {
		var req Req
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &req); err != nil {
				return errors.New("malformed_payload")
			}
			if err := validate.Struct(&req); err != nil {
				var ive *validator.InvalidValidationError
				if !errors.As(err, &ive) { // non-struct Req types skip validation
					return errors.New("invalid_payload")
				}
			}
		}
		return h(ctx, c, in, req)
	}
}

// dispatch is called by the server's reader loop. Unknown actions surface as
// errUnknownAction; the caller logs and drops them without a reply.
func (r *Router) dispatch(ctx context.Context, c *Conn, in Inbound) error {
	h, ok := r.handlers[in.Action]
	if !ok {
		return errUnknownAction
	}
	return h(ctx, c, in)
}

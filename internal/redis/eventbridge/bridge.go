package eventbridge

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"venuehubgo/internal/ws"
)

// Run tails the "venue:*:events" Pub/Sub channels and injects every event
// into the in-process hub through the publish API. This is how server-side
// producers (venue status writers, crowd-level estimators) reach connected
// clients without holding a connection themselves.
// Run must be started once at service boot.
func Run(ctx context.Context, rdb *redis.Client, pub *ws.Publisher) {
	pubsub := rdb.PSubscribe(ctx, "venue:*:events")
	defer pubsub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			venueID, ok := parseVenueChannel(m.Channel)
			if !ok {
				zap.L().Warn("eventbridge.bad_channel", zap.String("channel", m.Channel))
				continue
			}
			pub.SendVenueUpdate(venueID, payloadOf(m.Payload))
		}
	}
}

// parseVenueChannel extracts the id from "venue:<id>:events".
func parseVenueChannel(ch string) (int64, bool) {
	parts := strings.Split(ch, ":")
	if len(parts) != 3 || parts[0] != "venue" || parts[2] != "events" {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// payloadOf forwards valid JSON as-is; anything else is wrapped so the
// outbound envelope stays well-formed.
func payloadOf(payload string) any {
	raw := json.RawMessage(payload)
	if json.Valid(raw) {
		return raw
	}
	return map[string]string{"raw": payload}
}

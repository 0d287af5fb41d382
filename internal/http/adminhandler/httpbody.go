package adminhandler

import "encoding/json"

type NotificationBody struct {
	Payload json.RawMessage `json:"payload" binding:"required" example:"{\"title\":\"Happy hour\"}"`
} // @name NotificationRequest

type VenueUpdateBody struct {
	Data json.RawMessage `json:"data" binding:"required" example:"{\"crowdLevel\":\"high\"}"`
} // @name VenueUpdateRequest

type DeliveryResponse struct {
	Delivered int `json:"delivered"`
} // @name DeliveryResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

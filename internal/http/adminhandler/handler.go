package adminhandler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"venuehubgo/internal/ws"
)

// Handler exposes the hub's publish API to server-side producers over REST.
// Not peer-facing: deploy it behind the internal network boundary.
type Handler struct {
	pub *ws.Publisher
}

func New(pub *ws.Publisher) *Handler { return &Handler{pub: pub} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/stats", h.stats)
	r.POST("/notifications/users/:id", h.notifyUser)
	r.POST("/notifications/rooms/:room", h.notifyRoom)
	r.POST("/notifications/global", h.notifyGlobal)
	r.POST("/venues/:id/update", h.venueUpdate)
}

// @Summary		Hub statistics
// @Description	Connection count, room count and per-room member counts.
// @Tags			Hub
// @Success		200	{object}	ws.Stats
// @Router			/stats [get]
func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.pub.GetStats())
}

// @Summary		Notify one user
// @Description	Delivers a notification to the first live connection authenticated as the user. A miss is reported, not an error.
// @Tags			Notifications
// @Param			id		path	string				true	"User ID"	default(user123)
// @Param			body	body	NotificationBody	true	"Notification payload"
// @Success		200	{object}	DeliveryResponse
// @Failure		400	{object}	ErrorResponse
// @Router			/notifications/users/{id} [post]
func (h *Handler) notifyUser(ginCtx *gin.Context) {
	var body NotificationBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	delivered := 0
	if h.pub.SendNotificationToUser(ginCtx.Param("id"), body.Payload) {
		delivered = 1
	}
	ginCtx.JSON(http.StatusOK, &DeliveryResponse{Delivered: delivered})
}

// @Summary		Notify a room
// @Tags			Notifications
// @Param			room	path	string				true	"Room name"	default(venue_1)
// @Param			body	body	NotificationBody	true	"Notification payload"
// @Success		200	{object}	DeliveryResponse
// @Failure		400	{object}	ErrorResponse
// @Router			/notifications/rooms/{room} [post]
func (h *Handler) notifyRoom(ginCtx *gin.Context) {
	var body NotificationBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	n := h.pub.SendNotificationToRoom(ginCtx.Param("room"), body.Payload)
	ginCtx.JSON(http.StatusOK, &DeliveryResponse{Delivered: n})
}

// @Summary		Notify every connection
// @Tags			Notifications
// @Param			body	body	NotificationBody	true	"Notification payload"
// @Success		200	{object}	DeliveryResponse
// @Failure		400	{object}	ErrorResponse
// @Router			/notifications/global [post]
func (h *Handler) notifyGlobal(ginCtx *gin.Context) {
	var body NotificationBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	n := h.pub.SendGlobalNotification(body.Payload)
	ginCtx.JSON(http.StatusOK, &DeliveryResponse{Delivered: n})
}

// @Summary		Publish a venue update
// @Description	Fans a venue_update event out to the venue's room.
// @Tags			Venues
// @Param			id		path	int				true	"Venue ID"	default(1)
// @Param			body	body	VenueUpdateBody	true	"Update payload"
// @Success		200	{object}	DeliveryResponse
// @Failure		400	{object}	ErrorResponse
// @Router			/venues/{id}/update [post]
func (h *Handler) venueUpdate(ginCtx *gin.Context) {
	venueID, err := strconv.ParseInt(ginCtx.Param("id"), 10, 64)
	if err != nil || venueID <= 0 {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "invalid venue id"})
		return
	}

	var body VenueUpdateBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	n := h.pub.SendVenueUpdate(venueID, body.Data)
	ginCtx.JSON(http.StatusOK, &DeliveryResponse{Delivered: n})
}

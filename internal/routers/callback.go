package routers

import (
	"context"
	"encoding/json"
	"net/http"

	"suno-relay/internal/callbacks"
	"suno-relay/internal/setup"
	"suno-relay/internal/shared"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type CallbackRouter struct {
	store    *callbacks.Store
	notifier callbacks.Notifier
	log      *zap.SugaredLogger
}

func RegisterCallbackRoutes(e *echo.Group, store *callbacks.Store, notifier callbacks.Notifier, log *zap.SugaredLogger) {
	if notifier == nil {
		notifier = callbacks.NopNotifier{}
	}
	callbackRouter := CallbackRouter{store: store, notifier: notifier, log: log}

	e.POST("/callback", callbackRouter.Record)
	e.GET("/callback/store", callbackRouter.Lookup)
}

func (cr *CallbackRouter) Record(cc echo.Context) error {
	c := cc.(*setup.Context)

	var payload callbacks.Payload
	d := json.NewDecoder(c.Request().Body)
	d.UseNumber()
	if err := d.Decode(&payload); err != nil || payload == nil {
		return writeError(c, shared.ErrInvalidJSON)
	}

	id := cr.store.Record(payload)
	if id == shared.UnknownCallbackID {
		c.Log.Warnw("Callback without id, stored under shared unknown slot")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), shared.NotifyTimeout)
		defer cancel()
		if err := cr.notifier.Notify(ctx, id, payload); err != nil {
			cr.log.Warnw("Failed to publish callback", "id", id, "error", err)
		}
	}()

	return c.JSON(http.StatusOK, shared.CallbackAck{Received: true, ID: id})
}

func (cr *CallbackRouter) Lookup(cc echo.Context) error {
	c := cc.(*setup.Context)
	id := c.QueryParam("id")
	if id == "" {
		keys := cr.store.Keys()
		return c.JSON(http.StatusOK, shared.CallbackIndex{
			Count: len(keys),
			Items: keys,
		})
	}

	payload, ok := cr.store.Get(id)
	if !ok {
		return c.JSON(http.StatusOK, shared.CallbackNotFound{Error: "not_found"})
	}
	return c.JSON(http.StatusOK, payload)
}

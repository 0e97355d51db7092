package httphandler

import (
	"net/http"

	"github.com/webitel/im-relay-service/internal/handler/ws"
	"github.com/webitel/im-relay-service/internal/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("http-handler",
	fx.Provide(
		NewStatusHandler,
		ws.NewWSHandler,
		func(wsh *ws.WSHandler, status *StatusHandler, m *metrics.Metrics) http.Handler {
			return NewRouter(RouterParams{
				WS:      wsh,
				Status:  status,
				Metrics: m.Handler(),
			})
		},
	),
)

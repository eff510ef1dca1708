package collector

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// Handler serves GET /stats (JSON counters) and GET /healthz
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !ctx.IsGet() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}

		switch string(ctx.Path()) {
		case "/stats":
			body, err := json.Marshal(s.Stats())
			if err != nil {
				ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
				return
			}
			ctx.SetContentType("application/json")
			ctx.SetBody(body)
		case "/healthz":
			select {
			case <-s.booted:
				ctx.SetBodyString("ok\n")
			default:
				ctx.Error("starting\n", fasthttp.StatusServiceUnavailable)
			}
		default:
			ctx.NotFound()
		}
	}
}

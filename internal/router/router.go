package routes

import (
	"net/http"

	_ "github.com/oggyb/sms-forwarder/internal/docs" // swagger docs
	"github.com/oggyb/sms-forwarder/internal/response"
	swaggerHandler "github.com/swaggo/http-swagger"
)

type AppDeps struct {
	Home       HomeHandler
	Forwarding ForwardingHandler

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}

type HomeHandler interface {
	Index(w http.ResponseWriter, r *http.Request)
	Health(w http.ResponseWriter, r *http.Request)
}

type ForwardingHandler interface {
	GetState(w http.ResponseWriter, r *http.Request)
	Toggle(w http.ResponseWriter, r *http.Request)
	ForceSync(w http.ResponseWriter, r *http.Request)
	GetDeliveries(w http.ResponseWriter, r *http.Request)
	GetStats(w http.ResponseWriter, r *http.Request)
}

func Register(mux *http.ServeMux, d AppDeps) {
	mux.HandleFunc("GET /{$}", d.Home.Index)
	mux.HandleFunc("GET /health", d.Home.Health)

	mux.HandleFunc("GET /forwarding", d.Forwarding.GetState)
	mux.HandleFunc("POST /forwarding", d.Forwarding.Toggle)
	mux.HandleFunc("POST /forwarding/sync", d.Forwarding.ForceSync)
	mux.HandleFunc("GET /deliveries", d.Forwarding.GetDeliveries)
	mux.HandleFunc("GET /stats", d.Forwarding.GetStats)

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	//Swagger
	mux.HandleFunc("GET /swagger/", swaggerHandler.WrapHandler)

	// Fallback handler for undefined routes (404)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.RespondError(w, http.StatusNotFound, "route not found")
	}))
}

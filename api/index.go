package handler

import (
	"net/http"
	"sync"

	"trubid-backend/bootstrap"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog/log"
)

var (
	once    sync.Once
	app     http.Handler
	initErr error
)

// Handler is the serverless entry point. The app is built on the first request and reused by warm
// instances.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		f, err := bootstrap.New()
		if err != nil {
			initErr = err
			log.Error().Err(err).Msg("serverless app create failed")
			return
		}
		app = adaptor.FiberApp(f)
	})
	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"error","error":{"message":"Service unavailable","statusCode":503,"details":{}}}`))
		return
	}
	r.RequestURI = r.URL.String()
	app.ServeHTTP(w, r)
}

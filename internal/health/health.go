package health

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Server answers hosting-platform health probes with a plain 200 so the
// process is not recycled while the gateway connection is idle.
type Server struct {
	srv *http.Server
}

func New(port string) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", handle)
	mux.HandleFunc("/healthz", handle)

	return &Server{
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background; listen errors other than a clean
// shutdown are logged, not fatal.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health: listen on %s: %v", s.srv.Addr, err)
		}
	}()
}

func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func handle(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

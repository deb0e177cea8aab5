package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	log "github.com/sirupsen/logrus"

	"github.com/nathanwhit/calc-reward-script/rewards"
	"github.com/nathanwhit/calc-reward-script/storage"
)

type WebServer struct {
	engine  *rewards.Engine
	storage *storage.Storage
	network string

	httpSvr *http.Server
}

type WebServerArgs struct {
	Network string
	Engine  *rewards.Engine
	Storage *storage.Storage

	BindAddr string
	BindPort int

	ShutdownChannel <-chan interface{}
	WG              *sync.WaitGroup
}

type ApiError struct {
	Error string `json:"error"`
}

func Start(args WebServerArgs) (*WebServer, error) {

	ws := &WebServer{
		engine:  args.Engine,
		storage: args.Storage,
		network: args.Network,
	}

	var router = mux.NewRouter()
	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	router.HandleFunc("/api/rewards/validator", ws.getValidatorReward).Methods(http.MethodGet)
	router.HandleFunc("/api/rewards/nominator", ws.getNominatorReward).Methods(http.MethodGet)
	router.HandleFunc("/api/rewards/era", ws.getEraRewards).Methods(http.MethodGet)
	router.HandleFunc("/api/rewards", ws.getRewardsMetadata).Methods(http.MethodGet)

	httpAddr := fmt.Sprintf("%s:%d", args.BindAddr, args.BindPort)

	ws.httpSvr = &http.Server{
		Handler: handlers.CombinedLoggingHandler(log.StandardLogger().Writer(),
			handlers.CORS(handlers.AllowedOrigins([]string{"*"}))(router)),
		Addr:         httpAddr,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.WithField("Addr", httpAddr).Info("Rewards API listening")

	// Launch webserver in background
	go func() {
		if err := ws.httpSvr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Httpserver: ListenAndServe()")
		}
		log.Info("Httpserver: Shutdown")
	}()

	// Wait for shutdown signal on channel
	go func() {
		defer args.WG.Done()

		<-args.ShutdownChannel

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := ws.httpSvr.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Httpserver: Shutdown()")
		}
	}()

	return ws, nil
}

func apiError(err error, w http.ResponseWriter) {
	e, _ := json.Marshal(ApiError{err.Error()})
	http.Error(w, string(e), http.StatusBadRequest)
}

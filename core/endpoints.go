package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"

	ex "ndx.service/data/extensions"
	sm "ndx.service/models"
)

const (
	DefaultAddr     = ":8080"
	maxRequestBytes = 1 << 20
)

// DefaultAllowedOrigins lets a frontend dev server call the API
var DefaultAllowedOrigins = []string{"http://localhost:3000"}

type ServerOptions struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

func GetHttpServer(sc *ServiceContext, opts ServerOptions) *http.Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}

	server := &http.Server{
		Addr:           opts.Addr,
		Handler:        sc.Router(opts.AllowedOrigins),
		ReadTimeout:    opts.ReadTimeout,
		WriteTimeout:   opts.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return server
}

// Router serves the API to browsers on allowedOrigins, DefaultAllowedOrigins when empty
func (sc *ServiceContext) Router(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Length", "X-Analysis-Id"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", sc.ping)
		r.Get("/sectors", sc.getSectors)
		r.Get("/constituents", sc.getConstituents)
		r.Post("/reference/refresh", sc.refreshReference)
		r.Post("/returns", sc.postReturns)
		r.Post("/returns/chart", sc.postReturnsChart)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func (sc *ServiceContext) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, &sm.PingResponse{Message: "pong"})
}

func (sc *ServiceContext) getSectors(w http.ResponseWriter, r *http.Request) {
	table, err := sc.Reference.Load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, &sm.SectorsResponse{Sectors: Sectors(table)})
}

// getConstituents returns the whole table, or the rows of the sectors given as repeated ?sector= params
func (sc *ServiceContext) getConstituents(w http.ResponseWriter, r *http.Request) {
	table, err := sc.Reference.Load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if sectors := r.URL.Query()["sector"]; len(sectors) > 0 {
		table = FilterBySector(table, sectors)
	}

	writeJSON(w, r, http.StatusOK, &sm.ConstituentsResponse{Count: len(table), Constituents: table})
}

func (sc *ServiceContext) refreshReference(w http.ResponseWriter, r *http.Request) {
	table, err := sc.Reference.Refresh(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, &sm.RefreshResponse{Count: len(table), LoadedAt: ex.FmtLong(sc.Reference.LoadedAt())})
}

func (sc *ServiceContext) postReturns(w http.ResponseWriter, r *http.Request) {
	a, err := sc.analyze(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, buildAnalysisResponse(a))
}

func (sc *ServiceContext) postReturnsChart(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseChartKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, r, &InvalidRequestError{Err: err})
		return
	}

	a, err := sc.analyze(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	png, err := RenderChart(a, kind)
	if errors.Is(err, ErrNoChartData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Analysis-Id", a.Id)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (sc *ServiceContext) analyze(w http.ResponseWriter, r *http.Request) (*Analysis, error) {
	var req sm.AnalysisRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, &InvalidRequestError{Err: fmt.Errorf("error decoding body: %w", err)}
	}

	in, err := sc.ParseAnalysisRequest(req)
	if err != nil {
		return nil, err
	}

	return sc.RunAnalysis(r.Context(), in)
}

func writeJSON[T any](w http.ResponseWriter, r *http.Request, status int, data *T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	res := sm.GetServiceResponseOk(data).WithRequestId(middleware.GetReqID(r.Context()))
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Error().Err(err).Msg("error encoding response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Int("status", status).Msg("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	res := sm.GetServiceResponseError(err.Error()).WithRequestId(middleware.GetReqID(r.Context()))
	if encErr := json.NewEncoder(w).Encode(res); encErr != nil {
		log.Error().Err(encErr).Msg("error encoding error response")
	}
}

// StatusFor maps domain errors onto HTTP statuses
func StatusFor(err error) int {
	var (
		mse *MissingSelectionError
		ire *InvalidRequestError
		due *DataUnavailableError
	)

	switch {
	case errors.As(err, &mse):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ire):
		return http.StatusBadRequest
	case errors.As(err, &due):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

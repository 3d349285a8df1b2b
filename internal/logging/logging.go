package logging

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger fields
const (
	PACKAGE   = "pkg"
	REQUESTID = "req_id"
	ENDPOINT  = "endpoint"
	STATUS    = "status"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// Setup configures the global logger. format is "json" or "console".
func Setup(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// New returns a logger tagged with pkg={pkg}.
func New(pkg string) zerolog.Logger {
	return log.With().Str(PACKAGE, pkg).Logger()
}

// Middleware logs one line per request once the handler returns.
func Middleware(next http.Handler) http.Handler {
	logger := New("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info().
			Str(REQUESTID, middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int(STATUS, ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

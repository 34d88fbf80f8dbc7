// Package fakeendpoint runs a small S3-flavoured HTTP endpoint that
// verifies incoming SigV4 signatures with internal/sigverify and stores
// objects in memory. The demo binary and the integration tests point the
// client at it to prove the full pipeline — encode, sign, send, decode —
// against a server that actually checks the signatures.
package fakeendpoint

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/prn-tf/awscore/internal/sigverify"
)

// Config configures a Server.
type Config struct {
	// Keys maps access key IDs to secret access keys the endpoint
	// accepts.
	Keys map[string]string

	// AllowAnonymous lets unsigned requests through (read-only).
	AllowAnonymous bool

	Logger zerolog.Logger
}

// Server is the in-memory endpoint.
type Server struct {
	cfg      Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	mu      sync.RWMutex
	objects map[string][]byte
}

// New returns a Server with its own metrics registry.
func New(cfg Config) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   cfg.Logger.With().Str("component", "fakeendpoint").Logger(),
		registry: prometheus.NewRegistry(),
		objects:  make(map[string][]byte),
	}
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_requests_total",
		Help: "Requests served, by method and status.",
	}, []string{"method", "status"})
	s.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "endpoint_request_duration_seconds",
		Help:    "Request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	s.registry.MustRegister(s.requests, s.latency)
	return s
}

// Handler returns the endpoint's router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Put("/{bucket}/*", s.putObject)
	r.Get("/{bucket}/*", s.getObject)
	r.Delete("/{bucket}/*", s.deleteObject)
	return r
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-amz-request-id", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.requests.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
		s.latency.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Msg("request served")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// authenticate verifies the request signature against the configured
// keys. Anonymous requests pass only when AllowAnonymous is set and the
// method is GET or HEAD.
func (s *Server) authenticate(r *http.Request) error {
	sv, err := sigverify.Parse(r)
	if errors.Is(err, sigverify.ErrMissingAuthorization) {
		if s.cfg.AllowAnonymous && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}
	secret, ok := s.cfg.Keys[sv.AccessKey]
	if !ok {
		return sigverify.ErrUnknownAccessKey
	}
	return sigverify.Verify(r, sv, secret, sigverify.PayloadHash(r))
}

func (s *Server) putObject(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticate(r); err != nil {
		s.writeAuthError(w, err)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "IncompleteBody", err.Error())
		return
	}
	if r.Header.Get("content-encoding") == "aws-chunked" {
		data, err = decodeChunked(data)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "InvalidChunkedEncoding", err.Error())
			return
		}
		if declared := r.Header.Get("x-amz-decoded-content-length"); declared != "" {
			n, perr := strconv.ParseInt(declared, 10, 64)
			if perr != nil || n != int64(len(data)) {
				s.writeError(w, http.StatusBadRequest, "IncompleteBody", "decoded length mismatch")
				return
			}
		}
	}

	s.mu.Lock()
	s.objects[objectKey(r)] = data
	s.mu.Unlock()

	sum := md5.Sum(data)
	w.Header().Set("ETag", `"`+hex.EncodeToString(sum[:])+`"`)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticate(r); err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.mu.RLock()
	data, ok := s.objects[objectKey(r)]
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) deleteObject(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticate(r); err != nil {
		s.writeAuthError(w, err)
		return
	}
	s.mu.Lock()
	delete(s.objects, objectKey(r))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func objectKey(r *http.Request) string {
	return chi.URLParam(r, "bucket") + "/" + chi.URLParam(r, "*")
}

func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	code := "SignatureDoesNotMatch"
	switch {
	case errors.Is(err, sigverify.ErrMissingAuthorization):
		code = "AccessDenied"
	case errors.Is(err, sigverify.ErrUnknownAccessKey):
		code = "InvalidAccessKeyId"
	case errors.Is(err, sigverify.ErrExpired):
		code = "AccessDenied"
	}
	s.writeError(w, http.StatusForbidden, code, err.Error())
}

// writeError emits an S3-style XML error document.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<Error><Code>%s</Code><Message>%s</Message></Error>", code, message)
}

// decodeChunked strips the aws-chunked framing, returning the original
// payload bytes.
func decodeChunked(framed []byte) ([]byte, error) {
	var out bytes.Buffer
	rest := framed
	for {
		nl := bytes.IndexByte(rest, '\n')
		if nl <= 0 {
			return nil, errors.New("missing chunk header")
		}
		header := strings.TrimRight(string(rest[:nl]), "\r")
		rest = rest[nl+1:]

		semi := strings.IndexByte(header, ';')
		if semi < 0 {
			return nil, errors.New("missing chunk signature")
		}
		size, err := strconv.ParseInt(header[:semi], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad chunk size: %w", err)
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if int64(len(rest)) < size+2 {
			return nil, errors.New("truncated chunk")
		}
		out.Write(rest[:size])
		if string(rest[size:size+2]) != "\r\n" {
			return nil, errors.New("missing chunk trailer")
		}
		rest = rest[size+2:]
	}
}

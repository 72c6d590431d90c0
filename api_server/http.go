package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"dy_code/abogus"
)

const (
	actionDetail  = "detail"
	actionReply   = "reply"
	actionBalance = "balance"
)

type Server struct {
	cfg        Config
	store      keyStore
	cache      keyCache
	signerOpts []abogus.Option
	signer     *abogus.Signer
	limiter    *keyLimiter
	metrics    *metrics
}

func NewServer(cfg Config, store keyStore, cache keyCache) *Server {
	opts := []abogus.Option{
		abogus.WithEnvironment(cfg.SignEnv),
		abogus.WithLogger(log.WithField("component", "signer")),
	}
	if cfg.SignFixedTS > 0 {
		opts = append(opts, abogus.WithFixedTimestamp(cfg.SignFixedTS))
	}
	if r := cfg.SignFixedRandom; len(r) == 3 {
		opts = append(opts, abogus.WithRandomValues(r[0], r[1], r[2]))
	}
	return &Server{
		cfg:        cfg,
		store:      store,
		cache:      cache,
		signerOpts: opts,
		signer:     abogus.NewSigner(opts...),
		limiter:    newKeyLimiter(cfg.RateLimit, cfg.RateBurst),
		metrics:    newMetrics(),
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api", s.handleAPI)
	mux.Handle("/metrics", s.metrics.handler())
	s.routesAdmin(mux)
	return mux
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	// form-data and x-www-form-urlencoded both land in ParseForm
	if err := r.ParseForm(); err != nil {
		s.reply(w, "", http.StatusBadRequest, map[string]string{"error": "invalid form"})
		return
	}

	key := strings.TrimSpace(r.FormValue("key"))
	action := strings.ToLower(strings.TrimSpace(r.FormValue("action")))

	if key == "" {
		s.reply(w, action, http.StatusUnauthorized, map[string]string{"error": "missing key"})
		return
	}
	row, err := s.validateAPIKey(r.Context(), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.reply(w, action, http.StatusUnauthorized, map[string]string{"error": "invalid key"})
			return
		}
		log.WithField("component", "api").Errorf("validate key: %v", err)
		s.reply(w, action, http.StatusInternalServerError, map[string]string{"error": "auth error"})
		return
	}
	if row == nil || !row.IsActive {
		s.reply(w, action, http.StatusUnauthorized, map[string]string{"error": "key disabled"})
		return
	}

	switch action {
	case actionDetail, actionReply:
		s.handleSign(w, r, key, action)
	case actionBalance:
		s.handleBalance(w, r, key)
	default:
		s.reply(w, action, http.StatusBadRequest, map[string]string{"error": "invalid action"})
	}
}

func (s *Server) signerFor(env string) *abogus.Signer {
	if env == "" || env == s.signer.Environment() {
		return s.signer
	}
	opts := append(append([]abogus.Option{}, s.signerOpts...), abogus.WithEnvironment(env))
	return abogus.NewSigner(opts...)
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request, apiKey, action string) {
	params := r.FormValue("params")
	ua := r.FormValue("ua")
	if strings.TrimSpace(ua) == "" {
		s.reply(w, action, http.StatusBadRequest, map[string]string{"error": "missing ua"})
		return
	}
	if !s.limiter.Allow(apiKey) {
		s.reply(w, action, http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
		return
	}
	signer := s.signerFor(r.FormValue("env"))

	start := time.Now()
	var token string
	var err error
	if action == actionReply {
		token, err = signer.SignReply(params, ua)
	} else {
		token, err = signer.SignDetail(params, ua)
	}
	s.metrics.observeSign(action, start)
	if err != nil {
		if isInputError(err) {
			s.reply(w, action, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.WithField("component", "api").Errorf("sign: %v", err)
		s.reply(w, action, http.StatusInternalServerError, map[string]string{"error": "sign error"})
		return
	}

	// charge only for a token we are about to hand out
	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	if err := s.store.ConsumeCredit(ctx, apiKey, action); err != nil {
		switch {
		case errors.Is(err, errInsufficientCredit):
			s.reply(w, action, http.StatusPaymentRequired, map[string]string{"error": "insufficient credit"})
		case errors.Is(err, errKeyDisabled), errors.Is(err, sql.ErrNoRows):
			s.reply(w, action, http.StatusUnauthorized, map[string]string{"error": "key disabled"})
		default:
			log.WithField("component", "api").Errorf("consume credit: %v", err)
			s.reply(w, action, http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		_ = s.refreshAPIKeyCache(r.Context(), apiKey)
		return
	}
	_ = s.refreshAPIKeyCache(r.Context(), apiKey)

	log.WithFields(log.Fields{
		"component": "api",
		"action":    action,
		"key":       maskKey(apiKey),
	}).Debug("token issued")

	s.reply(w, action, http.StatusOK, map[string]string{
		"a_bogus": token,
		"params":  joinParams(params, token),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, apiKey string) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	row, err := s.store.GetAPIKey(ctx, apiKey)
	if err != nil {
		s.reply(w, actionBalance, http.StatusInternalServerError, map[string]string{"error": "db error"})
		return
	}
	usage, err := s.store.GetUsage(ctx, apiKey)
	if err != nil {
		s.reply(w, actionBalance, http.StatusInternalServerError, map[string]string{"error": "db error"})
		return
	}
	s.reply(w, actionBalance, http.StatusOK, map[string]any{
		"credit":       strconv.FormatInt(row.Credit, 10),
		"total_credit": strconv.FormatInt(row.TotalCredit, 10),
		"usage":        usage,
		"used":         strconv.FormatInt(usage.Total(), 10),
	})
}

func (s *Server) validateAPIKey(parent context.Context, key string) (*APIKeyRow, error) {
	ctx, cancel := withTimeout(parent)
	defer cancel()

	if s.cache != nil {
		if row, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			s.metrics.cacheLookups.WithLabelValues("hit").Inc()
			return row, nil
		}
		s.metrics.cacheLookups.WithLabelValues("miss").Inc()
	}

	row, err := s.store.GetAPIKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, row)
	}
	return row, nil
}

func (s *Server) refreshAPIKeyCache(parent context.Context, key string) error {
	if s.cache == nil {
		return nil
	}
	ctx, cancel := withTimeout(parent)
	defer cancel()
	row, err := s.store.GetAPIKey(ctx, key)
	if err != nil {
		_ = s.cache.Delete(ctx, key)
		return err
	}
	return s.cache.Set(ctx, row)
}

func (s *Server) reply(w http.ResponseWriter, action string, code int, v any) {
	if action == "" {
		action = "unknown"
	}
	s.metrics.requests.WithLabelValues(action, strconv.Itoa(code)).Inc()
	writeJSON(w, code, v)
}

func isInputError(err error) bool {
	for _, target := range []error{abogus.ErrEncoding, abogus.ErrArguments, abogus.ErrRandomRange, abogus.ErrUnknownVariant, abogus.ErrEmptyKey} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// joinParams appends the token as the a_bogus query parameter.
func joinParams(params, token string) string {
	p := "a_bogus=" + url.QueryEscape(token)
	if params == "" {
		return p
	}
	return params + "&" + p
}

func maskKey(k string) string {
	if len(k) <= 6 {
		return "***"
	}
	return k[:3] + "***" + k[len(k)-3:]
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Warnf("write json error: %v", err)
	}
}

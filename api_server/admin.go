package main

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func md5HexLower(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (s *Server) routesAdmin(mux *http.ServeMux) {
	mux.HandleFunc("/admin/api_keys/add", s.handleAdminAddAPIKey)
	mux.HandleFunc("/admin/api_keys/active", s.handleAdminSetActive)
	mux.HandleFunc("/admin/stats", s.handleAdminStats)
}

// adminAuth parses the form and checks the password; it writes the error
// response itself and reports whether the caller may proceed.
func (s *Server) adminAuth(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "invalid form")
		return false
	}
	if s.cfg.AdminPasswordMD5 == "" {
		writeText(w, http.StatusInternalServerError, "ADMIN_PASSWORD_MD5 not set")
		return false
	}
	if md5HexLower(r.FormValue("password")) != s.cfg.AdminPasswordMD5 {
		writeText(w, http.StatusUnauthorized, "invalid password")
		return false
	}
	return true
}

func (s *Server) handleAdminAddAPIKey(w http.ResponseWriter, r *http.Request) {
	if !s.adminAuth(w, r) {
		return
	}

	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	merchant := strings.TrimSpace(r.FormValue("merchant_name"))
	creditDeltaStr := strings.TrimSpace(r.FormValue("credit_delta"))
	if apiKey == "" {
		writeText(w, http.StatusBadRequest, "api_key is required")
		return
	}
	delta, err := strconv.ParseInt(creditDeltaStr, 10, 64)
	if err != nil || delta <= 0 {
		writeText(w, http.StatusBadRequest, "credit_delta must be > 0")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.store.UpsertAPIKeyAddCredit(ctx, apiKey, merchant, delta); err != nil {
		writeText(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	_ = s.refreshAPIKeyCache(r.Context(), apiKey)

	log.WithFields(log.Fields{"component": "admin", "key": maskKey(apiKey), "delta": delta}).Info("credit added")
	writeText(w, http.StatusOK, "ok")
}

func (s *Server) handleAdminSetActive(w http.ResponseWriter, r *http.Request) {
	if !s.adminAuth(w, r) {
		return
	}

	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	if apiKey == "" {
		writeText(w, http.StatusBadRequest, "api_key is required")
		return
	}
	active, err := strconv.ParseBool(strings.TrimSpace(r.FormValue("active")))
	if err != nil {
		writeText(w, http.StatusBadRequest, "active must be true/false")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.store.SetAPIKeyActive(ctx, apiKey, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeText(w, http.StatusNotFound, "api_key not found")
			return
		}
		writeText(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	_ = s.refreshAPIKeyCache(r.Context(), apiKey)

	log.WithFields(log.Fields{"component": "admin", "key": maskKey(apiKey), "active": active}).Info("key state changed")
	writeText(w, http.StatusOK, "ok")
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}

package main

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/pkg/errors"
)

type KeyStat struct {
	Key    string `json:"key"`
	Credit int64  `json:"credit"`
	Usage  Usage  `json:"usage"`
}

type KeysStatsResp struct {
	Keys        int64     `json:"keys"`
	ActiveKeys  int64     `json:"active_keys"`
	Credit      int64     `json:"credit"`
	TotalCredit int64     `json:"total_credit"`
	Usage       Usage     `json:"usage"`
	Top         []KeyStat `json:"top"`
}

// Stats aggregates key counts, remaining credit and the busiest keys.
func (r *Repo) Stats(ctx context.Context, top int) (*KeysStatsResp, error) {
	var out KeysStatsResp
	const qKeys = `SELECT COUNT(*), COALESCE(SUM(is_active), 0), COALESCE(SUM(credit), 0), COALESCE(SUM(total_credit), 0) FROM api_keys`
	if err := r.db.QueryRowContext(ctx, qKeys).Scan(&out.Keys, &out.ActiveKeys, &out.Credit, &out.TotalCredit); err != nil {
		return nil, errors.Wrap(err, "count api_keys")
	}

	rows, err := r.db.QueryContext(ctx, `SELECT u.api_key, k.credit, u.action, COUNT(*) FROM sign_usage u JOIN api_keys k ON k.api_key = u.api_key GROUP BY u.api_key, k.credit, u.action`)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate sign_usage")
	}
	defer rows.Close()

	per := map[string]*KeyStat{}
	for rows.Next() {
		var key, action string
		var credit, n int64
		if err := rows.Scan(&key, &credit, &action, &n); err != nil {
			return nil, err
		}
		ks := per[key]
		if ks == nil {
			ks = &KeyStat{Key: key, Credit: credit}
			per[key] = ks
		}
		ks.Usage.add(action, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out.Top = rankKeys(per, top)
	for _, ks := range per {
		out.Usage.Detail += ks.Usage.Detail
		out.Usage.Reply += ks.Usage.Reply
	}
	return &out, nil
}

// rankKeys orders by total usage (then key) and keeps at most n entries with masked keys.
func rankKeys(per map[string]*KeyStat, n int) []KeyStat {
	all := make([]KeyStat, 0, len(per))
	for _, ks := range per {
		all = append(all, *ks)
	}
	sort.Slice(all, func(i, j int) bool {
		ti, tj := all[i].Usage.Total(), all[j].Usage.Total()
		if ti != tj {
			return ti > tj
		}
		return all[i].Key < all[j].Key
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	for i := range all {
		all[i].Key = maskKey(all[i].Key)
	}
	return all
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if !s.adminAuth(w, r) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()
	stats, err := s.store.Stats(ctx, getenvInt("ADMIN_STATS_TOP", 10))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

package main

import "time"

type APIKeyRow struct {
	Key          string    `json:"key"`
	MerchantName string    `json:"merchant_name"`
	IsActive     bool      `json:"is_active"`
	Credit       int64     `json:"credit"`
	TotalCredit  int64     `json:"total_credit"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Usage is the per-action sign count of one key.
type Usage struct {
	Detail int64 `json:"detail"`
	Reply  int64 `json:"reply"`
}

func (u Usage) Total() int64 {
	return u.Detail + u.Reply
}

func (u *Usage) add(action string, n int64) {
	switch action {
	case actionDetail:
		u.Detail += n
	case actionReply:
		u.Reply += n
	}
}

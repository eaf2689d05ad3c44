package livehttp

import (
	"mmbot/internal/store/model"
	"mmbot/internal/trader"
)

type StatusResponse struct {
	Status string `json:"status"`
}

type FlattenResponse struct {
	Status string               `json:"status"`
	Error  string               `json:"error,omitempty"`
	Result trader.FlattenResult `json:"result"`
}

type JournalResponse struct {
	Entries []model.JournalEntry `json:"entries"`
	Count   int                  `json:"count"`
}

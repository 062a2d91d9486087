// Package models defines the core domain types shared across the pipeline.
package models

import "time"

// Quote is a point-in-time market snapshot for one symbol. A Quote is
// immutable once created; Source records which provider actually served it.
type Quote struct {
	Symbol       string
	Name         string
	Timestamp    time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	PrevClose    float64
	Volume       int64
	Source       string
	FetchLatency time.Duration
}

// ChangePercent returns the percent change of Close against PrevClose.
func (q *Quote) ChangePercent() float64 {
	if q.PrevClose == 0 {
		return 0
	}
	return (q.Close - q.PrevClose) / q.PrevClose * 100
}

// Candle is one bar of daily history.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

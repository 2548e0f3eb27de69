package handlers

import (
	"net/http"
	"time"

	"github.com/Genius-apple/open-alpha/internal/dataset"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

// maxCandles caps the /api/data payload to the most recent rows.
const maxCandles = 2000

// DataService is the slice of the dataset layer the handlers need.
type DataService interface {
	Catalog() (map[string][]string, error)
	Frame(symbol, interval string) (*dataset.Frame, error)
	Range(symbol, interval string, from, to time.Time) (*dataset.Frame, error)
}

// DataHandler serves the catalog and raw candle endpoints
type DataHandler struct {
	svc    DataService
	logger *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(svc DataService, log *logger.Logger) *DataHandler {
	return &DataHandler{
		svc:    svc,
		logger: log,
	}
}

// Structure returns the available symbols and their intervals
// GET /api/structure
func (h *DataHandler) Structure(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.svc.Catalog()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read dataset catalog")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, catalog)
}

type candle struct {
	Time   int64   `json:"time"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type candleResponse struct {
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Data     []candle `json:"data"`
}

// Candles returns OHLCV rows for one symbol/interval, optionally
// restricted to a date range
// GET /api/data?symbol=BTC&interval=1d&start=2024-01-01&end=2024-06-30
func (h *DataHandler) Candles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	interval := q.Get("interval")
	if symbol == "" || interval == "" {
		respondError(w, http.StatusBadRequest, "symbol and interval are required")
		return
	}

	var from, to time.Time
	if start := q.Get("start"); start != "" {
		parsed, err := time.Parse("2006-01-02", start)
		if err != nil {
			respondError(w, http.StatusBadRequest, "start must be formatted as YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if end := q.Get("end"); end != "" {
		parsed, err := time.Parse("2006-01-02", end)
		if err != nil {
			respondError(w, http.StatusBadRequest, "end must be formatted as YYYY-MM-DD")
			return
		}
		// The end date is inclusive of the whole day.
		to = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	frame, err := h.svc.Range(symbol, interval, from, to)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol":   symbol,
			"interval": interval,
		}).Warn("Failed to load candles")
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame = frame.Tail(maxCandles)
	respondJSON(w, http.StatusOK, candleResponse{
		Symbol:   symbol,
		Interval: interval,
		Data:     candleRows(frame),
	})
}

func candleRows(frame *dataset.Frame) []candle {
	times := frame.Timestamps()
	rows := make([]candle, len(times))

	col := func(name string) dataset.Series {
		if s, ok := frame.Lookup(name); ok {
			return s
		}
		return nil
	}
	open, high, low := col("open"), col("high"), col("low")
	closes, volume := col("close"), col("volume")

	at := func(s dataset.Series, i int) float64 {
		if s == nil {
			return 0
		}
		return finiteOrZero(s[i])
	}

	for i, ts := range times {
		rows[i] = candle{
			Time:   ts.Unix(),
			Date:   ts.Format(dateFormat),
			Open:   at(open, i),
			High:   at(high, i),
			Low:    at(low, i),
			Close:  at(closes, i),
			Volume: at(volume, i),
		}
	}
	return rows
}

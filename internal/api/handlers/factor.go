package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Genius-apple/open-alpha/internal/backtest"
	"github.com/Genius-apple/open-alpha/internal/dataset"
	"github.com/Genius-apple/open-alpha/internal/factor"
	"github.com/Genius-apple/open-alpha/internal/metrics"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

// overlayRows caps the price-vs-factor overlay to the most recent rows.
const overlayRows = 200

var validate = validator.New()

// EvaluateRequest is the body of POST /api/evaluate.
type EvaluateRequest struct {
	Expression string `json:"expression" validate:"required"`
	Symbol     string `json:"symbol"`
	Interval   string `json:"interval"`
	Periods    int    `json:"periods" validate:"omitempty,min=1"`
	Quantile   int    `json:"quantile" validate:"omitempty,min=2,max=20"`
}

// FactorWeight is one leg of a composite factor.
type FactorWeight struct {
	Expression string  `json:"expression" validate:"required"`
	Weight     float64 `json:"weight"`
}

// CombineRequest is the body of POST /api/combine.
type CombineRequest struct {
	Factors  []FactorWeight `json:"factors" validate:"required,min=1,dive"`
	Symbol   string         `json:"symbol"`
	Interval string         `json:"interval"`
	Periods  int            `json:"periods" validate:"omitempty,min=1"`
	Quantile int            `json:"quantile" validate:"omitempty,min=2,max=20"`
}

type pricePoint struct {
	Date   string  `json:"date"`
	Close  float64 `json:"close"`
	Factor float64 `json:"factor"`
}

type evaluateResponse struct {
	Metrics     *backtest.Metrics       `json:"metrics"`
	EquityCurve []backtest.ChartPoint   `json:"equity_curve"`
	PriceData   []pricePoint            `json:"price_data"`
	ICHistogram []backtest.HistogramBin `json:"ic_histogram"`
	MonthlyIC   []backtest.MonthlyIC    `json:"cs_ic_data"`
	Layers      []backtest.LayerRow     `json:"layer_data"`
}

type factorDetail struct {
	Expression string  `json:"expression"`
	Weight     float64 `json:"weight"`
	IC         float64 `json:"ic"`
}

type combineResponse struct {
	Metrics       *backtest.Metrics       `json:"metrics"`
	EquityCurve   []backtest.ChartPoint   `json:"equity_curve"`
	Layers        []backtest.LayerRow     `json:"layer_data"`
	FactorDetails []factorDetail          `json:"factor_details"`
	ICHistogram   []backtest.HistogramBin `json:"ic_histogram"`
	MonthlyIC     []backtest.MonthlyIC    `json:"cs_ic_data"`
}

// FactorHandler evaluates factor expressions and backtests them
type FactorHandler struct {
	svc    DataService
	engine *factor.Engine
	logger *logger.Logger
}

// NewFactorHandler creates a new factor handler
func NewFactorHandler(svc DataService, engine *factor.Engine, log *logger.Logger) *FactorHandler {
	return &FactorHandler{
		svc:    svc,
		engine: engine,
		logger: log,
	}
}

// Evaluate runs one expression through the evaluator and backtester
// POST /api/evaluate
func (h *FactorHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	applyDataDefaults(&req.Symbol, &req.Interval)

	frame, err := h.svc.Frame(req.Symbol, req.Interval)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	evalStart := time.Now()
	raw, err := h.engine.Evaluate(req.Expression, frame)
	if err != nil {
		metrics.RecordEvaluation("error", time.Since(evalStart).Seconds())
		h.logger.WithError(err).WithField("expression", req.Expression).Warn("Factor evaluation failed")
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.RecordEvaluation("success", time.Since(evalStart).Seconds())

	filled := factor.CleanFill(raw, 0)

	res, ok := h.runBacktest(w, frame, filled, req.Periods, req.Quantile)
	if !ok {
		return
	}

	closes, _ := frame.Lookup("close")
	respondJSON(w, http.StatusOK, evaluateResponse{
		Metrics:     res.Metrics,
		EquityCurve: res.TimeSeries,
		PriceData:   priceOverlay(frame.Timestamps(), closes, filled),
		ICHistogram: res.ICHistogram,
		MonthlyIC:   res.MonthlyIC,
		Layers:      res.Layers,
	})
}

// Combine backtests a weighted sum of standardized factors
// POST /api/combine
func (h *FactorHandler) Combine(w http.ResponseWriter, r *http.Request) {
	var req CombineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	applyDataDefaults(&req.Symbol, &req.Interval)

	frame, err := h.svc.Frame(req.Symbol, req.Interval)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	bt, err := backtest.New(frame)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	fwd := bt.ForwardReturns(1)

	legs := make([]dataset.Series, 0, len(req.Factors))
	weights := make([]float64, 0, len(req.Factors))
	details := make([]factorDetail, 0, len(req.Factors))
	for _, item := range req.Factors {
		evalStart := time.Now()
		raw, err := h.engine.Evaluate(item.Expression, frame)
		if err != nil {
			metrics.RecordEvaluation("error", time.Since(evalStart).Seconds())
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("Error in factor '%s': %v", item.Expression, err))
			return
		}
		metrics.RecordEvaluation("success", time.Since(evalStart).Seconds())

		filled := factor.CleanFill(raw, 0)
		legs = append(legs, filled)
		weights = append(weights, item.Weight)
		details = append(details, factorDetail{
			Expression: item.Expression,
			Weight:     item.Weight,
			IC:         backtest.Correlation(filled, fwd),
		})
	}

	combo := factor.Combine(legs, weights, frame.Len())

	res, ok := h.runBacktest(w, frame, combo, req.Periods, req.Quantile)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, combineResponse{
		Metrics:       res.Metrics,
		EquityCurve:   res.TimeSeries,
		Layers:        res.Layers,
		FactorDetails: details,
		ICHistogram:   res.ICHistogram,
		MonthlyIC:     res.MonthlyIC,
	})
}

// runBacktest runs the shared backtest stage and writes the error
// response itself when the run cannot produce metrics.
func (h *FactorHandler) runBacktest(w http.ResponseWriter, frame *dataset.Frame, f dataset.Series, periods, quantile int) (*backtest.Result, bool) {
	bt, err := backtest.New(frame)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	cfg := backtest.Config{Periods: periods, NQuantiles: quantile}
	btStart := time.Now()
	res, err := bt.Run(f, cfg)
	if err != nil {
		metrics.RecordBacktest("error", time.Since(btStart).Seconds())
		h.logger.WithError(err).Error("Backtest run failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if res.Insufficient() {
		metrics.RecordBacktest("insufficient_data", time.Since(btStart).Seconds())
		respondError(w, http.StatusBadRequest, res.Error)
		return nil, false
	}
	metrics.RecordBacktest("success", time.Since(btStart).Seconds())
	metrics.RecordFactorScore(float64(res.Metrics.Score))
	return res, true
}

// applyDataDefaults fills the default dataset selection.
func applyDataDefaults(symbol, interval *string) {
	if *symbol == "" {
		*symbol = "BTC"
	}
	if *interval == "" {
		*interval = "1d"
	}
}

// priceOverlay shapes the recent close and factor values for the
// overlay chart. Non-finite values render as 0.
func priceOverlay(times []time.Time, closes, factorVals dataset.Series) []pricePoint {
	start := 0
	if len(times) > overlayRows {
		start = len(times) - overlayRows
	}
	out := make([]pricePoint, 0, len(times)-start)
	for i := start; i < len(times); i++ {
		p := pricePoint{Date: times[i].Format(dateFormat)}
		if i < len(closes) {
			p.Close = finiteOrZero(closes[i])
		}
		if i < len(factorVals) {
			p.Factor = finiteOrZero(factorVals[i])
		}
		out = append(out, p)
	}
	return out
}

// validationMessage renders the first validation failure in plain words.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			return field + " is required"
		case "min":
			return fmt.Sprintf("%s must be at least %s", field, e.Param())
		case "max":
			return fmt.Sprintf("%s must be at most %s", field, e.Param())
		}
		return field + " is invalid"
	}
	return "Invalid request body"
}

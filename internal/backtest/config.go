package backtest

// Config holds backtest parameters.
type Config struct {
	Periods             int `json:"periods"`              // forward return horizon in rows
	NQuantiles          int `json:"n_quantiles"`          // quantile bucket count
	ICWindow            int `json:"ic_window"`            // rolling IC window
	MinObservations     int `json:"min_observations"`     // minimum aligned rows required
	AnnualizationFactor int `json:"annualization_factor"` // trading periods per year
}

// DefaultConfig returns the standard daily-bar parameters.
func DefaultConfig() Config {
	return Config{
		Periods:             1,
		NQuantiles:          5,
		ICWindow:            20,
		MinObservations:     60,
		AnnualizationFactor: 252,
	}
}

// withDefaults fills unset fields so a zero Config behaves like DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Periods <= 0 {
		c.Periods = d.Periods
	}
	if c.NQuantiles <= 0 {
		c.NQuantiles = d.NQuantiles
	}
	if c.ICWindow <= 0 {
		c.ICWindow = d.ICWindow
	}
	if c.MinObservations <= 0 {
		c.MinObservations = d.MinObservations
	}
	if c.AnnualizationFactor <= 0 {
		c.AnnualizationFactor = d.AnnualizationFactor
	}
	return c
}

package models

// Requests for benchmark report HTTP endpoints. Defined in domain for consistency and reuse.

type ModelReportRequest struct {
	Model string `param:"model" json:"model" validate:"required"`
}

type LeaderboardRequest struct {
	Horizon string `query:"horizon" json:"horizon" default:"1h" validate:"oneof=15m 1h 4h 24h"`
	Limit   int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type EnsembleRoundsRequest struct {
	Horizon string `query:"horizon" json:"horizon" default:"1h" validate:"oneof=15m 1h 4h 24h"`
	From    int    `query:"from" json:"from" default:"0" validate:"gte=0"`
	Limit   int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type HistoryRequest struct {
	Model   string `query:"model" json:"model" validate:"required"`
	Horizon string `query:"horizon" json:"horizon" default:"1h" validate:"oneof=15m 1h 4h 24h"`
	N       int    `query:"n" json:"n" default:"100" validate:"gte=1,lte=5000"`
}

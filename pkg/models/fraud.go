package models

// Severity grades a single fraud flag.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
)

// RiskLevel is the overall grade derived from all flags.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// VolumeSpike is a bar whose volume is a multiple of the trailing baseline.
type VolumeSpike struct {
	Date      string   `json:"date"       yaml:"date"`
	TVR       float64  `json:"tvr"        yaml:"tvr"`
	Volume    int64    `json:"volume"     yaml:"volume"`
	AvgVolume string   `json:"avg_volume" yaml:"avg_volume"`
	Severity  Severity `json:"severity"   yaml:"severity"`
}

// AbnormalReturn is a daily return that departs from the expected return.
type AbnormalReturn struct {
	Date           string   `json:"date"            yaml:"date"`
	ActualReturn   float64  `json:"actual_return"   yaml:"actual_return"`
	ExpectedReturn float64  `json:"expected_return" yaml:"expected_return"`
	AbnormalReturn float64  `json:"abnormal_return" yaml:"abnormal_return"`
	Severity       Severity `json:"severity"        yaml:"severity"`
}

// FraudIndicators is the output of the volume / abnormal-return heuristic.
type FraudIndicators struct {
	VolumeSpikes             []VolumeSpike    `json:"volume_spikes"              yaml:"volume_spikes"`
	AbnormalReturns          []AbnormalReturn `json:"abnormal_returns"           yaml:"abnormal_returns"`
	CumulativeAbnormalReturn float64          `json:"cumulative_abnormal_return" yaml:"cumulative_abnormal_return"`
	RedFlags                 []string         `json:"red_flags"                  yaml:"red_flags"`
	RiskLevel                RiskLevel        `json:"risk_level"                 yaml:"risk_level"`
	BaselineVolume           float64          `json:"baseline_volume"            yaml:"baseline_volume"`
	ExpectedReturn           float64          `json:"expected_return"            yaml:"expected_return"`
	ReturnStdDev             float64          `json:"return_std_dev"             yaml:"return_std_dev"`
	BarsAnalyzed             int              `json:"bars_analyzed"              yaml:"bars_analyzed"`
}

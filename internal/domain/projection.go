package domain

// ProjectionInput holds the six scalar inputs of the investment scenario.
// Rates are percentages (6 means 6 %), HoldingPeriod is in years.
type ProjectionInput struct {
	PurchasePrice    float64 `json:"purchasePrice"`
	HoldingPeriod    float64 `json:"holdingPeriod"`
	NetYieldLow      float64 `json:"netYieldLow"`
	NetYieldHigh     float64 `json:"netYieldHigh"`
	AppreciationLow  float64 `json:"appreciationLow"`
	AppreciationHigh float64 `json:"appreciationHigh"`
}

// DefaultProjectionInput is the scenario shown before the visitor moves a control.
var DefaultProjectionInput = ProjectionInput{
	PurchasePrice:    139000,
	HoldingPeriod:    5,
	NetYieldLow:      6,
	NetYieldHigh:     9,
	AppreciationLow:  7,
	AppreciationHigh: 10,
}

// ProjectionBound is the outcome for one bound of the scenario.
type ProjectionBound struct {
	RentalIncome     float64 `json:"rentalIncome"`
	ResaleValue      float64 `json:"resaleValue"`
	TotalReturn      float64 `json:"totalReturn"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
}

// ProjectionResult is the low/high range of the scenario.
type ProjectionResult struct {
	Input ProjectionInput `json:"input"`
	Low   ProjectionBound `json:"low"`
	High  ProjectionBound `json:"high"`
}

package models

// DateLayout formats days in the daily series.
const DateLayout = "2006-01-02"

// Dimension names a ClickEvent column that can be broken down.
type Dimension string

const (
	DimensionDevice  Dimension = "device"
	DimensionBrowser Dimension = "browser"
	DimensionCountry Dimension = "country"
)

// BreakdownItem is one bucket of a breakdown.
type BreakdownItem struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// DailyCount is the number of clicks on one UTC day.
type DailyCount struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// AnalyticsSummary aggregates the click events of one link.
type AnalyticsSummary struct {
	TotalClicks      int64           `json:"totalClicks"`
	UniqueClicks     int64           `json:"uniqueClicks"`
	DeviceBreakdown  []BreakdownItem `json:"deviceBreakdown"`
	BrowserBreakdown []BreakdownItem `json:"browserBreakdown"`
	CountryBreakdown []BreakdownItem `json:"countryBreakdown"`
	DailySeries      []DailyCount    `json:"dailySeries"`
}

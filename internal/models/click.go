package models

import (
	"time"

	"github.com/google/uuid"
)

// Device classes derived from the User-Agent.
const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
)

// Browser families derived from the User-Agent.
const (
	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserEdge    = "Edge"
	BrowserOther   = "Other"
)

// ClickEvent is one recorded resolution of a link. Events are append-only
// and removed together with their link.
type ClickEvent struct {
	ID        uuid.UUID `json:"id" gorm:"column:id;type:text;primaryKey"`
	LinkID    uuid.UUID `json:"linkId" gorm:"column:link_id;type:text;index;not null"`
	IP        *string   `json:"ip,omitempty" gorm:"column:ip;type:text"`
	UserAgent string    `json:"userAgent" gorm:"column:user_agent;type:text"`
	Referrer  *string   `json:"referrer,omitempty" gorm:"column:referrer;type:text"`
	Country   *string   `json:"country,omitempty" gorm:"column:country;type:text"`
	City      *string   `json:"city,omitempty" gorm:"column:city;type:text"`
	Device    string    `json:"device" gorm:"column:device;type:text;not null"`
	Browser   string    `json:"browser" gorm:"column:browser;type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at;index;not null"`
}

// TableName pins the gorm table name.
func (ClickEvent) TableName() string { return "click_events" }

// DailyClicks is the per-day click aggregate of a link. Day is midnight UTC.
type DailyClicks struct {
	LinkID uuid.UUID `gorm:"column:link_id;type:text;primaryKey"`
	Day    time.Time `gorm:"column:day;primaryKey"`
	Clicks int64     `gorm:"column:clicks;not null;default:0"`
}

// TableName pins the gorm table name.
func (DailyClicks) TableName() string { return "click_history" }

// RequestContext carries what the redirect handler knows about the visitor.
type RequestContext struct {
	IP        string
	UserAgent string
	Referrer  string
	At        time.Time
}

// GeoLocation is the result of an IP lookup.
type GeoLocation struct {
	Country string
	City    string
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

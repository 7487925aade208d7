package models

import (
	"encoding/json"
	"time"
)

// CachedRecord is the storage envelope shared by every collection.
// Payload holds the JSON encoding of the typed record.
type CachedRecord struct {
	ID         string          `json:"id"`
	Collection Collection      `json:"collection"`
	IndexKey   string          `json:"index_key,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Synced     bool            `json:"synced"`
	Static     bool            `json:"static,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Record is implemented by the typed per-collection structs.
type Record interface {
	Collection() Collection
	// Key returns the record identifier; empty for surrogate-keyed records
	// that have not been stored yet.
	Key() string
	// Index returns the secondary index value, or "".
	Index() string
}

// KeySetter is implemented by records whose identifier is assigned on write.
type KeySetter interface {
	SetKey(id string)
}

// Recommendation is advice received from the backend for a crop.
type Recommendation struct {
	ID       string    `json:"id"`
	Crop     string    `json:"crop" validate:"required"`
	Title    string    `json:"title" validate:"required"`
	Advice   string    `json:"advice"`
	Season   string    `json:"season,omitempty"`
	Source   string    `json:"source,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}

func (r Recommendation) Collection() Collection { return CollRecommendations }
func (r Recommendation) Key() string            { return r.ID }
func (r Recommendation) Index() string          { return r.Crop }
func (r *Recommendation) SetKey(id string)      { r.ID = id }

// SoilSample is a soil test result taken on a plot.
type SoilSample struct {
	ID            string    `json:"id"`
	Crop          string    `json:"crop"`
	Location      string    `json:"location" validate:"required"`
	PH            float64   `json:"ph" validate:"gte=0,lte=14"`
	Nitrogen      float64   `json:"nitrogen" validate:"gte=0"`
	Phosphorus    float64   `json:"phosphorus" validate:"gte=0"`
	Potassium     float64   `json:"potassium" validate:"gte=0"`
	OrganicCarbon float64   `json:"organic_carbon,omitempty" validate:"gte=0"`
	Moisture      float64   `json:"moisture,omitempty" validate:"gte=0,lte=100"`
	SampledAt     time.Time `json:"sampled_at"`
}

func (s SoilSample) Collection() Collection { return CollSoilData }
func (s SoilSample) Key() string            { return s.ID }
func (s SoilSample) Index() string          { return s.Crop }
func (s *SoilSample) SetKey(id string)      { s.ID = id }

// WeatherSnapshot is the last known weather for a location.
type WeatherSnapshot struct {
	Location     string    `json:"location" validate:"required"`
	TemperatureC float64   `json:"temperature_c"`
	Humidity     float64   `json:"humidity" validate:"gte=0,lte=100"`
	RainfallMM   float64   `json:"rainfall_mm" validate:"gte=0"`
	WindKPH      float64   `json:"wind_kph" validate:"gte=0"`
	Condition    string    `json:"condition"`
	CapturedAt   time.Time `json:"captured_at"`
}

func (w WeatherSnapshot) Collection() Collection { return CollWeatherCache }
func (w WeatherSnapshot) Key() string            { return w.Location }
func (w WeatherSnapshot) Index() string          { return w.Location }

// DefaultProfileID keys the profile of the person using this device.
const DefaultProfileID = "current"

// UserProfile describes the farmer using the client.
type UserProfile struct {
	ID            string   `json:"id"`
	Name          string   `json:"name" validate:"required"`
	Phone         string   `json:"phone,omitempty" validate:"omitempty,e164"`
	Language      string   `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
	Village       string   `json:"village,omitempty"`
	District      string   `json:"district,omitempty"`
	State         string   `json:"state,omitempty"`
	FarmSizeAcres float64  `json:"farm_size_acres,omitempty" validate:"gte=0"`
	Crops         []string `json:"crops,omitempty"`
}

func (u UserProfile) Collection() Collection { return CollUserProfile }
func (u UserProfile) Index() string          { return "" }

func (u UserProfile) Key() string {
	if u.ID == "" {
		return DefaultProfileID
	}
	return u.ID
}

// CropFact is static agronomic reference data for one crop.
type CropFact struct {
	Name         string `json:"name" yaml:"name" validate:"required"`
	Season       string `json:"season" yaml:"season"`
	WaterNeed    string `json:"water_need" yaml:"water_need"`
	Soil         string `json:"soil" yaml:"soil"`
	PH           string `json:"ph" yaml:"ph"`
	DurationDays int    `json:"duration_days,omitempty" yaml:"duration_days"`
}

func (c CropFact) Collection() Collection { return CollCropDatabase }
func (c CropFact) Key() string            { return c.Name }
func (c CropFact) Index() string          { return c.Season }

// PestFact is static reference data about a pest.
type PestFact struct {
	Name      string   `json:"name" yaml:"name" validate:"required"`
	Crops     []string `json:"crops" yaml:"crops"`
	Symptoms  string   `json:"symptoms" yaml:"symptoms"`
	Treatment string   `json:"treatment" yaml:"treatment"`
}

func (p PestFact) Collection() Collection { return CollPestDatabase }
func (p PestFact) Key() string            { return p.Name }
func (p PestFact) Index() string          { return "" }

// FertilizerFact is static reference data about a fertilizer type.
type FertilizerFact struct {
	Type    string   `json:"type" yaml:"type" validate:"required"`
	NPK     string   `json:"npk" yaml:"npk"`
	Usage   string   `json:"usage" yaml:"usage"`
	Crops   []string `json:"crops" yaml:"crops"`
	Organic bool     `json:"organic" yaml:"organic"`
}

func (f FertilizerFact) Collection() Collection { return CollFertilizer }
func (f FertilizerFact) Key() string            { return f.Type }
func (f FertilizerFact) Index() string          { return "" }

// FarmLogDateLayout is the layout of FarmLog.Date.
const FarmLogDateLayout = "2006-01-02"

// FarmLog is a sustainability journal entry for one day of field work.
type FarmLog struct {
	ID         string  `json:"id"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Crop       string  `json:"crop,omitempty"`
	Activity   string  `json:"activity,omitempty"`
	Water      float64 `json:"water" validate:"gte=0"`
	Fertilizer float64 `json:"fertilizer" validate:"gte=0"`
	Pesticide  float64 `json:"pesticide,omitempty" validate:"gte=0"`
	Rotation   bool    `json:"rotation"`
	Notes      string  `json:"notes,omitempty" validate:"max=2000"`
}

func (l FarmLog) Collection() Collection { return CollFarmLogs }
func (l FarmLog) Key() string            { return l.ID }
func (l FarmLog) Index() string          { return l.Date }
func (l *FarmLog) SetKey(id string)      { l.ID = id }

package model

// RawScheduleRow PDF 表格抽取后的一行（JSON 抓取格式，字段名与表头一致）
type RawScheduleRow struct {
	Sport       string `json:"Sport"`
	Venue       string `json:"Venue"`
	Zone        string `json:"Zone"`
	SessionCode string `json:"Session Code"`
	Date        string `json:"Date"`
	GamesDay    string `json:"Games Day"`
	SessionType string `json:"Session Type"`
	Description string `json:"Session Description"`
	StartTime   string `json:"Start Time"`
	EndTime     string `json:"End Time"`
}

// 地理编码状态
const (
	GeoStatusOK          = "ok"
	GeoStatusNeedsReview = "needs_review"
	GeoStatusNotFound    = "not_found"
	GeoStatusUnlocatable = "unlocatable"
)

// LatLng 坐标，两者均可为空
type LatLng struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// GeocodeResult 场馆名 → 地理编码结果（venues_osm.json 的一条）
type GeocodeResult struct {
	Name    string        `json:"name"`
	Status  string        `json:"status,omitempty"`
	Address *string       `json:"address"`
	LatLng  LatLng        `json:"lat_lng"`
	Debug   *GeocodeDebug `json:"debug,omitempty"`
}

// GeocodeDebug 人工复核用的检索细节
type GeocodeDebug struct {
	Query      string   `json:"query,omitempty"`
	Picked     string   `json:"picked,omitempty"`
	Candidates int      `json:"candidates"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

package openweather

// Condition is a weather condition entry as returned by OpenWeatherMap.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Coord is a latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MainBlock holds the temperature and humidity readings of a sample.
type MainBlock struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Humidity  int     `json:"humidity"`
}

// Wind holds wind readings.
type Wind struct {
	Speed float64 `json:"speed"`
}

// CurrentResponse is the body of /weather.
type CurrentResponse struct {
	Coord    Coord       `json:"coord"`
	Weather  []Condition `json:"weather"`
	Main     MainBlock   `json:"main"`
	Wind     Wind        `json:"wind"`
	Dt       int64       `json:"dt"`
	Timezone int         `json:"timezone"`
	Name     string      `json:"name"`
	Sys      struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// City describes the place a forecast was computed for.
type City struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	Coord    Coord  `json:"coord"`
	Timezone int    `json:"timezone"`
}

// ForecastSample is one 3-hour step of the 5-day forecast.
type ForecastSample struct {
	Dt      int64       `json:"dt"`
	Main    MainBlock   `json:"main"`
	Weather []Condition `json:"weather"`
	Wind    Wind        `json:"wind"`
	DtTxt   string      `json:"dt_txt"`
}

// ForecastResponse is the body of /forecast.
type ForecastResponse struct {
	City City             `json:"city"`
	List []ForecastSample `json:"list"`
}

// DailySample is one day of the 16-day forecast.
type DailySample struct {
	Dt   int64 `json:"dt"`
	Temp struct {
		Day float64 `json:"day"`
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
	Humidity int         `json:"humidity"`
	Weather  []Condition `json:"weather"`
	Speed    float64     `json:"speed"`
}

// DailyResponse is the body of /forecast/daily.
type DailyResponse struct {
	City City          `json:"city"`
	List []DailySample `json:"list"`
}

// HistorySample is one observation returned by the one-call timemachine endpoint.
type HistorySample struct {
	Dt        int64       `json:"dt"`
	Temp      float64     `json:"temp"`
	FeelsLike float64     `json:"feels_like"`
	Humidity  int         `json:"humidity"`
	WindSpeed float64     `json:"wind_speed"`
	Weather   []Condition `json:"weather"`
}

// HistoryResponse is the body of /onecall/timemachine.
type HistoryResponse struct {
	Lat            float64         `json:"lat"`
	Lon            float64         `json:"lon"`
	TimezoneOffset int             `json:"timezone_offset"`
	Data           []HistorySample `json:"data"`
}

// errorBody is the error payload OpenWeatherMap returns. cod is a string
// on some endpoints and a number on others.
type errorBody struct {
	Message string `json:"message"`
}

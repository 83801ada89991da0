package openweather

import (
	"math"
	"sort"
	"time"

	"github.com/iqbaliqra/Weatherapp/internal/models"
)

const (
	iconBaseURL = "https://openweathermap.org/img/wn/"

	// HourlySamples is the number of 3-hour samples in the hourly view.
	HourlySamples = 8
	// ForecastDays caps the aggregated 5-day forecast.
	ForecastDays = 5
)

// IconURL returns the image URL for an icon code.
func IconURL(code string) string {
	if code == "" {
		return ""
	}
	return iconBaseURL + code + "@2x.png"
}

// round rounds half up, so -2.5 becomes -2.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func primary(conds []Condition) Condition {
	if len(conds) == 0 {
		return Condition{}
	}
	return conds[0]
}

// NormalizeCurrent maps a current weather response to CurrentConditions.
func NormalizeCurrent(resp *CurrentResponse) models.CurrentConditions {
	cond := primary(resp.Weather)
	return models.CurrentConditions{
		City:      resp.Name,
		Country:   resp.Sys.Country,
		Icon:      IconURL(cond.Icon),
		Temp:      round(resp.Main.Temp),
		Condition: cond.Description,
		High:      round(resp.Main.TempMax),
		Low:       round(resp.Main.TempMin),
		Humidity:  resp.Main.Humidity,
		Wind:      resp.Wind.Speed,
		FeelsLike: round(resp.Main.FeelsLike),
	}
}

// Hourly returns the first n samples of a forecast.
func Hourly(resp *ForecastResponse, n int) []models.ForecastHour {
	if n > len(resp.List) {
		n = len(resp.List)
	}
	out := make([]models.ForecastHour, 0, n)
	for _, s := range resp.List[:n] {
		cond := primary(s.Weather)
		out = append(out, models.ForecastHour{
			Time:      time.Unix(s.Dt, 0).UTC(),
			Temp:      round(s.Main.Temp),
			Icon:      IconURL(cond.Icon),
			Condition: cond.Description,
		})
	}
	return out
}

type dayBucket struct {
	date    string
	sum     float64
	count   int
	high    float64
	low     float64
	counts  map[string]int
	order   []string
	icon    string
	noonGap int64
}

// Daily groups 3-hour samples by local calendar date and summarizes each day.
// The date uses the city's UTC offset. Temp is the rounded mean, high and low
// are the sample extremes, condition is the most frequent description (earliest wins
// ties) and the icon comes from the sample nearest local noon. At most maxDays
// days are returned, in date order.
func Daily(resp *ForecastResponse, maxDays int) []models.ForecastDay {
	offset := int64(resp.City.Timezone)
	buckets := make(map[string]*dayBucket)
	var dates []string

	for _, s := range resp.List {
		local := time.Unix(s.Dt+offset, 0).UTC()
		date := local.Format(time.DateOnly)

		b, ok := buckets[date]
		if !ok {
			b = &dayBucket{
				date:    date,
				high:    math.Inf(-1),
				low:     math.Inf(1),
				counts:  make(map[string]int),
				noonGap: math.MaxInt64,
			}
			buckets[date] = b
			dates = append(dates, date)
		}

		b.sum += s.Main.Temp
		b.count++
		b.high = math.Max(b.high, s.Main.Temp)
		b.low = math.Min(b.low, s.Main.Temp)

		cond := primary(s.Weather)
		if _, seen := b.counts[cond.Description]; !seen {
			b.order = append(b.order, cond.Description)
		}
		b.counts[cond.Description]++

		noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, time.UTC)
		gap := local.Sub(noon).Abs().Milliseconds()
		if gap < b.noonGap {
			b.noonGap = gap
			b.icon = cond.Icon
		}
	}

	sort.Strings(dates)
	if maxDays > 0 && len(dates) > maxDays {
		dates = dates[:maxDays]
	}

	out := make([]models.ForecastDay, 0, len(dates))
	for _, d := range dates {
		b := buckets[d]
		out = append(out, models.ForecastDay{
			Date:      b.date,
			Temp:      round(b.sum / float64(b.count)),
			High:      round(b.high),
			Low:       round(b.low),
			Icon:      IconURL(b.icon),
			Condition: b.dominant(),
		})
	}
	return out
}

func (b *dayBucket) dominant() string {
	best, bestCount := "", 0
	for _, c := range b.order {
		if b.counts[c] > bestCount {
			best, bestCount = c, b.counts[c]
		}
	}
	return best
}

// NormalizeDaily maps a 16-day forecast response to forecast days.
func NormalizeDaily(resp *DailyResponse) []models.ForecastDay {
	offset := int64(resp.City.Timezone)
	out := make([]models.ForecastDay, 0, len(resp.List))
	for _, s := range resp.List {
		cond := primary(s.Weather)
		out = append(out, models.ForecastDay{
			Date:      time.Unix(s.Dt+offset, 0).UTC().Format(time.DateOnly),
			Temp:      round(s.Temp.Day),
			High:      round(s.Temp.Max),
			Low:       round(s.Temp.Min),
			Icon:      IconURL(cond.Icon),
			Condition: cond.Description,
		})
	}
	return out
}

// NormalizeHistory maps timemachine observations to one day each, oldest first.
func NormalizeHistory(resps []*HistoryResponse) []models.ForecastDay {
	out := make([]models.ForecastDay, 0, len(resps))
	for _, r := range resps {
		if r == nil || len(r.Data) == 0 {
			continue
		}
		s := r.Data[0]
		cond := primary(s.Weather)
		t := round(s.Temp)
		out = append(out, models.ForecastDay{
			Date:      time.Unix(s.Dt+int64(r.TimezoneOffset), 0).UTC().Format(time.DateOnly),
			Temp:      t,
			High:      t,
			Low:       t,
			Icon:      IconURL(cond.Icon),
			Condition: cond.Description,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

package analytics

import "time"

// countryRegions groups source countries for the regional breakdown.
// Countries outside the map report under "Other".
var countryRegions = map[string][]string{
	"Asia": {"India", "China", "Japan", "South Korea", "Thailand", "Malaysia",
		"Singapore", "Indonesia", "Philippines", "Vietnam", "Bangladesh",
		"Pakistan", "Hong Kong", "Taiwan", "Myanmar", "Cambodia"},
	"Europe": {"United Kingdom", "Germany", "France", "Russia", "Italy",
		"Netherlands", "Spain", "Switzerland", "Belgium", "Austria",
		"Poland", "Ukraine", "Czech Republic", "Sweden", "Denmark"},
	"Middle East": {"Saudi Arabia", "UAE", "Qatar", "Kuwait", "Oman",
		"Bahrain", "Israel", "Turkey", "Iran", "Jordan"},
	"Americas": {"United States", "Canada", "Brazil", "Argentina", "Mexico",
		"Colombia", "Chile", "Peru"},
	"Oceania": {"Australia", "New Zealand"},
	"Africa":  {"South Africa", "Egypt", "Kenya", "Nigeria", "Morocco"},
}

var regionByCountry = func() map[string]string {
	m := make(map[string]string)
	for region, countries := range countryRegions {
		for _, c := range countries {
			m[c] = region
		}
	}
	return m
}()

// RegionOf returns the analysis region for a source country.
func RegionOf(country string) string {
	if region, ok := regionByCountry[country]; ok {
		return region
	}
	return "Other"
}

// seasonByMonth maps calendar months onto Sri Lanka's monsoon seasons.
var seasonByMonth = map[time.Month]string{
	time.May:       "Southwest Monsoon",
	time.June:      "Southwest Monsoon",
	time.July:      "Southwest Monsoon",
	time.August:    "Southwest Monsoon",
	time.September: "Southwest Monsoon",
	time.October:   "Northeast Monsoon",
	time.November:  "Northeast Monsoon",
	time.December:  "Northeast Monsoon",
	time.January:   "Northeast Monsoon",
	time.February:  "Northeast Monsoon",
	time.March:     "Inter Monsoon",
	time.April:     "Inter Monsoon",
}

// SeasonOf returns the monsoon season covering the given month.
func SeasonOf(month time.Month) string {
	return seasonByMonth[month]
}

package metadata

import "github.com/alnah/go-accent-corpus/internal/textnorm"

// Province names.
const (
	Leinster = "Leinster"
	Munster  = "Munster"
	Connacht = "Connacht"
	Ulster   = "Ulster"
)

// Provinces lists the four province labels in a stable order.
var Provinces = []string{Connacht, Leinster, Munster, Ulster}

// constituencies2022 maps each Dáil constituency of the 2022 boundary review
// to its province.
var constituencies2022 = map[string][]string{
	Leinster: {
		"Carlow-Kilkenny",
		"Dublin Bay North",
		"Dublin Bay South",
		"Dublin Central",
		"Dublin Fingal",
		"Dublin Mid-West",
		"Dublin North-West",
		"Dublin Rathdown",
		"Dublin South-Central",
		"Dublin South-West",
		"Dublin West",
		"Dun Laoghaire",
		"Kildare North",
		"Kildare South",
		"Laois",
		"Longford-Westmeath",
		"Louth",
		"Meath East",
		"Meath West",
		"Offaly",
		"Wexford",
		"Wicklow",
	},
	Munster: {
		"Clare",
		"Cork East",
		"Cork North-Central",
		"Cork North-West",
		"Cork South-Central",
		"Cork South-West",
		"Kerry",
		"Limerick City",
		"Limerick County",
		"Tipperary",
		"Waterford",
	},
	Connacht: {
		"Galway East",
		"Galway West",
		"Mayo",
		"Roscommon-Galway",
		"Sligo-Leitrim",
	},
	Ulster: {
		"Donegal",
		"Cavan-Monaghan",
	},
}

// provinceByKey indexes constituencies2022 by PlaceKey.
var provinceByKey = func() map[string]string {
	m := make(map[string]string)
	for province, names := range constituencies2022 {
		for _, n := range names {
			m[textnorm.PlaceKey(n)] = province
		}
	}
	return m
}()

// ProvinceOf returns the province of a 2022 constituency, or "" when the
// constituency is blank or not in the table. Matching ignores case,
// diacritics and spacing.
func ProvinceOf(constituency string) string {
	key := textnorm.PlaceKey(constituency)
	if key == "" {
		return ""
	}
	return provinceByKey[key]
}

package model

// Choice is a catalog entry: a stable key used in callbacks and storage,
// and the human-readable label shown to users.
type Choice struct {
	Key   string
	Label string
}

// CityChoices are the supported cities. The key doubles as the routing key
// for the group topic an order is announced to.
var CityChoices = []Choice{
	{"moscow", "Москва"},
	{"spb", "Санкт-Петербург"},
	{"novosibirsk", "Новосибирск"},
	{"chelyabinsk", "Челябинск"},
	{"ufa", "Уфа"},
	{"kazan", "Казань"},
	{"omsk", "Омск"},
	{"krasnoyarsk", "Красноярск"},
	{"nizhny_novgorod", "Нижний Новгород"},
	{"voronezh", "Воронеж"},
}

// CleaningTypes are the selectable cleaning kinds.
var CleaningTypes = []Choice{
	{"maintenance", "Поддерживающая"},
	{"general", "Генеральная"},
	{"post_renovation", "После ремонта"},
	{"other", "Другое"},
}

// EquipmentOptions tell masters whether gear is provided.
var EquipmentOptions = []Choice{
	{"with_equipment", "С оборудованием"},
	{"no_equipment", "Без оборудования"},
}

// ConditionOptions describe the master's payment terms.
var ConditionOptions = []Choice{
	{"percent_60", "60% мастеру"},
	{"percent_70", "70% мастеру"},
	{"fixed", "Фикс"},
	{"other", "Иное"},
}

func label(choices []Choice, key string) string {
	for _, c := range choices {
		if c.Key == key {
			return c.Label
		}
	}
	return key
}

// CityLabel maps a city key to its label, falling back to the key itself.
func CityLabel(key string) string { return label(CityChoices, key) }

// CleaningTypeLabel maps a cleaning type key to its label.
func CleaningTypeLabel(key string) string { return label(CleaningTypes, key) }

// EquipmentLabel maps an equipment key to its label.
func EquipmentLabel(key string) string { return label(EquipmentOptions, key) }

// ConditionLabel maps a payment condition key to its label.
func ConditionLabel(key string) string { return label(ConditionOptions, key) }

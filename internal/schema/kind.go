package schema

// Kind bits, one per POI category.
const (
	KindRoad uint32 = 1 << iota
	KindBuilding
	KindAccommodation
	KindFood
	KindBarrier
	KindEntertainment
	KindEmergency
	KindPets
	KindShopping
	KindAttraction
	KindEducation
	KindVehicles
	KindTransportation
	KindReligion
	KindHikeBike
	KindMoneyMail
	KindUrban
)

// any value of the key
const anyKind = "*"

var kindTable = map[string]map[string]uint32{
	"highway": {
		"bus_stop": KindTransportation, "speed_camera": KindRoad, "traffic_signals": KindRoad,
		"ford": KindRoad, "mini_roundabout": KindRoad, "motorway_junction": KindRoad,
	},
	"amenity": {
		"restaurant": KindFood, "cafe": KindFood, "fast_food": KindFood, "pub": KindFood,
		"bar": KindFood, "biergarten": KindFood, "ice_cream": KindFood, "food_court": KindFood,
		"cinema": KindEntertainment, "theatre": KindEntertainment, "nightclub": KindEntertainment,
		"arts_centre": KindEntertainment, "casino": KindEntertainment,
		"hospital": KindEmergency, "clinic": KindEmergency, "doctors": KindEmergency,
		"pharmacy": KindEmergency, "police": KindEmergency, "fire_station": KindEmergency,
		"dentist": KindEmergency,
		"veterinary": KindPets, "marketplace": KindShopping,
		"school": KindEducation, "university": KindEducation, "college": KindEducation,
		"kindergarten": KindEducation, "library": KindEducation,
		"fuel": KindVehicles, "charging_station": KindVehicles, "car_wash": KindVehicles,
		"parking": KindVehicles, "car_rental": KindVehicles,
		"bus_station": KindTransportation, "ferry_terminal": KindTransportation, "taxi": KindTransportation,
		"place_of_worship": KindReligion,
		"bicycle_rental": KindHikeBike, "bicycle_parking": KindHikeBike, "drinking_water": KindHikeBike,
		"shelter": KindHikeBike,
		"bank": KindMoneyMail, "atm": KindMoneyMail, "post_office": KindMoneyMail,
		"bureau_de_change": KindMoneyMail, "post_box": KindMoneyMail,
		"toilets": KindUrban, "telephone": KindUrban, "bench": KindUrban,
		"fountain": KindUrban, "waste_basket": KindUrban, "townhall": KindUrban,
	},
	"tourism": {
		"hotel": KindAccommodation, "motel": KindAccommodation, "hostel": KindAccommodation,
		"guest_house": KindAccommodation, "camp_site": KindAccommodation,
		"caravan_site": KindAccommodation, "chalet": KindAccommodation,
		"alpine_hut": KindAccommodation, "wilderness_hut": KindAccommodation,
		"apartment": KindAccommodation,
		"attraction": KindAttraction, "viewpoint": KindAttraction, "museum": KindAttraction,
		"artwork": KindAttraction, "zoo": KindAttraction, "theme_park": KindAttraction,
		"information": KindHikeBike, "picnic_site": KindHikeBike,
	},
	"shop": {
		anyKind: KindShopping, "pet": KindPets, "car": KindVehicles, "car_repair": KindVehicles,
		"bicycle": KindHikeBike,
	},
	"historic": {anyKind: KindAttraction},
	"emergency": {
		"phone": KindEmergency, "defibrillator": KindEmergency, "ambulance_station": KindEmergency,
	},
	"barrier": {
		"gate": KindBarrier, "lift_gate": KindBarrier, "stile": KindBarrier,
		"cattle_grid": KindBarrier, "block": KindBarrier, "bollard": KindBarrier,
	},
	"railway": {"station": KindTransportation, "halt": KindTransportation},
	"aeroway": {"aerodrome": KindTransportation},
	"leisure": {
		"water_park": KindEntertainment, "sauna": KindEntertainment,
		"picnic_table": KindHikeBike, "dog_park": KindPets,
	},
	"building": {"train_station": KindTransportation},
}

// poiTypes is the ordered POI type table. A type code is the position in
// this list plus one; the order is part of the feature index format.
var poiTypes = []string{
	"amenity=restaurant", "amenity=cafe", "amenity=fast_food", "amenity=pub", "amenity=bar",
	"amenity=biergarten", "amenity=ice_cream", "amenity=food_court",
	"tourism=hotel", "tourism=motel", "tourism=hostel", "tourism=guest_house",
	"tourism=camp_site", "tourism=caravan_site", "tourism=chalet", "tourism=alpine_hut",
	"tourism=wilderness_hut", "tourism=apartment",
	"amenity=cinema", "amenity=theatre", "amenity=nightclub", "amenity=arts_centre", "amenity=casino",
	"amenity=hospital", "amenity=clinic", "amenity=doctors", "amenity=pharmacy",
	"amenity=police", "amenity=fire_station", "amenity=dentist",
	"emergency=phone", "emergency=defibrillator", "emergency=ambulance_station",
	"amenity=veterinary", "shop=pet", "leisure=dog_park",
	"shop=supermarket", "shop=convenience", "shop=bakery", "shop=clothes", "shop=hardware",
	"shop=doityourself", "shop=department_store", "shop=mall", "amenity=marketplace",
	"tourism=attraction", "tourism=viewpoint", "tourism=museum", "tourism=artwork",
	"tourism=zoo", "tourism=theme_park", "historic=monument", "historic=memorial",
	"historic=castle", "historic=ruins", "historic=archaeological_site",
	"amenity=school", "amenity=university", "amenity=college", "amenity=kindergarten", "amenity=library",
	"amenity=fuel", "amenity=charging_station", "amenity=car_wash", "amenity=parking",
	"amenity=car_rental", "shop=car", "shop=car_repair",
	"amenity=bus_station", "highway=bus_stop", "railway=station", "railway=halt",
	"aeroway=aerodrome", "amenity=ferry_terminal", "amenity=taxi",
	"amenity=place_of_worship",
	"amenity=bicycle_rental", "amenity=bicycle_parking", "shop=bicycle", "amenity=drinking_water",
	"amenity=shelter", "tourism=information", "tourism=picnic_site", "leisure=picnic_table",
	"amenity=bank", "amenity=atm", "amenity=post_office", "amenity=bureau_de_change", "amenity=post_box",
	"amenity=toilets", "amenity=telephone", "amenity=bench", "amenity=fountain",
	"amenity=waste_basket", "amenity=townhall",
	"barrier=gate", "barrier=lift_gate", "barrier=stile", "barrier=cattle_grid",
	"highway=speed_camera", "highway=traffic_signals", "highway=ford",
}

var poiTypeIndex = func() map[string]int {
	idx := make(map[string]int, len(poiTypes))
	for i, t := range poiTypes {
		idx[t] = i + 1
	}
	return idx
}()

// Classify returns the kind bitmask and POI type code of a tag set. Both
// are zero for tags that are not points of interest.
func Classify(tags map[string]string) (kind uint32, typ int) {
	for k, v := range tags {
		byValue, ok := kindTable[k]
		if !ok {
			continue
		}
		if bit, ok := byValue[v]; ok {
			kind |= bit
		} else if bit, ok := byValue[anyKind]; ok {
			kind |= bit
		}
		if t, ok := poiTypeIndex[k+"="+v]; ok && (typ == 0 || t < typ) {
			typ = t
		}
	}
	if _, ok := tags["building"]; ok && tags["name"] != "" {
		kind |= KindBuilding
	}
	return kind, typ
}

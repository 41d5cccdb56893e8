package nlp

import (
	"regexp"
	"strconv"
)

type Intent string

const (
	IntentLocation     Intent = "location"
	IntentRates        Intent = "rates"
	IntentFacilities   Intent = "facilities"
	IntentBooking      Intent = "booking"
	IntentAvailability Intent = "availability"
	IntentDistance     Intent = "distance"
	IntentWeather      Intent = "weather"
	IntentRoute        Intent = "route"
	IntentContact      Intent = "contact"
)

// Intents is the flag set computed once per inbound text. Several flags can be
// set at the same time. Nights is zero when no duration was mentioned.
type Intents struct {
	Location     bool
	Rates        bool
	Facilities   bool
	Booking      bool
	Availability bool
	Distance     bool
	Weather      bool
	Route        bool
	Contact      bool
	Nights       int
}

// Fired lists the intents that matched, in table order.
func (in Intents) Fired() []Intent {
	var out []Intent
	for _, it := range []Intent{IntentLocation, IntentRates, IntentFacilities, IntentBooking,
		IntentAvailability, IntentDistance, IntentWeather, IntentRoute, IntentContact} {
		if in.Has(it) {
			out = append(out, it)
		}
	}
	return out
}

func (in Intents) Has(it Intent) bool {
	switch it {
	case IntentLocation:
		return in.Location
	case IntentRates:
		return in.Rates
	case IntentFacilities:
		return in.Facilities
	case IntentBooking:
		return in.Booking
	case IntentAvailability:
		return in.Availability
	case IntentDistance:
		return in.Distance
	case IntentWeather:
		return in.Weather
	case IntentRoute:
		return in.Route
	case IntentContact:
		return in.Contact
	}
	return false
}

func (in *Intents) set(it Intent) {
	switch it {
	case IntentLocation:
		in.Location = true
	case IntentRates:
		in.Rates = true
	case IntentFacilities:
		in.Facilities = true
	case IntentBooking:
		in.Booking = true
	case IntentAvailability:
		in.Availability = true
	case IntentDistance:
		in.Distance = true
	case IntentWeather:
		in.Weather = true
	case IntentRoute:
		in.Route = true
	case IntentContact:
		in.Contact = true
	}
}

// intentPattern matches normalized text, or the raw text when raw is set
// (Urdu script patterns must see the original code points).
type intentPattern struct {
	intent  Intent
	pattern *regexp.Regexp
	raw     bool
}

var (
	nightsRe       = regexp.MustCompile(`\b(\d{1,3}) ?(?:nights?|days?|raat|raatein|raaten|din)\b`)
	pricingWordsRe = regexp.MustCompile(`\b(?:price|prices|pricing|rate|rates|rent|charge|charges|cost|costs|tariff|fare|kiraya|kiraye|qeemat|qimat|kitna|kitne|kitni|budget)\b`)
	pricing9000Re  = regexp.MustCompile(`\b9 ?000\b|\b9k\b|\b9 hazaa?r\b`)
	howMuchRe      = regexp.MustCompile(`\bhow much\b|\bkitne ka\b|\bkitne ki\b|\bkya rate\b`)
	pricingUrduRe  = regexp.MustCompile(`کرایہ|قیمت|ریٹ|کتنے`)
)

var intentTable = []intentPattern{
	{IntentLocation, regexp.MustCompile(`\b(?:location|located|address|where (?:is|are) (?:you|it|the|your)|kahan (?:hai|hain|pe|par|per)|kidhar|map|maps|pin|google maps)\b`), false},
	{IntentLocation, regexp.MustCompile(`کہاں|لوکیشن|پتہ`), true},

	{IntentRates, pricingWordsRe, false},
	{IntentRates, pricing9000Re, false},
	{IntentRates, howMuchRe, false},
	{IntentRates, nightsRe, false},
	{IntentRates, pricingUrduRe, true},

	{IntentFacilities, regexp.MustCompile(`\b(?:facility|facilities|amenity|amenities|wifi|wi fi|internet|parking|heater|heating|bonfire|food|restaurant|breakfast|dinner|kitchen|hot water|geyser|room service|attached bath|washroom|generator|electricity)\b`), false},
	{IntentFacilities, regexp.MustCompile(`سہولت|سہولیات`), true},

	{IntentBooking, regexp.MustCompile(`\b(?:book|booking|bookings|reserve|reservation|advance|confirm|confirmation|payment|pay|jazzcash|easypaisa|bank transfer)\b`), false},
	{IntentBooking, regexp.MustCompile(`بکنگ`), true},

	{IntentAvailability, regexp.MustCompile(`\b(?:available|availability|vacant|vacancy|vacancies|free rooms?|khali|any rooms?|rooms? left|is it open|open now|tonight|this weekend|next week|dates?)\b`), false},
	{IntentAvailability, regexp.MustCompile(`خالی`), true},

	{IntentDistance, regexp.MustCompile(`\b(?:distance|how far|far from|how long|km|kms|kilometers?|kitna door|kitni door|door hai|fasla|faasla)\b`), false},
	{IntentDistance, regexp.MustCompile(`فاصلہ|دور`), true},

	{IntentWeather, regexp.MustCompile(`\b(?:weather|temperature|temp|cold|snow|snowfall|rain|raining|mausam|barish|thand|thanda)\b`), false},
	{IntentWeather, regexp.MustCompile(`موسم|برف|بارش`), true},

	{IntentRoute, regexp.MustCompile(`\b(?:route|road|roads|how to (?:reach|get|come)|way to|jeep|track|rasta|raasta|directions?|reach)\b`), false},
	{IntentRoute, regexp.MustCompile(`راستہ|روٹ`), true},

	{IntentContact, regexp.MustCompile(`\b(?:contact|whatsapp|whats app|phone|number|call|website|web site|instagram|insta|email)\b`), false},
	{IntentContact, regexp.MustCompile(`رابطہ|نمبر`), true},
}

// Classify runs every intent pattern over text.
func Classify(text string) Intents {
	normalized := Normalize(text)
	var in Intents
	for _, p := range intentTable {
		subject := normalized
		if p.raw {
			subject = text
		}
		if p.pattern.MatchString(subject) {
			in.set(p.intent)
		}
	}
	in.Nights = ExtractNights(text)
	return in
}

// IsPricingIntent reports whether text asks about rates.
func IsPricingIntent(text string) bool {
	normalized := Normalize(text)
	for _, p := range intentTable {
		if p.intent != IntentRates {
			continue
		}
		subject := normalized
		if p.raw {
			subject = text
		}
		if p.pattern.MatchString(subject) {
			return true
		}
	}
	return false
}

// ExtractNights returns the first number written before a duration noun, or 0.
// Callers clamp the value.
func ExtractNights(text string) int {
	m := nightsRe.FindStringSubmatch(Normalize(text))
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

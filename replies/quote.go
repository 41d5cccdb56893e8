package replies

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"concierge/nlp"
)

const (
	MinNights = 1
	MaxNights = 21
)

type RoomCategory struct {
	Name     string
	BaseRate int
}

// RoomCategories are the two hut types and their undiscounted nightly rate.
var RoomCategories = []RoomCategory{
	{Name: "Deluxe Hut", BaseRate: 30000},
	{Name: "Executive Hut", BaseRate: 50000},
}

// DiscountForNight is the percentage taken off the n-th night (1-based).
func DiscountForNight(n int) int {
	switch {
	case n <= 1:
		return 10
	case n == 2:
		return 15
	default:
		return 20
	}
}

func ClampNights(n int) int {
	if n < MinNights {
		return MinNights
	}
	if n > MaxNights {
		return MaxNights
	}
	return n
}

type NightPrice struct {
	Night    int
	Discount int
	Price    int
}

type CategoryQuote struct {
	Category RoomCategory
	Nights   []NightPrice
	Total    int
}

type Quote struct {
	Nights     int
	Categories []CategoryQuote
}

// QuoteForNights prices every night of an n-night stay for each category.
// n must already be clamped.
func QuoteForNights(n int) Quote {
	q := Quote{Nights: n}
	for _, cat := range RoomCategories {
		cq := CategoryQuote{Category: cat}
		for i := 1; i <= n; i++ {
			pct := DiscountForNight(i)
			price := int(math.Round(float64(cat.BaseRate) * float64(100-pct) / 100))
			cq.Nights = append(cq.Nights, NightPrice{Night: i, Discount: pct, Price: price})
			cq.Total += price
		}
		q.Categories = append(q.Categories, cq)
	}
	return q
}

func (q Quote) Format(lang nlp.Language) string {
	var b strings.Builder
	switch lang {
	case nlp.LangUrdu:
		fmt.Fprintf(&b, "%d راتوں کا کوٹ (پہلی رات 10٪، دوسری 15٪، تیسری سے 20٪ رعایت):\n", q.Nights)
	case nlp.LangRomanUrdu:
		fmt.Fprintf(&b, "%d raaton ka quote (pehli raat 10%% off, doosri 15%%, teesri se 20%%):\n", q.Nights)
	default:
		fmt.Fprintf(&b, "Your %d-night quote (10%% off night 1, 15%% off night 2, 20%% off from night 3):\n", q.Nights)
	}
	for _, cq := range q.Categories {
		b.WriteString("\n")
		b.WriteString(cq.Category.Name)
		b.WriteString("\n")
		for _, np := range cq.Nights {
			fmt.Fprintf(&b, "• %s %d: %s (-%d%%)\n", nightWord(lang), np.Night, FormatRupees(np.Price), np.Discount)
		}
		fmt.Fprintf(&b, "%s: %s\n", totalWord(lang), FormatRupees(cq.Total))
	}
	return strings.TrimSpace(b.String())
}

func nightWord(lang nlp.Language) string {
	switch lang {
	case nlp.LangUrdu:
		return "رات"
	case nlp.LangRomanUrdu:
		return "Raat"
	}
	return "Night"
}

func totalWord(lang nlp.Language) string {
	switch lang {
	case nlp.LangUrdu:
		return "کل"
	case nlp.LangRomanUrdu:
		return "Total"
	}
	return "Total"
}

// FormatRupees renders 27000 as "Rs 27,000".
func FormatRupees(n int) string {
	s := strconv.Itoa(n)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return "Rs " + string(out)
}

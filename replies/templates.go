package replies

import (
	"fmt"
	"strings"

	"concierge/config"
	"concierge/nlp"
)

// localized holds one text per language; English is the fallback.
type localized map[nlp.Language]string

func (l localized) in(lang nlp.Language) string {
	if s, ok := l[lang]; ok && s != "" {
		return s
	}
	return l[nlp.LangEnglish]
}

// Templates are the canned blocks, rendered once from the business facts.
type Templates struct {
	Contact   localized
	Location  localized
	RateCard  localized
	AskOrigin localized
	NotOurs   localized
	PostIntro localized
	PostOutro localized
	Campaigns map[nlp.Campaign]CampaignCopy
}

// CampaignCopy is the fixed text of one promotional offer.
type CampaignCopy struct {
	Title        string
	LongCard     string
	PriceReply   string
	Availability string
	Facilities   string
	// Facts is handed to the model when a follow-up needs a free-form answer.
	Facts string
}

func NewTemplates(b config.Business) Templates {
	t := Templates{}

	t.Contact = localized{
		nlp.LangEnglish: fmt.Sprintf("You can reach %s here:\n• WhatsApp: %s\n• Website: %s\n• Instagram: %s\n• Facebook: %s",
			b.Name, b.WhatsAppLink, b.WebsiteLink, b.InstagramLink, b.FacebookLink),
		nlp.LangRomanUrdu: fmt.Sprintf("%s se rabta karne ke liye:\n• WhatsApp: %s\n• Website: %s\n• Instagram: %s\n• Facebook: %s",
			b.Name, b.WhatsAppLink, b.WebsiteLink, b.InstagramLink, b.FacebookLink),
		nlp.LangUrdu: fmt.Sprintf("%s سے رابطہ:\n• واٹس ایپ: %s\n• ویب سائٹ: %s\n• انسٹاگرام: %s\n• فیس بک: %s",
			b.Name, b.WhatsAppLink, b.WebsiteLink, b.InstagramLink, b.FacebookLink),
	}

	t.Location = localized{
		nlp.LangEnglish:   fmt.Sprintf("📍 %s\nGoogle Maps: %s\nCheck-in %s, check-out %s.", b.LocationName, b.MapsLink, b.CheckIn, b.CheckOut),
		nlp.LangRomanUrdu: fmt.Sprintf("📍 %s\nGoogle Maps: %s\nCheck-in %s, check-out %s.", b.LocationName, b.MapsLink, b.CheckIn, b.CheckOut),
		nlp.LangUrdu:      fmt.Sprintf("📍 %s\nگوگل میپس: %s\nچیک اِن %s، چیک آؤٹ %s۔", b.LocationName, b.MapsLink, b.CheckIn, b.CheckOut),
	}

	var rates strings.Builder
	for _, cat := range RoomCategories {
		fmt.Fprintf(&rates, "• %s: %s per night\n", cat.Name, FormatRupees(cat.BaseRate))
	}
	t.RateCard = localized{
		nlp.LangEnglish: "Current rates:\n" + rates.String() +
			"Longer stays get a discount of 10-20% per night.\nTell us your dates and we will confirm everything.\nBooking on WhatsApp: " + b.WhatsAppLink,
		nlp.LangRomanUrdu: "Hamare current rates:\n" + rates.String() +
			"Zyada raaton par 10-20% discount milta hai.\nApni dates batayein, hum confirm kar dein ge.\nBooking WhatsApp par: " + b.WhatsAppLink,
		nlp.LangUrdu: "موجودہ ریٹس:\n" + rates.String() +
			"زیادہ راتوں پر 10-20% رعایت ملتی ہے۔\nاپنی تاریخیں بتائیں، ہم کنفرم کر دیں گے۔\nواٹس ایپ پر بکنگ: " + b.WhatsAppLink,
	}

	t.AskOrigin = localized{
		nlp.LangEnglish:   fmt.Sprintf("Which city are you coming from? Tell me and I'll share the distance and travel time to %s.", b.LocationName),
		nlp.LangRomanUrdu: fmt.Sprintf("Aap kis shehar se aa rahe hain? Bata dein, main %s tak ka fasla aur time bata deta hoon.", b.LocationName),
		nlp.LangUrdu:      fmt.Sprintf("آپ کس شہر سے آ رہے ہیں؟ بتا دیں، میں %s تک کا فاصلہ اور وقت بتا دوں گا۔", b.LocationName),
	}

	t.NotOurs = localized{
		nlp.LangEnglish:   fmt.Sprintf("This post doesn't seem to be from %s, so I can't confirm its details. For our own offers, have a look at %s", b.Name, b.InstagramLink),
		nlp.LangRomanUrdu: fmt.Sprintf("Ye post %s ki nahi lagti, is liye hum iski details confirm nahi kar sakte. Hamari offers yahan dekhein: %s", b.Name, b.InstagramLink),
		nlp.LangUrdu:      fmt.Sprintf("یہ پوسٹ %s کی نہیں لگتی، اس لیے ہم اس کی تفصیلات کی تصدیق نہیں کر سکتے۔ ہماری آفرز یہاں دیکھیں: %s", b.Name, b.InstagramLink),
	}

	t.PostIntro = localized{
		nlp.LangEnglish:   "Yes, that's our post 🙂",
		nlp.LangRomanUrdu: "Ji, ye hamari post hai 🙂",
		nlp.LangUrdu:      "جی، یہ ہماری پوسٹ ہے 🙂",
	}
	t.PostOutro = localized{
		nlp.LangEnglish:   "Want rates, availability or directions for this? Just ask.",
		nlp.LangRomanUrdu: "Iske rates, availability ya rasta poochna ho to bata dein.",
		nlp.LangUrdu:      "اس کے ریٹس، دستیابی یا راستے کے بارے میں پوچھنا ہو تو بتا دیں۔",
	}

	t.Campaigns = map[nlp.Campaign]CampaignCopy{
		nlp.CampaignStaycation: {
			Title: "Staycation 9000",
			LongCard: fmt.Sprintf("🌲 Staycation 9000 at %s\n\n"+
				"3 days of chill by the river for Rs 9,000 per person.\n"+
				"• 2 nights in a shared riverside hut (groups of 3-4)\n"+
				"• Breakfast both mornings and a bonfire night\n"+
				"• Free parking and hot water around the clock\n\n"+
				"Valid Monday to Thursday, subject to availability.\n"+
				"Book on WhatsApp: %s", b.Name, b.WhatsAppLink),
			PriceReply: fmt.Sprintf("Staycation 9000 is Rs 9,000 per person for 3 days / 2 nights, breakfast and bonfire included. "+
				"Groups of 3-4 share one hut. Send your dates on WhatsApp to lock it in: %s", b.WhatsAppLink),
			Availability: fmt.Sprintf("Staycation 9000 runs Monday to Thursday and slots fill quickly. "+
				"Share your dates and group size on WhatsApp and we'll check right away: %s", b.WhatsAppLink),
			Facilities: "Staycation 9000 includes a shared riverside hut, breakfast on both mornings, one bonfire night, " +
				"hot water, Wi-Fi in the lounge and free parking.",
			Facts: "Staycation 9000: Rs 9,000 per person, 3 days / 2 nights, shared hut for groups of 3-4, " +
				"breakfast and one bonfire included, Monday to Thursday only.",
		},
		nlp.CampaignHoneymoon: {
			Title: "Honeymoon 70K",
			LongCard: fmt.Sprintf("💞 Honeymoon 70K at %s\n\n"+
				"3 nights for a couple in our Executive Hut for Rs 70,000.\n"+
				"• Candle-lit riverside dinner on the first night\n"+
				"• Room decoration and a cake on arrival\n"+
				"• Daily breakfast and late check-out\n\n"+
				"Book on WhatsApp: %s", b.Name, b.WhatsAppLink),
			PriceReply: fmt.Sprintf("Honeymoon 70K is Rs 70,000 per couple for 3 nights in the Executive Hut, "+
				"dinner, decoration and breakfast included. Share your dates here: %s", b.WhatsAppLink),
			Availability: fmt.Sprintf("Honeymoon 70K can be booked any day of the week, subject to Executive Hut availability. "+
				"Send your dates on WhatsApp and we'll confirm: %s", b.WhatsAppLink),
			Facilities: "Honeymoon 70K includes the Executive Hut with a private sit-out, room decoration, a cake, " +
				"a candle-lit dinner, daily breakfast, heating and late check-out.",
			Facts: "Honeymoon 70K: Rs 70,000 per couple, 3 nights in the Executive Hut, candle-lit dinner, " +
				"room decoration, cake, daily breakfast, late check-out.",
		},
	}
	return t
}

var (
	detailsSentPrivately = localized{
		nlp.LangEnglish:   "We've sent you the details in a private message 🙂",
		nlp.LangRomanUrdu: "Humne details aapko inbox mein bhej di hain 🙂",
		nlp.LangUrdu:      "ہم نے تفصیلات آپ کو ان باکس میں بھیج دی ہیں 🙂",
	}
	askForDM = localized{
		nlp.LangEnglish:   "Please send us a direct message and we'll share the details 🙂",
		nlp.LangRomanUrdu: "Details ke liye humein inbox mein message karein 🙂",
		nlp.LangUrdu:      "تفصیلات کے لیے ہمیں ان باکس میں میسج کریں 🙂",
	}
)

// PublicNotice is posted under a comment whose whole answer was removed for
// the public surface. sentPrivately says whether the full answer went to the
// commenter's inbox.
func PublicNotice(lang nlp.Language, sentPrivately bool) string {
	if sentPrivately {
		return detailsSentPrivately.in(lang)
	}
	return askForDM.in(lang)
}

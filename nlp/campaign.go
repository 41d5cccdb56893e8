package nlp

import "regexp"

type Campaign string

const (
	CampaignNone       Campaign = ""
	CampaignStaycation Campaign = "staycation9000"
	CampaignHoneymoon  Campaign = "honeymoon70k"
)

// ParseCampaign accepts only the known campaign ids.
func ParseCampaign(s string) Campaign {
	switch Campaign(s) {
	case CampaignStaycation:
		return CampaignStaycation
	case CampaignHoneymoon:
		return CampaignHoneymoon
	}
	return CampaignNone
}

type campaignRule struct {
	campaign Campaign
	patterns []*regexp.Regexp
}

// Rules are checked in order; the first campaign with a matching pattern wins.
var campaignTable = []campaignRule{
	{CampaignStaycation, []*regexp.Regexp{
		regexp.MustCompile(`\b9 ?000\b`),
		regexp.MustCompile(`\b9k\b`),
		regexp.MustCompile(`\bnine thousand\b`),
		regexp.MustCompile(`\b9 hazaa?r\b`),
		regexp.MustCompile(`staycation ?9 ?000`),
		regexp.MustCompile(`\b(?:3|three) ?days? (?:of )?chill`),
	}},
	{CampaignHoneymoon, []*regexp.Regexp{
		regexp.MustCompile(`\bh[aou]n(?:ey|e?y|i)? ?mo+n`),
		regexp.MustCompile(`\b70 ?k\b`),
		regexp.MustCompile(`\b70 ?000\b`),
		regexp.MustCompile(`\bseventy thousand\b`),
	}},
}

// CampaignFromText detects a campaign in a user message.
func CampaignFromText(text string) Campaign {
	normalized := Normalize(text)
	if normalized == "" {
		return CampaignNone
	}
	for _, rule := range campaignTable {
		for _, p := range rule.patterns {
			if p.MatchString(normalized) {
				return rule.campaign
			}
		}
	}
	return CampaignNone
}

// CampaignFromCaption detects a campaign in a shared post caption. Captions
// carry hashtags, which normalization already reduces to plain words.
func CampaignFromCaption(caption string) Campaign {
	return CampaignFromText(caption)
}

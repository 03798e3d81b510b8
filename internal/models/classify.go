package models

import "strings"

// Category is a coarse content bucket used for downstream filtering.
type Category string

const (
	CategoryTechAI     Category = "tech_ai"
	CategoryCrypto     Category = "crypto"
	CategoryPolitics   Category = "politics"
	CategoryRegulation Category = "regulation"
	CategoryJournalism Category = "journalism"
	CategoryBusiness   Category = "business"
	CategoryPersonal   Category = "personal"
)

// categoryRule pairs a category with the keywords that select it.
// Rules are evaluated in order; the first hit wins.
type categoryRule struct {
	category Category
	keywords []string
}

var timelineRules = []categoryRule{
	{CategoryTechAI, []string{"gpt", "ai", "ml", "artificial intelligence", "neural", "llm"}},
	{CategoryCrypto, []string{"bitcoin", "crypto", "defi", "ethereum", "blockchain"}},
	{CategoryPolitics, []string{"congress", "senate", "policy", "legislation", "government"}},
	{CategoryRegulation, []string{"sec", "regulation", "compliance", "federal"}},
}

var feedURLRules = []categoryRule{
	{CategoryTechAI, []string{"techcrunch", "wired", "arstechnica"}},
	{CategoryCrypto, []string{"coindesk", "cointelegraph"}},
}

var feedContentRules = []categoryRule{
	{CategoryTechAI, []string{"ai", "artificial intelligence", "machine learning"}},
	{CategoryCrypto, []string{"bitcoin", "cryptocurrency", "blockchain"}},
}

// ClassifyTimeline buckets a timeline post by its text and author
// handle. Defaults to business when no rule matches.
func ClassifyTimeline(content, handle string) Category {
	text := strings.ToLower(content) + " " + strings.ToLower(handle)
	if cat, ok := matchRules(timelineRules, text); ok {
		return cat
	}
	return CategoryBusiness
}

// ClassifyFeed buckets a feed entry, checking the feed URL before the
// entry text. Defaults to business.
func ClassifyFeed(feedURL, title, content string) Category {
	if cat, ok := matchRules(feedURLRules, strings.ToLower(feedURL)); ok {
		return cat
	}
	text := strings.ToLower(title + " " + content)
	if cat, ok := matchRules(feedContentRules, text); ok {
		return cat
	}
	return CategoryBusiness
}

func matchRules(rules []categoryRule, text string) (Category, bool) {
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category, true
			}
		}
	}
	return "", false
}

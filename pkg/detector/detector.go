// Package detector classifies articles from cheap URL and content signals.
package detector

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/dtnitsch/article-analyzer/models"
)

// Article categories.
const (
	CategoryTechnology    = "Technology"
	CategoryHealthcare    = "Healthcare"
	CategoryBusiness      = "Business"
	CategoryEnvironmental = "Environmental"
	CategoryEducation     = "Education"
	CategoryScience       = "Science"
	CategoryGovernment    = "Government"
	CategoryNews          = "News"
	CategoryGeneral       = "General"
)

// Classification is the result of Classify.
type Classification struct {
	Category      string  // one of the Category constants
	DomainType    string  // gov, edu, academic, mobile, commercial
	Country       string  // TLD-based guess: us, uk, de, jp, etc
	AcademicScore float64 // 0-10 academic confidence
	Confidence    float64 // 0-10 scale based on signal strength
}

var categoryKeywords = map[string][]string{
	CategoryTechnology:    {"software", "algorithm", "artificial intelligence", "machine learning", "computer", "digital", "cloud", "data", "internet", "app", "developer", "programming", "chip", "startup", "cybersecurity"},
	CategoryHealthcare:    {"health", "patient", "medical", "disease", "clinical", "hospital", "doctor", "treatment", "drug", "diagnosis", "vaccine", "therapy"},
	CategoryBusiness:      {"market", "revenue", "company", "investor", "business", "profit", "customer", "strategy", "economy", "sales", "industry", "growth"},
	CategoryEnvironmental: {"climate", "energy", "solar", "renewable", "carbon", "emission", "environment", "sustainable", "pollution", "wind", "biodiversity"},
	CategoryEducation:     {"student", "school", "teacher", "learning", "education", "university", "classroom", "curriculum", "course"},
	CategoryScience:       {"research", "scientist", "study", "experiment", "physics", "biology", "chemistry", "hypothesis", "laboratory", "species"},
}

var (
	doiPattern   = regexp.MustCompile(`10\.\d{4,}/[^\s]+`)
	arxivPattern = regexp.MustCompile(`arXiv:(\d{4}\.\d{4,5})`)
)

// Classify picks a category from the URL and the article text.
func Classify(rawURL string, article *models.Article) Classification {
	c := Classification{Category: CategoryGeneral, DomainType: "commercial", Country: "unknown"}

	var text string
	if article != nil {
		text = article.Title + "\n" + article.Body
	}

	u, err := url.Parse(rawURL)
	if err == nil && u.Host != "" {
		c.DomainType = detectDomainType(u)
		c.Country = detectCountry(u)
	}
	c.AcademicScore = academicScore(text)

	category, hits := categoryFromText(text)
	switch {
	case hits >= 2:
		c.Category = category
	case c.DomainType == "gov" && err == nil && isHealthHost(u):
		c.Category = CategoryHealthcare
	case c.DomainType == "gov":
		c.Category = CategoryGovernment
	case c.DomainType == "edu":
		c.Category = CategoryEducation
	case c.DomainType == "academic" || c.AcademicScore >= 3:
		c.Category = CategoryScience
	case err == nil && isNewsHost(u):
		c.Category = CategoryNews
	case hits == 1:
		c.Category = category
	}

	c.Confidence = confidence(c, hits)
	return c
}

// categoryFromText returns the category with the most keyword hits. Ties resolve to the
// category that sorts first so results are stable.
func categoryFromText(text string) (string, int) {
	lower := strings.ToLower(text)
	if lower == "" {
		return CategoryGeneral, 0
	}

	tokens := make(map[string]int)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		tokens[w]++
	}

	names := make([]string, 0, len(categoryKeywords))
	for name := range categoryKeywords {
		names = append(names, name)
	}
	sort.Strings(names)

	best, bestHits := CategoryGeneral, 0
	for _, name := range names {
		hits := 0
		for _, kw := range categoryKeywords[name] {
			if strings.Contains(kw, " ") {
				hits += strings.Count(lower, kw)
				continue
			}
			hits += tokens[kw] + tokens[kw+"s"]
		}
		if hits > bestHits {
			best, bestHits = name, hits
		}
	}
	return best, bestHits
}

// detectDomainType identifies domain classification
func detectDomainType(u *url.URL) string {
	host := strings.ToLower(u.Hostname())

	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".mil") {
		return "gov"
	}
	if strings.HasSuffix(host, ".edu") {
		return "edu"
	}

	academicDomains := []string{
		"arxiv.org", "doi.org", "pubmed.ncbi.nlm.nih.gov",
		"scholar.google.com", "researchgate.net", "academia.edu",
		"biorxiv.org", "medrxiv.org", "ssrn.com", "nature.com",
	}
	for _, domain := range academicDomains {
		if strings.Contains(host, domain) {
			return "academic"
		}
	}

	if strings.HasPrefix(host, "m.") || strings.HasPrefix(host, "mobile.") {
		return "mobile"
	}

	return "commercial"
}

// detectCountry extracts country from TLD
func detectCountry(u *url.URL) string {
	parts := strings.Split(strings.ToLower(u.Hostname()), ".")
	if len(parts) < 2 {
		return "unknown"
	}

	tld := parts[len(parts)-1]
	countries := map[string]string{
		"uk": "uk", "de": "de", "fr": "fr", "jp": "jp", "cn": "cn",
		"au": "au", "ca": "ca", "in": "in", "br": "br", "ru": "ru",
		"it": "it", "es": "es", "nl": "nl", "se": "se", "ch": "ch",
	}
	if country, ok := countries[tld]; ok {
		return country
	}

	// US implied for .gov, .edu, .mil
	if tld == "gov" || tld == "edu" || tld == "mil" {
		return "us"
	}
	return "unknown"
}

func isHealthHost(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, s := range []string{"health", "cdc", "nih", "fda"} {
		if strings.Contains(host, s) {
			return true
		}
	}
	return false
}

func isNewsHost(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, s := range []string{"news", "times", "post", "guardian", "reuters", "bbc", "techcrunch", "wired", "theverge"} {
		if strings.Contains(host, s) {
			return true
		}
	}
	return false
}

// academicScore scans content for academic indicators (0-10).
func academicScore(content string) float64 {
	if content == "" {
		return 0
	}
	lower := strings.ToLower(content)
	score := 0.0

	if doiPattern.MatchString(content) {
		score += 3.0
	}
	if arxivPattern.MatchString(content) {
		score += 3.0
	}

	citations := 0
	for _, marker := range []string{"et al.", "[1]", "[2]", "(1)", "(2)"} {
		if strings.Contains(lower, marker) {
			citations++
		}
	}
	if citations >= 2 {
		score += 1.0
	}
	if strings.Contains(lower, "references") || strings.Contains(lower, "bibliography") {
		score += 1.0
	}
	if strings.Contains(lower, "abstract") {
		score += 0.5
	}
	if score > 10 {
		score = 10
	}
	return score
}

func confidence(c Classification, hits int) float64 {
	conf := 5.0
	switch c.DomainType {
	case "gov", "edu":
		conf += 2.0
	case "academic":
		conf += 3.0
	}
	conf += float64(hits) * 0.25
	conf += c.AcademicScore * 0.3
	if conf > 10 {
		conf = 10
	}
	return conf
}

package rule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DateRange is an ISO start/end pair from the period literal table.
type DateRange struct {
	Start string `json:"start_date" yaml:"start_date"`
	End   string `json:"end_date" yaml:"end_date"`
}

func (d DateRange) asParams() map[string]any {
	return map[string]any{"start_date": d.Start, "end_date": d.End}
}

// entities is the result of one extraction pass over request text. The
// detected flags drive the detected-versus-defaulted summary in
// planning_reason.
type entities struct {
	building           string
	buildingDetected   bool
	portfolio          string
	portfolioDetected  bool
	company            string
	period             string
	periodDetected     bool
	dateRange          DateRange
	technology         string
	technologyDetected bool
	investment         float64
	investmentDetected bool
}

var (
	buildingNumRe   = regexp.MustCompile(`building\s+(\d+)`)
	buildingNameRe  = regexp.MustCompile(`([a-z]+)\s+building\b`)
	portfolioRefRe  = regexp.MustCompile(`portfolio\s+([a-z0-9-]+\d)`)
	dollarAmountRe  = regexp.MustCompile(`\$(\d+(?:,\d+)*(?:\.\d+)?)\s*(k|thousand)?`)
	suffixAmountRe  = regexp.MustCompile(`(\d+(?:,\d+)*(?:\.\d+)?)\s*(?:k|thousand)\b`)
	buildingArticle = map[string]bool{"the": true, "a": true, "this": true, "that": true, "my": true, "our": true, "every": true, "each": true}
)

var periodPhrases = []struct {
	phrase string
	period string
}{
	{"last year", "last_year"},
	{"last quarter", "last_quarter"},
	{"this quarter", "this_quarter"},
	{"last month", "last_month"},
	{"last 6 months", "last_6_months"},
	{"last six months", "last_6_months"},
	{"this year", "current_year"},
	{"current year", "current_year"},
	{"year to date", "current_year"},
}

var technologies = []string{"LED", "HVAC", "Solar", "Storage", "Controls"}

func extract(text string, opts Options) entities {
	normalized := strings.ToLower(text)
	ext := entities{
		building:   opts.DefaultBuilding,
		portfolio:  opts.DefaultPortfolio,
		period:     "current_year",
		technology: "LED",
		investment: 50000,
	}

	if m := buildingNumRe.FindStringSubmatch(normalized); m != nil {
		ext.building = "building_" + m[1]
		ext.buildingDetected = true
	} else if m := buildingNameRe.FindStringSubmatch(normalized); m != nil && !buildingArticle[m[1]] {
		ext.building = m[1] + "_building"
		ext.buildingDetected = true
	}

	// Company names take priority over an explicit portfolio reference;
	// scan in sorted order so extraction stays deterministic.
	companies := make([]string, 0, len(opts.CompanyPortfolios))
	for name := range opts.CompanyPortfolios {
		companies = append(companies, name)
	}
	sort.Strings(companies)
	for _, name := range companies {
		if containsWord(normalized, name) {
			ext.company = name
			ext.portfolio = opts.CompanyPortfolios[name]
			ext.portfolioDetected = true
			break
		}
	}
	if !ext.portfolioDetected {
		if m := portfolioRefRe.FindStringSubmatch(normalized); m != nil {
			ext.portfolio = strings.ToUpper(m[1])
			ext.portfolioDetected = true
		}
	}

	for _, pp := range periodPhrases {
		if strings.Contains(normalized, pp.phrase) {
			ext.period = pp.period
			ext.periodDetected = true
			break
		}
	}
	if r, ok := opts.DateRanges[ext.period]; ok {
		ext.dateRange = r
	}

	for _, tech := range technologies {
		if containsWord(normalized, strings.ToLower(tech)) {
			ext.technology = tech
			ext.technologyDetected = true
			break
		}
	}

	if amount, ok := extractAmount(normalized); ok {
		ext.investment = amount
		ext.investmentDetected = true
	}

	return ext
}

// extractAmount finds the first monetary amount: a $-prefixed number, or a
// bare number with a k/thousand suffix.
func extractAmount(normalized string) (float64, bool) {
	if m := dollarAmountRe.FindStringSubmatch(normalized); m != nil {
		return parseAmount(m[1], m[2])
	}
	if m := suffixAmountRe.FindStringSubmatch(normalized); m != nil {
		return parseAmount(m[1], "k")
	}
	return 0, false
}

func parseAmount(digits, suffix string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if suffix != "" {
		v *= 1000
	}
	return v, true
}

func containsWord(normalized, word string) bool {
	idx := 0
	for {
		i := strings.Index(normalized[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(normalized[start-1])
		afterOK := end == len(normalized) || !isWordChar(normalized[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

// describe summarizes what extraction detected versus defaulted for
// planning_reason.
func (e entities) describe() string {
	var detected, defaulted []string
	add := func(hit bool, label string) {
		if hit {
			detected = append(detected, label)
		} else {
			defaulted = append(defaulted, label)
		}
	}
	add(e.buildingDetected, "building="+e.building)
	if e.company != "" {
		add(true, fmt.Sprintf("portfolio=%s (company %s)", e.portfolio, e.company))
	} else {
		add(e.portfolioDetected, "portfolio="+e.portfolio)
	}
	add(e.periodDetected, "period="+e.period)
	add(e.technologyDetected, "technology="+e.technology)
	add(e.investmentDetected, fmt.Sprintf("investment=%.0f", e.investment))

	parts := make([]string, 0, 2)
	if len(detected) > 0 {
		parts = append(parts, "detected: "+strings.Join(detected, ", "))
	}
	if len(defaulted) > 0 {
		parts = append(parts, "defaulted: "+strings.Join(defaulted, ", "))
	}
	return strings.Join(parts, "; ")
}

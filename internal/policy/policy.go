// Package policy checks content against platform compliance rules before it
// is uploaded: profanity, copyright indicators, COPPA, advertiser
// friendliness, spam and misinformation signals.
package policy

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"viralops/manager-go/internal/utils"
)

// DefaultThreshold is the minimum overall score for content to pass.
const DefaultThreshold = 70.0

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Content is the text surface of a video submitted for checking.
type Content struct {
	ID            string
	Title         string
	Description   string
	Script        string
	CoppaDeclared bool
}

func (c Content) text() string {
	return strings.ToLower(c.Title + " " + c.Description)
}

func (c Content) fullText() string {
	return strings.ToLower(c.Title + " " + c.Description + " " + c.Script)
}

// Violation is one finding, either blocking (in Violations) or advisory
// (in Warnings).
type Violation struct {
	Type         string   `json:"type"`
	Severity     Severity `json:"severity"`
	Description  string   `json:"description"`
	Confidence   float64  `json:"confidence"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
}

// Result is the outcome of a full policy check. Scores run 0-100, higher is
// cleaner. Content fails when the overall score drops below the threshold or
// any critical violation is present.
type Result struct {
	ContentID       string        `json:"content_id"`
	OverallScore    float64       `json:"overall_score"`
	Compliant       bool          `json:"compliant"`
	Violations      []Violation   `json:"violations"`
	Warnings        []Violation   `json:"warnings"`
	Recommendations []string      `json:"recommendations"`
	CheckedAt       time.Time     `json:"checked_at"`
	Duration        time.Duration `json:"duration"`
}

// Rules selects which checks run. The zero value runs everything.
type Rules struct {
	SkipCopyright      bool
	SkipProfanity      bool
	SkipCoppa          bool
	SkipAdvertiser     bool
	SkipSpam           bool
	SkipMisinformation bool
}

// RulesFromPolicy builds Rules from a channel's content_policy map, where a
// key set to false disables the matching check.
func RulesFromPolicy(policy map[string]bool) Rules {
	enabled := func(key string) bool {
		v, ok := policy[key]
		return !ok || v
	}
	return Rules{
		SkipCopyright:      !enabled("copyright_check"),
		SkipProfanity:      !enabled("profanity_filter"),
		SkipCoppa:          !enabled("coppa_compliant"),
		SkipAdvertiser:     !enabled("advertiser_friendly"),
		SkipSpam:           !enabled("spam_detection"),
		SkipMisinformation: !enabled("misinformation_check"),
	}
}

type weightedPattern struct {
	re     *regexp.Regexp
	weight float64
}

type severityPattern struct {
	re       *regexp.Regexp
	severity Severity
	penalty  float64
}

type penaltyPattern struct {
	re          *regexp.Regexp
	description string
	penalty     float64
}

var (
	profanityPatterns = []severityPattern{
		{regexp.MustCompile(`(?i)\b(damn|hell|crap|stupid|idiot)\b`), SeverityLow, 10},
		{regexp.MustCompile(`(?i)\b(f[\w*]*k|sh[\w*]*t|b[\w*]*ch)\b`), SeverityHigh, 50},
		{regexp.MustCompile(`(?i)\b(hate|kill|die|murder)\b`), SeverityMedium, 25},
	}

	copyrightPatterns = []severityPattern{
		{regexp.MustCompile(`(?i)\b(soundtrack|theme song|movie clip|tv show)\b`), SeverityMedium, 20},
		{regexp.MustCompile(`(?i)\b(cover song|remix|parody|tribute)\b`), SeverityMedium, 20},
	}

	spamPatterns = []weightedPattern{
		{regexp.MustCompile(`(?i)\b(click here|subscribe now|buy now|limited time|act fast)\b`), 0.6},
		{regexp.MustCompile(`!!!`), 0.4},
		{regexp.MustCompile(`(?i)\b(free money|get rich|work from home|make money fast)\b`), 0.8},
		{regexp.MustCompile(`\$\$\$`), 0.5},
	}

	coppaPatterns = []weightedPattern{
		{regexp.MustCompile(`(?i)\b(kids|children|child|toddler|baby)\b`), 0.7},
		{regexp.MustCompile(`(?i)\b(toy|game|cartoon|animated|fun|play)\b`), 0.5},
		{regexp.MustCompile(`(?i)\b(education|learning|school|teacher)\b`), 0.4},
	}

	coppaViolationPatterns = []penaltyPattern{
		{regexp.MustCompile(`(?i)\b(personal info|email|phone|address|full name)\b`), "request for personal information", 0},
		{regexp.MustCompile(`(?i)\b(buy|purchase|credit card|payment)\b`), "commercial content targeting children", 0},
		{regexp.MustCompile(`(?i)\b(meet|contact|private message)\b`), "inappropriate contact suggestions", 0},
	}

	advertiserPatterns = []penaltyPattern{
		{regexp.MustCompile(`(?i)\b(violence|violent|fight|attack|war|weapon)\b`), "violence-related content", 30},
		{regexp.MustCompile(`(?i)\b(drug|alcohol|smoking|addiction|substance)\b`), "substance-related content", 25},
		{regexp.MustCompile(`(?i)\b(sex|sexual|adult|mature|explicit)\b`), "adult content", 40},
		{regexp.MustCompile(`(?i)\b(politics|political|election|government|controversy)\b`), "political content", 15},
		{regexp.MustCompile(`(?i)\b(tragedy|disaster|death|accident|crisis)\b`), "sensitive events", 35},
		{regexp.MustCompile(`(?i)\b(discrimination|racist|sexist)\b`), "hate speech", 50},
	}

	misinformationPatterns = []weightedPattern{
		{regexp.MustCompile(`(?i)\b(conspiracy|hoax|fake news|cover[- ]?up)\b`), 0.6},
		{regexp.MustCompile(`(?i)\b(miracle cure|they don't want you to know)\b`), 0.8},
		{regexp.MustCompile(`(?i)\b(100% proven|guaranteed|never fails)\b`), 0.5},
	}
)

// Checker runs policy checks. Threshold defaults to DefaultThreshold when
// zero.
type Checker struct {
	Threshold float64
}

func NewChecker(threshold float64) *Checker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Checker{Threshold: threshold}
}

type categoryResult struct {
	score           float64
	violations      []Violation
	warnings        []Violation
	recommendations []string
}

// Check runs the enabled checks and aggregates them into a Result. The
// overall score is the mean of the category scores.
func (c *Checker) Check(content Content, rules Rules) Result {
	start := time.Now()
	result := Result{ContentID: content.ID, CheckedAt: start.UTC()}

	var scores []float64
	collect := func(cr categoryResult) {
		scores = append(scores, cr.score)
		result.Violations = append(result.Violations, cr.violations...)
		result.Warnings = append(result.Warnings, cr.warnings...)
		result.Recommendations = append(result.Recommendations, cr.recommendations...)
	}

	if !rules.SkipCopyright {
		collect(checkCopyright(content))
	}
	if !rules.SkipProfanity {
		collect(checkProfanity(content))
	}
	if !rules.SkipCoppa {
		collect(checkCoppa(content))
	}
	if !rules.SkipAdvertiser {
		collect(checkAdvertiser(content))
	}
	if !rules.SkipSpam {
		collect(checkSpam(content))
	}
	if !rules.SkipMisinformation {
		collect(checkMisinformation(content))
	}

	result.OverallScore = 100
	if len(scores) > 0 {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		result.OverallScore = sum / float64(len(scores))
	}

	critical := false
	for _, v := range result.Violations {
		if v.Severity == SeverityCritical {
			critical = true
			break
		}
	}
	result.Compliant = result.OverallScore >= c.Threshold && !critical

	if result.OverallScore < 90 {
		result.Recommendations = append(result.Recommendations, "review content for better compliance")
	}
	if len(result.Violations) > 0 {
		result.Recommendations = append(result.Recommendations, "address all violations before publishing")
	}

	result.Duration = time.Since(start)
	utils.Info("policy check done", "content_id", content.ID, "score", fmt.Sprintf("%.1f", result.OverallScore), "compliant", result.Compliant)
	return result
}

func checkCopyright(content Content) categoryResult {
	cr := categoryResult{score: 100}
	text := content.text()
	for _, p := range copyrightPatterns {
		for _, match := range p.re.FindAllString(text, -1) {
			cr.warnings = append(cr.warnings, Violation{
				Type:        "potential_copyright",
				Severity:    p.severity,
				Description: fmt.Sprintf("potential copyright content detected: %q", match),
				Confidence:  0.7,
			})
			if cr.score > 80 {
				cr.score = 80
			}
		}
	}
	if len(cr.warnings) == 0 {
		cr.recommendations = append(cr.recommendations, "content appears free of copyright violations")
	}
	return cr
}

func checkProfanity(content Content) categoryResult {
	cr := categoryResult{score: 100}
	text := content.fullText()

	count := 0
	penalty := 0.0
	for _, p := range profanityPatterns {
		for _, match := range p.re.FindAllString(text, -1) {
			count++
			penalty += p.penalty
			v := Violation{
				Type:         "profanity",
				Severity:     p.severity,
				Description:  fmt.Sprintf("profanity detected: %q", match),
				Confidence:   0.9,
				SuggestedFix: fmt.Sprintf("replace or remove %q", match),
			}
			if p.severity == SeverityHigh || p.severity == SeverityCritical {
				cr.violations = append(cr.violations, v)
			} else {
				cr.warnings = append(cr.warnings, v)
			}
		}
	}

	if penalty > 0 {
		cr.score = 100 - penalty
		if cr.score < 0 {
			cr.score = 0
		}
	}
	if count == 0 {
		cr.recommendations = append(cr.recommendations, "content is free of profanity")
	} else {
		cr.recommendations = append(cr.recommendations, fmt.Sprintf("remove or replace %d instances of profanity", count))
	}
	return cr
}

func checkCoppa(content Content) categoryResult {
	cr := categoryResult{score: 100}
	text := content.text()

	targeting := 0.0
	for _, p := range coppaPatterns {
		targeting += float64(len(p.re.FindAllString(text, -1))) * p.weight
	}

	if targeting > 2.0 {
		for _, p := range coppaViolationPatterns {
			if p.re.MatchString(text) {
				cr.violations = append(cr.violations, Violation{
					Type:         "coppa_violation",
					Severity:     SeverityCritical,
					Description:  "coppa violation: " + p.description,
					Confidence:   0.8,
					SuggestedFix: "remove " + p.description + " from child-directed content",
				})
				cr.score = 0
			}
		}
		if !content.CoppaDeclared {
			cr.warnings = append(cr.warnings, Violation{
				Type:        "coppa_compliance",
				Severity:    SeverityMedium,
				Description: "content may be directed at children, mark it as child-directed",
				Confidence:  minFloat(targeting/5.0, 1.0),
			})
			if cr.score > 75 {
				cr.score = 75
			}
		}
		cr.recommendations = append(cr.recommendations, "content appears to target children")
	}
	return cr
}

func checkAdvertiser(content Content) categoryResult {
	cr := categoryResult{score: 100}
	text := content.text()

	totalPenalty := 0.0
	for _, p := range advertiserPatterns {
		matches := len(p.re.FindAllString(text, -1))
		if matches == 0 {
			continue
		}
		totalPenalty += p.penalty

		severity := SeverityLow
		switch {
		case p.penalty >= 40:
			severity = SeverityHigh
		case p.penalty >= 25:
			severity = SeverityMedium
		}
		v := Violation{
			Type:         "advertiser_unfriendly",
			Severity:     severity,
			Description:  "potentially advertiser-unfriendly content: " + p.description,
			Confidence:   minFloat(float64(matches)*0.3, 1.0),
			SuggestedFix: "consider removing or moderating " + p.description,
		}
		if severity == SeverityHigh {
			cr.violations = append(cr.violations, v)
		} else {
			cr.warnings = append(cr.warnings, v)
		}
	}

	cr.score = 100 - totalPenalty
	if cr.score < 0 {
		cr.score = 0
	}
	if totalPenalty == 0 {
		cr.recommendations = append(cr.recommendations, "content appears advertiser-friendly")
	} else {
		cr.recommendations = append(cr.recommendations, "review content for advertiser-friendliness")
	}
	return cr
}

func checkSpam(content Content) categoryResult {
	cr := categoryResult{score: 100}
	text := content.Title + " " + content.Description

	spamScore := 0.0
	for _, p := range spamPatterns {
		spamScore += float64(len(p.re.FindAllString(text, -1))) * p.weight
	}

	switch {
	case spamScore > 0.7:
		cr.violations = append(cr.violations, Violation{
			Type:         "spam_content",
			Severity:     SeverityHigh,
			Description:  fmt.Sprintf("content appears to be spam (score: %.2f)", spamScore),
			Confidence:   minFloat(spamScore, 1.0),
			SuggestedFix: "remove spammy language and promotional content",
		})
		cr.score = maxFloat(0, 100-spamScore*50)
	case spamScore > 0.3:
		cr.warnings = append(cr.warnings, Violation{
			Type:         "potential_spam",
			Severity:     SeverityMedium,
			Description:  fmt.Sprintf("content may appear spammy (score: %.2f)", spamScore),
			Confidence:   spamScore,
			SuggestedFix: "reduce promotional language",
		})
		cr.score = maxFloat(50, 100-spamScore*30)
	default:
		cr.recommendations = append(cr.recommendations, "content is free of spam indicators")
	}
	return cr
}

func checkMisinformation(content Content) categoryResult {
	cr := categoryResult{score: 100}
	text := content.text()

	misinfoScore := 0.0
	for _, p := range misinformationPatterns {
		misinfoScore += float64(len(p.re.FindAllString(text, -1))) * p.weight
	}

	switch {
	case misinfoScore > 0.6:
		cr.violations = append(cr.violations, Violation{
			Type:         "potential_misinformation",
			Severity:     SeverityHigh,
			Description:  fmt.Sprintf("content may contain misinformation (score: %.2f)", misinfoScore),
			Confidence:   minFloat(misinfoScore, 1.0),
			SuggestedFix: "verify claims and provide credible sources",
		})
		cr.score = maxFloat(0, 100-misinfoScore*60)
	case misinfoScore > 0.3:
		cr.warnings = append(cr.warnings, Violation{
			Type:         "verify_claims",
			Severity:     SeverityMedium,
			Description:  fmt.Sprintf("some claims may need verification (score: %.2f)", misinfoScore),
			Confidence:   misinfoScore,
			SuggestedFix: "provide sources for significant claims",
		})
		cr.score = maxFloat(70, 100-misinfoScore*40)
	default:
		cr.recommendations = append(cr.recommendations, "content appears factual")
	}
	return cr
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

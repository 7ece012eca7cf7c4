package analysis

import (
	"regexp"
	"strings"
)

// Keywords holds terms mined from record text, in first-seen order.
// SearchKeywords is the broader set used to build search queries;
// TechnicalTerms is the narrower set suited to code-search hints.
type Keywords struct {
	TechnicalTerms []string `json:"technical_terms"`
	SearchKeywords []string `json:"search_keywords"`
}

// TopTerms returns the first-seen-order prefix of technical terms.
func (k Keywords) TopTerms(n int) []string { return prefix(k.TechnicalTerms, n) }

// TopKeywords returns the first-seen-order prefix of search keywords.
func (k Keywords) TopKeywords(n int) []string { return prefix(k.SearchKeywords, n) }

func prefix(values []string, n int) []string {
	if n < len(values) {
		return values[:n]
	}
	return values
}

// technologyVocabulary is the fixed set of common technology names matched as
// case-insensitive substrings.
var technologyVocabulary = []string{
	"redis", "kafka", "postgres", "postgresql", "mysql", "mongodb", "sqlite",
	"elasticsearch", "rabbitmq", "memcached", "cassandra", "dynamodb",
	"s3", "sqs", "sns", "lambda", "kinesis", "kubernetes", "docker", "helm",
	"terraform", "nginx", "grpc", "graphql", "oauth", "jwt", "saml",
	"react", "angular", "vue", "spring", "django", "flask", "rails",
	"webpack", "jenkins",
}

// roleVocabulary is the fixed set of architectural-role nouns. Matches are
// lowercased before storage.
var roleVocabulary = []string{
	"service", "controller", "handler", "repository", "endpoint",
	"migration", "schema", "database", "queue", "cache", "gateway",
	"middleware", "worker", "pipeline", "deployment", "frontend", "backend",
	"api", "module", "component",
}

var (
	// camelPattern finds PascalCase/camelCase identifiers with at least two
	// capitalized word-groups; pure acronyms are filtered out after matching.
	camelPattern = regexp.MustCompile(`\b[A-Za-z][a-z0-9]*(?:[A-Z][a-z0-9]*)+\b`)

	upperTokenPattern = regexp.MustCompile(`\b[A-Z]{2,8}\b`)

	pathPattern = regexp.MustCompile(`\b[\w.-]+(?:/[\w.-]+)+\.[A-Za-z0-9]{1,5}\b`)

	filePattern = regexp.MustCompile(`\b[\w-]+\.(?:go|py|js|jsx|ts|tsx|java|kt|rb|rs|cs|cpp|cc|c|h|php|sql|sh|bash|yaml|yml|json|xml|toml|proto|tf|md|css|html)\b`)

	quotedPattern = regexp.MustCompile(`["'` + "`" + `]([^"'` + "`" + `\n]{4,49})["'` + "`" + `]`)
)

var rolePattern = regexp.MustCompile(`\b(` + strings.Join(roleVocabulary, "|") + `)\b`)

// keywordExtractor accumulates both sets with first-seen-order dedup.
type keywordExtractor struct {
	terms    []string
	keywords []string
	termSeen map[string]bool
	kwSeen   map[string]bool
}

// ExtractKeywords mines technical terms and search keywords from the given
// texts. All passes are additive; extraction is first-seen-ordered, not
// frequency-ranked.
func ExtractKeywords(texts ...string) Keywords {
	e := &keywordExtractor{
		termSeen: make(map[string]bool),
		kwSeen:   make(map[string]bool),
	}
	for _, text := range texts {
		if text == "" {
			continue
		}
		e.extract(text)
	}
	return Keywords{TechnicalTerms: e.terms, SearchKeywords: e.keywords}
}

func (e *keywordExtractor) extract(text string) {
	lower := strings.ToLower(text)

	// Multi-word identifiers (GeolocationProvider, redisCache).
	for _, m := range camelPattern.FindAllString(text, -1) {
		if m == strings.ToUpper(m) {
			continue // bare acronym, handled below
		}
		e.addTerm(m)
	}

	// Bare uppercase tokens (API, JWT, SSO).
	for _, m := range upperTokenPattern.FindAllString(text, -1) {
		e.addTerm(m)
		e.addKeyword(m)
	}

	// Known technology names, matched anywhere in the text.
	for _, tech := range technologyVocabulary {
		if strings.Contains(lower, tech) {
			e.addTerm(tech)
			e.addKeyword(tech)
		}
	}

	// Path-like tokens and bare file names.
	for _, m := range pathPattern.FindAllString(text, -1) {
		e.addTerm(m)
	}
	for _, m := range filePattern.FindAllString(text, -1) {
		e.addTerm(m)
	}

	// Architectural-role nouns.
	for _, m := range rolePattern.FindAllString(lower, -1) {
		e.addKeyword(m)
	}

	// Quoted phrases, kept as written.
	for _, m := range quotedPattern.FindAllStringSubmatch(text, -1) {
		e.addKeyword(m[1])
	}
}

func (e *keywordExtractor) addTerm(term string) {
	if term == "" || e.termSeen[term] {
		return
	}
	e.termSeen[term] = true
	e.terms = append(e.terms, term)
}

func (e *keywordExtractor) addKeyword(kw string) {
	if kw == "" || e.kwSeen[kw] {
		return
	}
	e.kwSeen[kw] = true
	e.keywords = append(e.keywords, kw)
}

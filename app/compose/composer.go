package compose

import (
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"birdfeed/app/config"
	"birdfeed/app/feed"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// Prefixes news sites prepend to headlines; dropped before rewriting
var headlinePrefixes = []string{
	"breaking:", "update:", "news:", "exclusive:", "alert:",
	"analysis:", "opinion:", "editorial:", "report:",
}

// synonyms drives the paraphrase pass. Keys are matched on the
// lowercased, punctuation-stripped word.
var synonyms = map[string][]string{
	"bitcoin":        {"BTC", "Bitcoin"},
	"ethereum":       {"ETH", "Ethereum"},
	"cryptocurrency": {"crypto", "digital currency"},
	"blockchain":     {"distributed ledger", "blockchain tech"},
	"price":          {"value", "worth"},
	"increases":      {"rises", "surges", "climbs", "jumps"},
	"decreases":      {"falls", "drops", "declines", "dips"},
	"reaches":        {"hits", "touches"},
	"announces":      {"reveals", "unveils"},
	"partnership":    {"collaboration", "alliance", "deal"},
	"investment":     {"funding", "backing"},
	"regulation":     {"rules", "oversight"},
	"adoption":       {"acceptance", "integration"},
	"significant":    {"major", "key"},
	"development":    {"advance", "breakthrough"},
	"launch":         {"debut", "release", "rollout"},
	"platform":       {"network", "ecosystem"},
}

// phraseReplacements simplifies wordy constructions
var phraseReplacements = []struct {
	re  *regexp.Regexp
	new string
}{
	{regexp.MustCompile(`(?i)is expected to`), "will likely"},
	{regexp.MustCompile(`(?i)are expected to`), "will likely"},
	{regexp.MustCompile(`(?i)in order to`), "to"},
	{regexp.MustCompile(`(?i)due to the fact that`), "because"},
	{regexp.MustCompile(`(?i)at this point in time`), "now"},
	{regexp.MustCompile(`(?i)with regard to`), "about"},
	{regexp.MustCompile(`(?i)in the event that`), "if"},
	{regexp.MustCompile(`(?i)as a result of`), "from"},
}

var starters = []string{
	"Breaking:", "Update:", "Latest:", "Big move:", "Market update:", "Spotlight:",
}

// starterChance is the share of posts that get a lead-in phrase
const starterChance = 0.3

// Composer rewrites articles into constraint-satisfying posts.
// All choices (synonyms, hashtags, mentions) are drawn from a PRNG
// seeded by the article fingerprint, so composing the same article
// with the same config always yields the same post.
type Composer struct {
	content  config.Content
	hashtags []string
	mentions []string
	images   config.ImageSelection
}

func NewComposer(botConfig *config.BotConfig) *Composer {
	return &Composer{
		content:  botConfig.Content,
		hashtags: botConfig.Hashtags,
		mentions: botConfig.Mentions,
		images:   botConfig.Images,
	}
}

// Compose turns an article into a publishable post. Returns a
// *ComposeError when no rendering can satisfy the configured limits.
func (c *Composer) Compose(article feed.Article) (Post, error) {
	rng := c.newRNG(article.Fingerprint)

	body := c.clean(article.Title)
	if body == "" {
		return Post{}, &ComposeError{Fingerprint: article.Fingerprint, Reason: "empty title after cleaning"}
	}

	body = c.paraphrase(body, rng)

	// A lead-in keeps some variety; it is also the guarantee that the
	// post text never reproduces the source headline verbatim.
	if rng.Float64() < starterChance || strings.EqualFold(body, strings.TrimSpace(article.Title)) {
		body = starters[rng.Intn(len(starters))] + " " + body
	}

	hashtags := c.pickHashtags(rng)

	var mentions []string
	if c.content.IncludeMentions && len(c.mentions) > 0 {
		mentions = []string{c.mentions[rng.Intn(len(c.mentions))]}
	}

	url := ""
	if c.content.AppendURL {
		url = article.URL
	}

	text, kept, err := c.assemble(body, mentions, hashtags, url, article.Fingerprint)
	if err != nil {
		return Post{}, err
	}

	post := Post{
		Text:     text,
		Hashtags: kept,
		Mentions: mentions,
		Article:  article,
	}

	if c.content.AttachImages {
		post.ImageQuery = c.imageQuery(article.Title, rng)
	}

	slog.Debug("Composed post", "fingerprint", article.Fingerprint, "length", len(text), "hashtags", len(kept))

	return post, nil
}

// newRNG seeds a PRNG from the article fingerprint
func (c *Composer) newRNG(fingerprint string) *rand.Rand {
	var seed int64
	if raw, err := hex.DecodeString(fingerprint); err == nil && len(raw) >= 8 {
		seed = int64(binary.BigEndian.Uint64(raw[:8]))
	} else {
		for _, r := range fingerprint {
			seed = seed*31 + int64(r)
		}
	}
	return rand.New(rand.NewSource(seed))
}

func (c *Composer) clean(text string) string {
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")

	lower := strings.ToLower(text)
	for _, prefix := range headlinePrefixes {
		if strings.HasPrefix(lower, prefix) {
			text = strings.TrimSpace(text[len(prefix):])
			break
		}
	}

	return text
}

func (c *Composer) paraphrase(text string, rng *rand.Rand) string {
	for _, pr := range phraseReplacements {
		text = pr.re.ReplaceAllString(text, pr.new)
	}

	words := strings.Fields(text)
	for i, word := range words {
		key := strings.ToLower(strings.Trim(word, `.,:;!?"'()`))
		options, ok := synonyms[key]
		if !ok {
			continue
		}

		replacement := options[rng.Intn(len(options))]
		if word != "" && word[0] >= 'A' && word[0] <= 'Z' && replacement[0] >= 'a' && replacement[0] <= 'z' {
			replacement = strings.ToUpper(replacement[:1]) + replacement[1:]
		}
		words[i] = replacement
	}

	return strings.Join(words, " ")
}

func (c *Composer) pickHashtags(rng *rand.Rand) []string {
	count := c.content.HashtagsPerPost
	if count > len(c.hashtags) {
		count = len(c.hashtags)
	}

	perm := rng.Perm(len(c.hashtags))
	picked := make([]string, 0, count)
	for _, idx := range perm[:count] {
		picked = append(picked, c.hashtags[idx])
	}
	return picked
}

// assemble builds the final text under both the character and the word
// budget: the body is shortened first, then trailing hashtags are
// dropped. The limit is never silently exceeded.
func (c *Composer) assemble(body string, mentions, hashtags []string, url, fingerprint string) (string, []string, error) {
	maxLen := c.content.MaxPostLength

	join := func(body string, hashtags []string) string {
		parts := []string{body}
		parts = append(parts, mentions...)
		parts = append(parts, hashtags...)
		if url != "" {
			parts = append(parts, url)
		}
		return strings.Join(parts, " ")
	}

	// Word budget counts every appended token
	wordBudget := c.content.MaxWords - len(mentions) - len(hashtags)
	if url != "" {
		wordBudget--
	}
	if wordBudget < 1 {
		wordBudget = 1
	}
	body = trimWords(body, wordBudget)

	// URL is optional: drop it first when space is tight
	if url != "" && len(join(body, hashtags)) > maxLen {
		url = ""
	}

	for {
		text := join(body, hashtags)
		if len(text) <= maxLen {
			return text, hashtags, nil
		}

		// Shorten the body at a word boundary, reserving room for
		// the appended tokens plus the ellipsis
		reserved := len(text) - len(body)
		budget := maxLen - reserved - 3
		if budget > 0 {
			if shortened, ok := truncateAtWord(body, budget); ok {
				body = shortened + "..."
				continue
			}
		}

		// Body is down to a single token; shed hashtags from the end
		if len(hashtags) > 0 {
			hashtags = hashtags[:len(hashtags)-1]
			continue
		}

		return "", nil, &ComposeError{
			Fingerprint: fingerprint,
			Reason:      "mandatory tokens exceed the length limit after maximal shortening",
		}
	}
}

// trimWords keeps at most max words, never cutting mid-word
func trimWords(text string, max int) string {
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.Join(words[:max], " ")
}

// truncateAtWord shortens text to at most budget bytes at a word
// boundary. Reports false when not even the first word fits.
func truncateAtWord(text string, budget int) (string, bool) {
	if len(text) <= budget {
		// Nothing left to shave off
		return "", false
	}

	cut := strings.LastIndex(text[:budget+1], " ")
	if cut <= 0 {
		return "", false
	}
	return strings.TrimRight(text[:cut], " .,:;"), true
}

func (c *Composer) imageQuery(title string, rng *rand.Rand) string {
	lower := strings.ToLower(title)

	// Keys checked in sorted order, so a title matching several
	// keywords always resolves to the same query
	keywords := make([]string, 0, len(c.images.KeywordMap))
	for keyword := range c.images.KeywordMap {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)

	for _, keyword := range keywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return c.images.KeywordMap[keyword]
		}
	}

	if len(c.images.Keywords) > 0 {
		return c.images.Keywords[rng.Intn(len(c.images.Keywords))]
	}

	return ""
}

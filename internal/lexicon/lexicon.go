// Package lexicon holds the static lookup tables the prediction parser
// matches against: asset alias maps, sports patterns, category keyword sets
// and per-category resolution data sources. Tables are pure data so they can
// be extended and tested independently of the parsing algorithm.
package lexicon

import (
	"regexp"
	"sort"

	"calls-tracker/internal/models"
)

// Asset is the canonical form of a matched ticker alias.
type Asset struct {
	Ticker string
	Name   string
}

// DataSource names the resolution source for a market category.
type DataSource struct {
	Name string
	URL  string
}

var cryptoAssets = map[string]Asset{
	"btc": {"BTC", "Bitcoin"}, "bitcoin": {"BTC", "Bitcoin"},
	"eth": {"ETH", "Ethereum"}, "ethereum": {"ETH", "Ethereum"},
	"sol": {"SOL", "Solana"}, "solana": {"SOL", "Solana"},
	"bnb": {"BNB", "BNB"}, "xrp": {"XRP", "XRP"},
	"ada": {"ADA", "Cardano"}, "doge": {"DOGE", "Dogecoin"},
	"dot": {"DOT", "Polkadot"}, "avax": {"AVAX", "Avalanche"},
	"link": {"LINK", "Chainlink"}, "matic": {"MATIC", "Polygon"},
	"uni": {"UNI", "Uniswap"}, "atom": {"ATOM", "Cosmos"},
	"near": {"NEAR", "NEAR Protocol"}, "arb": {"ARB", "Arbitrum"},
	"op": {"OP", "Optimism"}, "sui": {"SUI", "Sui"},
	"apt": {"APT", "Aptos"}, "sei": {"SEI", "Sei"},
	"jup": {"JUP", "Jupiter"}, "jto": {"JTO", "Jito"},
	"bonk": {"BONK", "Bonk"}, "wif": {"WIF", "dogwifhat"},
	"pepe": {"PEPE", "Pepe"},
}

var stockAssets = map[string]Asset{
	"nvda": {"NVDA", "NVIDIA"}, "nvidia": {"NVDA", "NVIDIA"},
	"aapl": {"AAPL", "Apple"}, "apple": {"AAPL", "Apple"},
	"msft": {"MSFT", "Microsoft"}, "microsoft": {"MSFT", "Microsoft"},
	"googl": {"GOOGL", "Alphabet"}, "goog": {"GOOGL", "Alphabet"}, "google": {"GOOGL", "Alphabet"},
	"amzn": {"AMZN", "Amazon"}, "amazon": {"AMZN", "Amazon"},
	"meta": {"META", "Meta"}, "tsla": {"TSLA", "Tesla"}, "tesla": {"TSLA", "Tesla"},
}

var sportsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(Lakers|Celtics|Warriors|Bucks|76ers|Heat|Nuggets|Suns|Nets|Knicks|Clippers|Mavericks|Grizzlies|Cavaliers|Kings|Timberwolves|Thunder|Pelicans|Hawks|Bulls|Raptors|Pacers|Magic|Hornets|Pistons|Wizards|Spurs|Trail\s*Blazers|Jazz|Rockets)\b`),
	regexp.MustCompile(`(?i)\b(Patriots|Chiefs|Eagles|49ers|Bills|Cowboys|Dolphins|Ravens|Bengals|Lions|Packers|Seahawks|Chargers|Jaguars|Texans|Vikings|Steelers|Broncos|Raiders|Commanders|Bears|Saints|Falcons|Browns|Rams|Jets|Panthers|Giants|Buccaneers|Colts|Titans|Cardinals)\b`),
	regexp.MustCompile(`(?i)\b(Super\s*Bowl|NBA\s*Finals|World\s*Series|Stanley\s*Cup|Champions\s*League|World\s*Cup|Olympics)\b`),
	regexp.MustCompile(`(?i)\bGame\s+[1-7]\b`),
	regexp.MustCompile(`(?i)will\s+(?:beat|defeat|win\s+against|lose\s+to|dominate)`),
}

// keywordRules map keyword sets to categories; evaluated in order after the
// ticker and sports tables, first match wins.
var keywordRules = []struct {
	re       *regexp.Regexp
	category models.Category
}{
	{regexp.MustCompile(`(?i)\b(stream|netflix|disney|hulu|hbo|prime\s+video|spotify|youtube)\b`), models.CategoryStreaming},
	{regexp.MustCompile(`(?i)\b(billboard|grammy|album|song|artist|spotify|chart)\b`), models.CategoryMusic},
	{regexp.MustCompile(`(?i)\b(weather|temperature|rain|snow|hurricane|forecast|celsius|fahrenheit)\b`), models.CategoryWeather},
	{regexp.MustCompile(`(?i)\b(election|vote|poll|candidate|president|governor|senator|congress)\b`), models.CategoryElections},
	{regexp.MustCompile(`(?i)\b(github|npm|pypi|framework|library|language|stack\s*overflow|ai|ml|llm)\b`), models.CategoryTechnology},
	{regexp.MustCompile(`(?i)\b(gdp|inflation|interest\s+rate|fed|employment|stock|market\s+cap|revenue|earnings)\b`), models.CategoryEconomic},
}

var dataSources = map[models.Category]DataSource{
	models.CategoryCrypto:     {"CoinGecko", "https://www.coingecko.com"},
	models.CategorySports:     {"ESPN", "https://www.espn.com"},
	models.CategoryEconomic:   {"FRED", "https://fred.stlouisfed.org"},
	models.CategoryWeather:    {"NOAA", "https://www.weather.gov"},
	models.CategoryStreaming:  {"Netflix Top 10", "https://top10.netflix.com"},
	models.CategoryMusic:      {"Billboard", "https://www.billboard.com"},
	models.CategoryElections:  {"Associated Press", "https://apnews.com"},
	models.CategoryTechnology: {"GitHub Trending", "https://github.com/trending"},
}

type aliasEntry struct {
	alias string
	asset Asset
	re    *regexp.Regexp
}

// allAliases is the union of crypto and stock tables, longest alias first so
// a short alias never fires inside a longer unrelated token.
var allAliases []aliasEntry

var cryptoAliasRes, stockAliasRes []*regexp.Regexp

func wordRe(alias string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b`)
}

func init() {
	for alias, asset := range cryptoAssets {
		re := wordRe(alias)
		allAliases = append(allAliases, aliasEntry{alias, asset, re})
		cryptoAliasRes = append(cryptoAliasRes, re)
	}
	for alias, asset := range stockAssets {
		re := wordRe(alias)
		allAliases = append(allAliases, aliasEntry{alias, asset, re})
		stockAliasRes = append(stockAliasRes, re)
	}
	sort.Slice(allAliases, func(i, j int) bool {
		if len(allAliases[i].alias) != len(allAliases[j].alias) {
			return len(allAliases[i].alias) > len(allAliases[j].alias)
		}
		return allAliases[i].alias < allAliases[j].alias
	})
}

// DetectCategory scans text against the lexicons in fixed precedence:
// crypto tickers, stock tickers, sports, then keyword sets. Crypto is the
// domain default when nothing matches.
func DetectCategory(text string) models.Category {
	for _, re := range cryptoAliasRes {
		if re.MatchString(text) {
			return models.CategoryCrypto
		}
	}
	for _, re := range stockAliasRes {
		if re.MatchString(text) {
			return models.CategoryEconomic
		}
	}
	if MatchesSports(text) {
		return models.CategorySports
	}
	for _, rule := range keywordRules {
		if rule.re.MatchString(text) {
			return rule.category
		}
	}
	return models.CategoryCrypto
}

// DetectAsset matches text against the union of crypto and stock alias
// tables with word-boundary semantics, longest alias first. Returns nil when
// no alias matches.
func DetectAsset(text string) *Asset {
	for _, entry := range allAliases {
		if entry.re.MatchString(text) {
			asset := entry.asset
			return &asset
		}
	}
	return nil
}

// MatchesSports reports whether any sports team, competition or versus
// pattern appears in the text.
func MatchesSports(text string) bool {
	for _, re := range sportsPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// IsCryptoTicker reports whether a canonical ticker belongs to the crypto
// table.
func IsCryptoTicker(ticker string) bool {
	for _, asset := range cryptoAssets {
		if asset.Ticker == ticker {
			return true
		}
	}
	return false
}

// DataSourceFor returns the resolution data source for a category, falling
// back to the crypto source for unknown categories.
func DataSourceFor(category models.Category) DataSource {
	if ds, ok := dataSources[category]; ok {
		return ds
	}
	return dataSources[models.CategoryCrypto]
}

package rank

import (
	"testing"

	"github.com/eforeli/XWebNews/engine/domain"
)

func TestScoreWeights(t *testing.T) {
	got := Score(domain.Metrics{Likes: 10, Reshares: 5, Replies: 4})
	if got != 22 {
		t.Fatalf("Score = %v, want 22 (10*1 + 5*2 + 4*0.5)", got)
	}
}

func TestScoreIgnoresQuotes(t *testing.T) {
	with := Score(domain.Metrics{Likes: 1, Quotes: 50})
	without := Score(domain.Metrics{Likes: 1})
	if with != without {
		t.Fatalf("quotes changed the score: %v vs %v", with, without)
	}
}

var testOrder = []domain.Category{"DeFi", "NFT", "Infra"}

var testKeywords = map[domain.Category]domain.KeywordSet{
	"DeFi":  {Primary: []string{"DeFi"}, Related: []string{"yield", "staking"}},
	"NFT":   {Primary: []string{"NFT"}, Related: []string{"mint", "collection"}},
	"Infra": {Primary: []string{"Chainlink"}, Related: []string{"oracle"}},
}

func TestClassify(t *testing.T) {
	c := NewClassifier(testOrder, testKeywords, "Infra")

	cases := []struct {
		name string
		text string
		want domain.Category
	}{
		{"primary match", "Big DeFi protocol update", "DeFi"},
		{"case insensitive", "new nft collection dropping", "NFT"},
		{"related only", "oracle networks are growing", "Infra"},
		{"primary beats related", "DeFi yield", "DeFi"},
		{"no match falls back", "good morning everyone", "Infra"},
		// One primary each (3 points both): earlier category in order wins.
		{"tie breaks by order", "DeFi meets NFT", "DeFi"},
		// 1 primary + 2 related (5) beats 1 primary (3).
		{"weight sum wins", "NFT mint collection vs DeFi", "NFT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.text); got != tc.want {
				t.Fatalf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
			}
		})
	}
}

func item(cat domain.Category, id string, likes int) domain.HarvestItem {
	return domain.HarvestItem{
		Category:   cat,
		ExternalID: id,
		Metrics:    domain.Metrics{Likes: likes},
	}
}

func TestRankSortsAndTruncates(t *testing.T) {
	items := []domain.HarvestItem{
		item("DeFi", "low", 1),
		item("DeFi", "high", 100),
		item("DeFi", "mid", 50),
		item("NFT", "solo", 5),
	}

	ranked := Rank(items, 2)

	defi := ranked["DeFi"]
	if len(defi) != 2 {
		t.Fatalf("DeFi group has %d items, want truncation to 2", len(defi))
	}
	if defi[0].ExternalID != "high" || defi[1].ExternalID != "mid" {
		t.Fatalf("DeFi order = [%s %s], want [high mid]", defi[0].ExternalID, defi[1].ExternalID)
	}
	if defi[0].Score != 100 {
		t.Fatalf("Score not filled in: %v", defi[0].Score)
	}
	if len(ranked["NFT"]) != 1 {
		t.Fatalf("NFT group = %v", ranked["NFT"])
	}
}

func TestRankStableOnTies(t *testing.T) {
	items := []domain.HarvestItem{
		item("DeFi", "first", 10),
		item("DeFi", "second", 10),
		item("DeFi", "third", 10),
	}

	ranked := Rank(items, 0)

	got := ranked["DeFi"]
	for i, want := range []string{"first", "second", "third"} {
		if got[i].ExternalID != want {
			t.Fatalf("tie order changed: position %d is %s, want %s", i, got[i].ExternalID, want)
		}
	}
}

func TestRankZeroLimitKeepsAll(t *testing.T) {
	items := []domain.HarvestItem{
		item("DeFi", "a", 1),
		item("DeFi", "b", 2),
	}
	if got := Rank(items, 0)["DeFi"]; len(got) != 2 {
		t.Fatalf("limit 0 truncated to %d items", len(got))
	}
}

package scoring

// factorDef is one boolean predicate of the mining catalogue.
type factorDef struct {
	name     string
	category string
	test     func(Candidate) bool
}

func sector(name string, keywords ...string) factorDef {
	return factorDef{
		name:     name,
		category: name,
		test:     func(c Candidate) bool { return containsAny(c.Industry, keywords...) },
	}
}

func rankIs(n int) func(Candidate) bool {
	return func(c Candidate) bool { return c.Rank == n }
}

// catalogue is ordered; on equal differences the earlier factor of a category wins.
var catalogue = []factorDef{
	{"no_dividend", "dividend", func(c Candidate) bool { return c.DividendYield == 0 }},
	{"low_dividend", "dividend", func(c Candidate) bool { return c.DividendYield > 0 && c.DividendYield < 1 }},
	{"medium_dividend", "dividend", func(c Candidate) bool { return c.DividendYield >= 1 && c.DividendYield < 3 }},
	{"high_dividend", "dividend", func(c Candidate) bool { return c.DividendYield >= 3 }},

	{"very_high_volume", "volume", func(c Candidate) bool { return c.Volume > 50_000_000 }},
	{"high_volume", "volume", func(c Candidate) bool { return c.Volume > 20_000_000 && c.Volume <= 50_000_000 }},
	{"medium_volume", "volume", func(c Candidate) bool { return c.Volume > 5_000_000 && c.Volume <= 20_000_000 }},
	{"low_volume", "volume", func(c Candidate) bool { return c.Volume <= 5_000_000 }},

	{"extreme_loss", "loss_severity", func(c Candidate) bool { return c.DailyLossPct < -10 }},
	{"severe_loss", "loss_severity", func(c Candidate) bool { return c.DailyLossPct < -5 && c.DailyLossPct >= -10 }},
	{"moderate_loss", "loss_severity", func(c Candidate) bool { return c.DailyLossPct < -3 && c.DailyLossPct >= -5 }},
	{"mild_loss", "loss_severity", func(c Candidate) bool { return c.DailyLossPct >= -3 }},

	{"rank_1", "ranking", rankIs(1)},
	{"rank_2", "ranking", rankIs(2)},
	{"rank_3", "ranking", rankIs(3)},
	{"rank_4", "ranking", rankIs(4)},
	{"rank_5", "ranking", rankIs(5)},
	{"top_2_loser", "ranking", func(c Candidate) bool { return c.Rank <= 2 }},
	{"bottom_2_loser", "ranking", func(c Candidate) bool { return c.Rank >= 4 }},

	sector("tech_sector", "technology", "software", "semiconductor"),
	sector("healthcare_sector", "healthcare", "pharmaceutical", "biotech"),
	sector("financial_sector", "financial", "bank", "insurance"),
	sector("consumer_sector", "consumer", "retail"),
	sector("energy_sector", "energy", "oil", "gas"),
	sector("industrial_sector", "industrial", "manufacturing"),
	{"is_reit", "reit", func(c Candidate) bool { return containsAny(c.Industry, "reit", "real estate") }},
	sector("communications", "communication", "telecom", "media"),
	sector("utilities", "utilities", "utility"),
}

var factorByName = func() map[string]factorDef {
	m := make(map[string]factorDef, len(catalogue))
	for _, f := range catalogue {
		m[f.name] = f
	}
	return m
}()

